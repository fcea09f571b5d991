package flux

// Local Lax-Friedrichs (Rusanov) flux. The dissipation speed is the larger
// of the two one-sided maximum wave speeds |vn|+c.

func (fc *Calculator) LLFFlux(uL, uR, n, f []float64) {
	var (
		sL  = fc.decompose(uL, n)
		sR  = fc.decompose(uR, n)
		lam = max2(abs(sL.vn)+sL.c, abs(sR.vn)+sR.c)
		fL  [4]float64
		fR  [4]float64
	)
	fc.PhysicalFlux(uL, n, fL[:])
	fc.PhysicalFlux(uR, n, fR[:])
	for i := 0; i < 4; i++ {
		f[i] = 0.5*(fL[i]+fR[i]) - 0.5*lam*(uR[i]-uL[i])
	}
}

// LLFJacobian is exact, including the derivative of the dissipation speed
// on whichever side attains the maximum.
func (fc *Calculator) LLFJacobian(uL, uR, n, dfdl, dfdr []float64) {
	var (
		sL       = fc.decompose(uL, n)
		sR       = fc.decompose(uR, n)
		lamL     = abs(sL.vn) + sL.c
		lamR     = abs(sR.vn) + sR.c
		lam      = max2(lamL, lamR)
		AL, AR   [16]float64
		dlL, dlR [4]float64
	)
	fc.PhysicalJacobian(uL, n, AL[:])
	fc.PhysicalJacobian(uR, n, AR[:])
	if lamL >= lamR {
		fc.dMaxWaveSpeed(uL, n, sL, dlL[:])
	} else {
		fc.dMaxWaveSpeed(uR, n, sR, dlR[:])
	}
	for i := 0; i < 4; i++ {
		du := uR[i] - uL[i]
		for j := 0; j < 4; j++ {
			var id float64
			if i == j {
				id = 1.
			}
			// dfdl = -dF/duL, dfdr = +dF/duR
			dfdl[i*4+j] = -(0.5*AL[i*4+j] + 0.5*lam*id - 0.5*du*dlL[j])
			dfdr[i*4+j] = 0.5*AR[i*4+j] - 0.5*lam*id - 0.5*du*dlR[j]
		}
	}
}

// dMaxWaveSpeed fills d with the gradient of |vn|+c w.r.t. the conserved
// variables of the given state.
func (fc *Calculator) dMaxWaveSpeed(u, n []float64, s faceState, d []float64) {
	var (
		g   = fc.Gamma
		sgn = 1.
		phi = 0.5 * (g - 1.) * s.q2
		cf  = g / (2. * s.c * s.rho)
	)
	if s.vn < 0. {
		sgn = -1.
	}
	// sgn(vn) * dvn/du
	d[0] = sgn * (-s.vn / s.rho)
	d[1] = sgn * (n[0] / s.rho)
	d[2] = sgn * (n[1] / s.rho)
	d[3] = 0.
	// + dc/du
	d[0] += cf * (phi - s.p/s.rho)
	d[1] += cf * (-(g - 1.) * s.vx)
	d[2] += cf * (-(g - 1.) * s.vy)
	d[3] += cf * (g - 1.)
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
