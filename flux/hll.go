package flux

// HLL flux of Harten, Lax and van Leer with Einfeldt wave speed estimates.
// The acoustic speeds bracket both the physical and the Roe-averaged signal
// speeds, which keeps the scheme positive.

func (fc *Calculator) waveEstimates(sL, sR faceState, n []float64) (SL, SR float64) {
	var (
		m = fc.roeAverage(sL, sR, n)
	)
	SL = min2(sL.vn-sL.c, m.vn-m.c)
	SR = max2(sR.vn+sR.c, m.vn+m.c)
	return
}

func (fc *Calculator) HLLFlux(uL, uR, n, f []float64) {
	var (
		sL, sR = fc.decompose(uL, n), fc.decompose(uR, n)
		SL, SR = fc.waveEstimates(sL, sR, n)
		fL, fR [4]float64
	)
	switch {
	case SL >= 0.:
		fc.PhysicalFlux(uL, n, f)
	case SR <= 0.:
		fc.PhysicalFlux(uR, n, f)
	default:
		fc.PhysicalFlux(uL, n, fL[:])
		fc.PhysicalFlux(uR, n, fR[:])
		for i := 0; i < 4; i++ {
			f[i] = (SR*fL[i] - SL*fR[i] + SL*SR*(uR[i]-uL[i])) / (SR - SL)
		}
	}
}

// HLLJacobian linearizes the HLL flux holding the wave speed estimates
// fixed. The neglected terms scale with the jump uR-uL, so the blocks are
// exact for vanishing jumps.
func (fc *Calculator) HLLJacobian(uL, uR, n, dfdl, dfdr []float64) {
	var (
		sL, sR = fc.decompose(uL, n), fc.decompose(uR, n)
		SL, SR = fc.waveEstimates(sL, sR, n)
		AL, AR [16]float64
	)
	switch {
	case SL >= 0.:
		fc.PhysicalJacobian(uL, n, dfdl)
		for i := range dfdl {
			dfdl[i] = -dfdl[i]
			dfdr[i] = 0.
		}
	case SR <= 0.:
		fc.PhysicalJacobian(uR, n, dfdr)
		for i := range dfdl {
			dfdl[i] = 0.
		}
	default:
		fc.PhysicalJacobian(uL, n, AL[:])
		fc.PhysicalJacobian(uR, n, AR[:])
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				var (
					del = 0.
				)
				if i == j {
					del = 1.
				}
				dfdl[i*4+j] = -(SR*AL[i*4+j] - SL*SR*del) / (SR - SL)
				dfdr[i*4+j] = (-SL*AR[i*4+j] + SL*SR*del) / (SR - SL)
			}
		}
	}
}
