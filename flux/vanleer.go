package flux

// Van Leer flux vector splitting. F = F+(uL) + F-(uR); each half is a smooth
// polynomial in the normal Mach number on (-1,1) and one-sided outside, so
// the Jacobians here are exact.

func (fc *Calculator) VanLeerFlux(uL, uR, n, f []float64) {
	var (
		fp, fm [4]float64
	)
	fc.splitFlux(uL, n, +1., fp[:])
	fc.splitFlux(uR, n, -1., fm[:])
	for i := 0; i < 4; i++ {
		f[i] = fp[i] + fm[i]
	}
}

func (fc *Calculator) VanLeerJacobian(uL, uR, n, dfdl, dfdr []float64) {
	fc.splitFluxJacobian(uL, n, +1., dfdl)
	fc.splitFluxJacobian(uR, n, -1., dfdr)
	for i := range dfdl {
		dfdl[i] = -dfdl[i]
	}
}

// splitFlux computes F+ (sign=+1) or F- (sign=-1) for one state.
func (fc *Calculator) splitFlux(u, n []float64, sign float64, f []float64) {
	var (
		g = fc.Gamma
		s = fc.decompose(u, n)
		M = s.vn / s.c
	)
	switch {
	case sign*M >= 1.: // supersonic toward this side: full physical flux
		fc.PhysicalFlux(u, n, f)
		return
	case sign*M <= -1.: // supersonic away: nothing
		f[0], f[1], f[2], f[3] = 0., 0., 0., 0.
		return
	}
	var (
		fmass = sign * s.rho * s.c * (M + sign) * (M + sign) / 4.
		vterm = (-s.vn + sign*2.*s.c) / g
		eterm = 0.5*(s.q2-s.vn*s.vn) +
			((g-1.)*s.vn+sign*2.*s.c)*((g-1.)*s.vn+sign*2.*s.c)/(2.*(g*g-1.))
	)
	f[0] = fmass
	f[1] = fmass * (s.vx + n[0]*vterm)
	f[2] = fmass * (s.vy + n[1]*vterm)
	f[3] = fmass * eterm
}

func (fc *Calculator) splitFluxJacobian(u, n []float64, sign float64, J []float64) {
	var (
		g = fc.Gamma
		s = fc.decompose(u, n)
		M = s.vn / s.c
	)
	switch {
	case sign*M >= 1.:
		fc.PhysicalJacobian(u, n, J)
		return
	case sign*M <= -1.:
		for i := range J {
			J[i] = 0.
		}
		return
	}
	var (
		phi  = 0.5 * (g - 1.) * s.q2
		cf   = g / (2. * s.c * s.rho)
		drho = [4]float64{1., 0., 0., 0.}
		dvx  = [4]float64{-s.vx / s.rho, 1. / s.rho, 0., 0.}
		dvy  = [4]float64{-s.vy / s.rho, 0., 1. / s.rho, 0.}
		dvn  = [4]float64{-s.vn / s.rho, n[0] / s.rho, n[1] / s.rho, 0.}
		dq2  = [4]float64{-2. * s.q2 / s.rho, 2. * s.vx / s.rho, 2. * s.vy / s.rho, 0.}
		dc   = [4]float64{
			cf * (phi - s.p/s.rho),
			cf * (-(g - 1.) * s.vx),
			cf * (-(g - 1.) * s.vy),
			cf * (g - 1.),
		}
		vpc   = s.vn + sign*s.c // vn +/- c
		fmass = sign * s.rho * vpc * vpc / (4. * s.c)
		vterm = (-s.vn + sign*2.*s.c) / g
		esum  = (g-1.)*s.vn + sign*2.*s.c
		eterm = 0.5*(s.q2-s.vn*s.vn) + esum*esum/(2.*(g*g-1.))
		G     = [4]float64{1., s.vx + n[0]*vterm, s.vy + n[1]*vterm, eterm}
		dfm   [4]float64
		dG    [4][4]float64
	)
	for j := 0; j < 4; j++ {
		dfm[j] = sign * (vpc*vpc/(4.*s.c)*drho[j] +
			s.rho*vpc/(2.*s.c)*(dvn[j]+sign*dc[j]) -
			s.rho*vpc*vpc/(4.*s.c*s.c)*dc[j])
		dG[1][j] = dvx[j] + n[0]/g*(sign*2.*dc[j]-dvn[j])
		dG[2][j] = dvy[j] + n[1]/g*(sign*2.*dc[j]-dvn[j])
		dG[3][j] = 0.5*dq2[j] - s.vn*dvn[j] +
			esum/(g*g-1.)*((g-1.)*dvn[j]+sign*2.*dc[j])
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			J[i*4+j] = dfm[j]*G[i] + fmass*dG[i][j]
		}
	}
}
