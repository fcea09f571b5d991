package flux

// HLLC flux. Restores the contact wave that plain HLL smears out by
// inserting the two star states of Toro between the acoustic waves.

func (fc *Calculator) hllcSpeeds(sL, sR faceState, n []float64) (SL, SR, Sstar float64) {
	SL, SR = fc.waveEstimates(sL, sR, n)
	var (
		num = sR.p - sL.p + sL.rho*sL.vn*(SL-sL.vn) - sR.rho*sR.vn*(SR-sR.vn)
		den = sL.rho*(SL-sL.vn) - sR.rho*(SR-sR.vn)
	)
	Sstar = num / den
	return
}

// starState returns the conserved state between the acoustic wave S and the
// contact wave Sstar on the side described by s, u.
func starState(s faceState, u []float64, S, Sstar float64, n []float64, ustar []float64) {
	var (
		k      = 1. / (S - Sstar)
		rhos   = s.rho * (S - s.vn) * k
		pratio = s.p / (s.rho * (S - s.vn))
		estar  = u[3]/s.rho + (Sstar-s.vn)*(Sstar+pratio)
	)
	ustar[0] = rhos
	ustar[1] = rhos * (s.vx + (Sstar-s.vn)*n[0])
	ustar[2] = rhos * (s.vy + (Sstar-s.vn)*n[1])
	ustar[3] = rhos * estar
}

func (fc *Calculator) HLLCFlux(uL, uR, n, f []float64) {
	var (
		sL, sR        = fc.decompose(uL, n), fc.decompose(uR, n)
		SL, SR, Sstar = fc.hllcSpeeds(sL, sR, n)
		ustar         [4]float64
	)
	switch {
	case SL >= 0.:
		fc.PhysicalFlux(uL, n, f)
	case Sstar >= 0.:
		fc.PhysicalFlux(uL, n, f)
		starState(sL, uL, SL, Sstar, n, ustar[:])
		for i := 0; i < 4; i++ {
			f[i] += SL * (ustar[i] - uL[i])
		}
	case SR >= 0.:
		fc.PhysicalFlux(uR, n, f)
		starState(sR, uR, SR, Sstar, n, ustar[:])
		for i := 0; i < 4; i++ {
			f[i] += SR * (ustar[i] - uR[i])
		}
	default:
		fc.PhysicalFlux(uR, n, f)
	}
}

// starDerivs collects the star state of one side together with its
// derivatives: dSame is d(ustar)/du of the same side at fixed Sstar and
// dStar is d(ustar)/dSstar. The contact speed derivatives are chained in by
// the caller, so only the acoustic estimates SL, SR stay frozen.
type starDerivs struct {
	ustar [4]float64
	dSame [16]float64
	dStar [4]float64
}

func (fc *Calculator) starStateDerivs(s faceState, u []float64, S, Sstar float64, n []float64) (d starDerivs) {
	var (
		g      = fc.Gamma
		k      = 1. / (S - Sstar)
		q      = S - s.vn
		rhos   = s.rho * q * k
		r      = s.rho * q
		pratio = s.p / r
		eRho   = u[3] / s.rho
		estar  = eRho + (Sstar-s.vn)*(Sstar+pratio)
		phi    = 0.5 * (g - 1.) * s.q2

		dvn    = [4]float64{-s.vn / s.rho, n[0] / s.rho, n[1] / s.rho, 0.}
		dvx    = [4]float64{-s.vx / s.rho, 1. / s.rho, 0., 0.}
		dvy    = [4]float64{-s.vy / s.rho, 0., 1. / s.rho, 0.}
		dp     = [4]float64{phi, -(g - 1.) * s.vx, -(g - 1.) * s.vy, g - 1.}
		dr     = [4]float64{S, -n[0], -n[1], 0.}
		drhos  = [4]float64{k * S, -k * n[0], -k * n[1], 0.}
		deRho  = [4]float64{-eRho / s.rho, 0., 0., 1. / s.rho}
		dprat  [4]float64
		destar [4]float64
	)
	starState(s, u, S, Sstar, n, d.ustar[:])
	for j := 0; j < 4; j++ {
		dprat[j] = (dp[j]*r - s.p*dr[j]) / (r * r)
		destar[j] = deRho[j] - dvn[j]*(Sstar+pratio) + (Sstar-s.vn)*dprat[j]
	}
	for j := 0; j < 4; j++ {
		d.dSame[0*4+j] = drhos[j]
		d.dSame[1*4+j] = drhos[j]*(s.vx+(Sstar-s.vn)*n[0]) + rhos*(dvx[j]-n[0]*dvn[j])
		d.dSame[2*4+j] = drhos[j]*(s.vy+(Sstar-s.vn)*n[1]) + rhos*(dvy[j]-n[1]*dvn[j])
		d.dSame[3*4+j] = drhos[j]*estar + rhos*destar[j]
	}
	var (
		drhosS = rhos * k
	)
	d.dStar[0] = drhosS
	d.dStar[1] = drhosS*(s.vx+(Sstar-s.vn)*n[0]) + rhos*n[0]
	d.dStar[2] = drhosS*(s.vy+(Sstar-s.vn)*n[1]) + rhos*n[1]
	d.dStar[3] = drhosS*estar + rhos*((Sstar+pratio)+(Sstar-s.vn))
	return
}

// contactDerivs returns dSstar/duL and dSstar/duR at frozen SL, SR.
func (fc *Calculator) contactDerivs(sL, sR faceState, SL, SR, Sstar float64, n []float64) (dsl, dsr [4]float64) {
	var (
		g    = fc.Gamma
		phiL = 0.5 * (g - 1.) * sL.q2
		phiR = 0.5 * (g - 1.) * sR.q2
		den  = sL.rho*(SL-sL.vn) - sR.rho*(SR-sR.vn)

		dpL  = [4]float64{phiL, -(g - 1.) * sL.vx, -(g - 1.) * sL.vy, g - 1.}
		dpR  = [4]float64{phiR, -(g - 1.) * sR.vx, -(g - 1.) * sR.vy, g - 1.}
		dmL  = [4]float64{0., n[0], n[1], 0.}
		dmR  = dmL
		dkeL = [4]float64{-sL.vn * sL.vn, 2. * sL.vn * n[0], 2. * sL.vn * n[1], 0.}
		dkeR = [4]float64{-sR.vn * sR.vn, 2. * sR.vn * n[0], 2. * sR.vn * n[1], 0.}
		ddL  = [4]float64{SL, -n[0], -n[1], 0.}
		ddR  = [4]float64{-SR, n[0], n[1], 0.}
	)
	for j := 0; j < 4; j++ {
		var (
			dnL = -dpL[j] + SL*dmL[j] - dkeL[j]
			dnR = dpR[j] - SR*dmR[j] + dkeR[j]
		)
		dsl[j] = (dnL - Sstar*ddL[j]) / den
		dsr[j] = (dnR - Sstar*ddR[j]) / den
	}
	return
}

func (fc *Calculator) HLLCJacobian(uL, uR, n, dfdl, dfdr []float64) {
	var (
		sL, sR        = fc.decompose(uL, n), fc.decompose(uR, n)
		SL, SR, Sstar = fc.hllcSpeeds(sL, sR, n)
	)
	switch {
	case SL >= 0.:
		fc.PhysicalJacobian(uL, n, dfdl)
		for i := range dfdl {
			dfdl[i] = -dfdl[i]
			dfdr[i] = 0.
		}
		return
	case SR < 0.:
		fc.PhysicalJacobian(uR, n, dfdr)
		for i := range dfdl {
			dfdl[i] = 0.
		}
		return
	}
	var (
		dsl, dsr = fc.contactDerivs(sL, sR, SL, SR, Sstar, n)
	)
	if Sstar >= 0. {
		var (
			d = fc.starStateDerivs(sL, uL, SL, Sstar, n)
		)
		fc.PhysicalJacobian(uL, n, dfdl)
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				var (
					del = 0.
				)
				if i == j {
					del = 1.
				}
				dfdl[i*4+j] = -(dfdl[i*4+j] + SL*(d.dSame[i*4+j]+d.dStar[i]*dsl[j]-del))
				dfdr[i*4+j] = SL * d.dStar[i] * dsr[j]
			}
		}
		return
	}
	var (
		d = fc.starStateDerivs(sR, uR, SR, Sstar, n)
	)
	fc.PhysicalJacobian(uR, n, dfdr)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var (
				del = 0.
			)
			if i == j {
				del = 1.
			}
			dfdr[i*4+j] = dfdr[i*4+j] + SR*(d.dSame[i*4+j]+d.dStar[i]*dsr[j]-del)
			dfdl[i*4+j] = -(SR * d.dStar[i] * dsl[j])
		}
	}
}
