package physics

import "math"

// Isentropic supersonic vortex of Krivodonova and Berger, "High-order
// accurate implementation of solid wall boundary conditions in curved
// geometries", JCP 211, 2006. The flow is circular between two concentric
// walls; density and Mach number are prescribed at the inner radius.

// SupersonicVortexState evaluates the analytic conserved state at radius r
// for inner-radius conditions (Mi, ri, rhoi).
func SupersonicVortexState(gamma, Mi, ri, rhoi, r float64, u []float64) {
	var (
		pratio = 1. + (gamma-1.)*0.5*Mi*Mi*(1.-ri*ri/(r*r))
		rho    = rhoi * math.Pow(pratio, 1./(gamma-1.))
		ci     = math.Sqrt(math.Pow(rhoi, gamma-1.))
		v      = ci * Mi / r
		p      = math.Pow(rho, gamma) / gamma
	)
	u[0] = rho
	u[1] = rho * v
	u[2] = 0.
	u[3] = p/(gamma-1.) + 0.5*rho*v*v
}

// SupersonicVortexVelocity gives the circular initial velocity field used to
// start the vortex case: speed vmag, direction tangential to circles about
// the origin.
func SupersonicVortexVelocity(vmag, x, y float64) (vx, vy float64) {
	var (
		theta = math.Atan2(y, x) - math.Pi/2.
	)
	vx = vmag * math.Cos(theta)
	vy = vmag * math.Sin(theta)
	return
}
