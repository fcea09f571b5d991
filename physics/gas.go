package physics

import (
	"math"
)

// NVars is the number of conserved variables (rho, rho*vx, rho*vy, rho*E).
const NVars = 4

// Sutherland constant in Kelvin.
const sutherlandS = 110.5

// Gas holds the nondimensional ideal-gas parameters. All state relations are
// pure functions of the conserved tuple. Pressure and temperature follow the
// free-stream nondimensionalization p = rho*T/(gamma*Minf^2), with the
// free-stream density and speed both equal to one.
type Gas struct {
	Gamma float64 // adiabatic index
	Minf  float64 // free stream Mach number
	Tinf  float64 // free stream temperature (K), used by Sutherland's law
	Reinf float64 // free stream Reynolds number (viscous flows)
	Pr    float64 // Prandtl number (viscous flows)
	// ConstVisc selects constant nondimensional viscosity instead of
	// Sutherland's law
	ConstVisc bool
}

func (gs Gas) Pressure(u []float64) (p float64) {
	p = (gs.Gamma - 1.) * (u[3] - 0.5*(u[1]*u[1]+u[2]*u[2])/u[0])
	return
}

func (gs Gas) Temperature(rho, p float64) (T float64) {
	T = gs.Gamma * gs.Minf * gs.Minf * p / rho
	return
}

func (gs Gas) PressureFromTemperature(rho, T float64) (p float64) {
	p = rho * T / (gs.Gamma * gs.Minf * gs.Minf)
	return
}

func (gs Gas) SoundSpeed(rho, p float64) (c float64) {
	c = math.Sqrt(gs.Gamma * p / rho)
	return
}

// Entropy is the usual p / rho^gamma.
func (gs Gas) Entropy(u []float64) (s float64) {
	s = gs.Pressure(u) / math.Pow(u[0], gs.Gamma)
	return
}

// Energy returns rho*E from density, velocity and static temperature.
func (gs Gas) Energy(rho, vx, vy, T float64) (rhoE float64) {
	p := gs.PressureFromTemperature(rho, T)
	rhoE = p/(gs.Gamma-1.) + 0.5*rho*(vx*vx+vy*vy)
	return
}

// ConservedToPrimitive converts u to (rho, vx, vy, p) in prim.
func (gs Gas) ConservedToPrimitive(u, prim []float64) {
	prim[0] = u[0]
	prim[1] = u[1] / u[0]
	prim[2] = u[2] / u[0]
	prim[3] = gs.Pressure(u)
}

// PrimitiveToConserved converts (rho, vx, vy, p) back to the conserved tuple.
func (gs Gas) PrimitiveToConserved(prim, u []float64) {
	u[0] = prim[0]
	u[1] = prim[0] * prim[1]
	u[2] = prim[0] * prim[2]
	u[3] = prim[3]/(gs.Gamma-1.) + 0.5*prim[0]*(prim[1]*prim[1]+prim[2]*prim[2])
}

// Viscosity evaluates the nondimensional dynamic viscosity at nondimensional
// temperature T by Sutherland's law, normalized so mu(1) = 1.
func (gs Gas) Viscosity(T float64) (mu float64) {
	if gs.ConstVisc {
		mu = 1.
		return
	}
	var (
		s = sutherlandS / gs.Tinf
	)
	mu = math.Pow(T, 1.5) * (1. + s) / (T + s)
	return
}

// ThermalConductivityCoeff is the factor k such that the conductive heat flux
// is (mu*k/Re) * grad T.
func (gs Gas) ThermalConductivityCoeff() (k float64) {
	k = 1. / ((gs.Gamma - 1.) * gs.Minf * gs.Minf * gs.Pr)
	return
}

// FreeStream carries the nondimensional reference state: unit density, unit
// speed at angle Alpha, and pressure set by the Mach number.
type FreeStream struct {
	Gas
	Alpha float64 // angle of attack in radians
	Qinf  [4]float64
	Pinf  float64
	Cinf  float64
}

func NewFreeStream(minf, gamma, alpha float64) (fs *FreeStream) {
	var (
		pinf = 1. / (gamma * minf * minf)
	)
	fs = &FreeStream{
		Gas:   Gas{Gamma: gamma, Minf: minf},
		Alpha: alpha,
		Pinf:  pinf,
		Cinf:  math.Sqrt(gamma * pinf),
	}
	fs.Qinf = [4]float64{
		1.,
		math.Cos(alpha),
		math.Sin(alpha),
		pinf/(gamma-1.) + 0.5,
	}
	return
}
