package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/leshihua/FVENS/physics"
)

// BoundaryRule computes the ghost state ug closing a boundary face from the
// interior state ul, the outward unit normal and the face midpoint.
type BoundaryRule interface {
	Ghost(ul []float64, n, mid [2]float64, ug []float64)
}

// BCSpec binds one boundary marker to a rule and its setpoints. Temperatures
// and velocities are nondimensional (wall temperature divided by the free
// stream temperature, wall speed by the free stream speed).
type BCSpec struct {
	Type   string
	Marker int

	WallTemperature float64
	WallVelocity    float64 // tangential, along (-ny, nx)
	WallPressure    float64

	// Inner-radius parameters of the supersonic vortex inflow.
	VortexMach    float64
	VortexRadius  float64
	VortexDensity float64
}

// NewBoundaryRule maps a BCSpec to its rule. The characteristic rule is
// untested against reference data and must be enabled explicitly.
func NewBoundaryRule(spec BCSpec, fs *physics.FreeStream, experimental bool) (BoundaryRule, error) {
	switch strings.ToLower(spec.Type) {
	case "slipwall":
		return &slipWall{}, nil
	case "adiabaticwall":
		return &adiabaticWall{gas: fs.Gas, vwall: spec.WallVelocity}, nil
	case "isothermalwall":
		return &isothermalWall{gas: fs.Gas, vwall: spec.WallVelocity, twall: spec.WallTemperature}, nil
	case "isothermalpressurewall":
		return &isothermalPressureWall{
			gas:   fs.Gas,
			vwall: spec.WallVelocity,
			twall: spec.WallTemperature,
			pwall: spec.WallPressure,
		}, nil
	case "farfield", "inflowoutflow":
		return &farfield{fs: fs}, nil
	case "characteristic":
		if !experimental {
			return nil, fmt.Errorf("characteristic boundary on marker %d needs the experimental switch", spec.Marker)
		}
		return &characteristic{fs: fs}, nil
	case "vortexinflow":
		r := &vortexInflow{
			gamma: fs.Gamma,
			mi:    spec.VortexMach,
			ri:    spec.VortexRadius,
			rhoi:  spec.VortexDensity,
		}
		if r.mi == 0. {
			r.mi, r.ri, r.rhoi = 2.25, 1., 1.
		}
		return r, nil
	case "periodic":
		// resolved by the mesh pairing, no ghost rule
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown boundary type %q on marker %d", spec.Type, spec.Marker)
	}
}

// slipWall mirrors the normal momentum and keeps density and energy.
type slipWall struct{}

func (b *slipWall) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	rvn := ul[1]*n[0] + ul[2]*n[1]
	ug[0] = ul[0]
	ug[1] = ul[1] - 2.*rvn*n[0]
	ug[2] = ul[2] - 2.*rvn*n[1]
	ug[3] = ul[3]
}

// adiabaticWall reverses the velocity about the wall speed and keeps the
// interior temperature.
type adiabaticWall struct {
	gas   physics.Gas
	vwall float64
}

func (b *adiabaticWall) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	var (
		vgx, vgy = wallGhostVelocity(ul, n, b.vwall)
		p        = b.gas.Pressure(ul)
		T        = b.gas.Temperature(ul[0], p)
	)
	ug[0] = ul[0]
	ug[1] = ul[0] * vgx
	ug[2] = ul[0] * vgy
	ug[3] = b.gas.Energy(ul[0], vgx, vgy, T)
}

type isothermalWall struct {
	gas   physics.Gas
	vwall float64
	twall float64
}

func (b *isothermalWall) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	vgx, vgy := wallGhostVelocity(ul, n, b.vwall)
	ug[0] = ul[0]
	ug[1] = ul[0] * vgx
	ug[2] = ul[0] * vgy
	ug[3] = b.gas.Energy(ul[0], vgx, vgy, b.twall)
}

// isothermalPressureWall prescribes both wall temperature and pressure, so
// the ghost density follows from the equation of state.
type isothermalPressureWall struct {
	gas          physics.Gas
	vwall        float64
	twall, pwall float64
}

func (b *isothermalPressureWall) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	var (
		vgx, vgy = wallGhostVelocity(ul, n, b.vwall)
		rho      = b.gas.Gamma * b.gas.Minf * b.gas.Minf * b.pwall / b.twall
	)
	ug[0] = rho
	ug[1] = rho * vgx
	ug[2] = rho * vgy
	ug[3] = b.pwall/(b.gas.Gamma-1.) + 0.5*rho*(vgx*vgx+vgy*vgy)
}

func wallGhostVelocity(ul []float64, n [2]float64, vwall float64) (vgx, vgy float64) {
	var (
		wx = -vwall * n[1]
		wy = vwall * n[0]
	)
	vgx = 2.*wx - ul[1]/ul[0]
	vgy = 2.*wy - ul[2]/ul[0]
	return
}

// farfield imposes the free stream unless the flow leaves supersonically, in
// which case everything extrapolates from the interior.
type farfield struct {
	fs *physics.FreeStream
}

func (b *farfield) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	var (
		vn = (ul[1]*n[0] + ul[2]*n[1]) / ul[0]
		p  = b.fs.Pressure(ul)
		c  = b.fs.SoundSpeed(ul[0], p)
	)
	if vn/c < 1. {
		copy(ug, b.fs.Qinf[:])
		return
	}
	copy(ug, ul)
}

// characteristic selects the ghost state by the interior normal Mach number:
// free stream for supersonic inflow, pressure-coupled partial states in the
// subsonic range, pure extrapolation for supersonic outflow.
type characteristic struct {
	fs *physics.FreeStream
}

func (b *characteristic) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	var (
		vn   = (ul[1]*n[0] + ul[2]*n[1]) / ul[0]
		p    = b.fs.Pressure(ul)
		c    = b.fs.SoundSpeed(ul[0], p)
		mn   = vn / c
		qinf = b.fs.Qinf
	)
	switch {
	case mn <= -1.:
		copy(ug, qinf[:])
	case mn < 0.:
		// subsonic inflow: free stream carried in, interior pressure
		copy(ug, qinf[:3])
		ug[3] = p/(b.fs.Gamma-1.) + 0.5*(qinf[1]*qinf[1]+qinf[2]*qinf[2])/qinf[0]
	case mn < 1.:
		// subsonic outflow: interior carried out, free stream pressure
		copy(ug, ul[:3])
		ug[3] = b.fs.Pinf/(b.fs.Gamma-1.) + 0.5*(ul[1]*ul[1]+ul[2]*ul[2])/ul[0]
	default:
		copy(ug, ul)
	}
}

// vortexInflow imposes the analytic supersonic vortex state at the face
// midpoint radius.
type vortexInflow struct {
	gamma, mi, ri, rhoi float64
}

func (b *vortexInflow) Ghost(ul []float64, n, mid [2]float64, ug []float64) {
	r := math.Hypot(mid[0], mid[1])
	physics.SupersonicVortexState(b.gamma, b.mi, b.ri, b.rhoi, r, ug)
}
