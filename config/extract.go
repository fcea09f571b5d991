package config

import (
	"math"
	"strings"

	"github.com/leshihua/FVENS/spatial"
)

// PhysicsConfig extracts the gas, free-stream and boundary setup for the
// spatial discretization. The angle of attack converts to radians here.
func (opts *Options) PhysicsConfig() (pcfg spatial.FlowPhysicsConfig) {
	fc := opts.FlowConditions
	pcfg = spatial.FlowPhysicsConfig{
		Gamma:     fc.AdiabaticIndex,
		Minf:      fc.FreestreamMachNumber,
		Alpha:     fc.AngleOfAttack * math.Pi / 180.,
		Viscous:   strings.EqualFold(fc.FlowType, "navierstokes"),
		Reinf:     fc.FreestreamReynoldsNumber,
		Tinf:      fc.FreestreamTemperature,
		Prandtl:   fc.PrandtlNumber,
		ConstVisc: fc.UseConstantViscosity,
	}
	for _, b := range opts.BC.Boundaries {
		pcfg.BCs = append(pcfg.BCs, spatial.BCSpec{
			Type:            b.Type,
			Marker:          b.Marker,
			WallTemperature: b.WallTemperature,
			WallVelocity:    b.WallVelocity,
			WallPressure:    b.WallPressure,
			VortexMach:      b.VortexMach,
			VortexRadius:    b.VortexRadius,
			VortexDensity:   b.VortexDensity,
		})
	}
	return
}

// NumericsConfig extracts the discretization choices. firstOrder overrides
// the reconstruction, which is how the starter stage is configured.
func (opts *Options) NumericsConfig(firstOrder bool) (ncfg spatial.FlowNumericsConfig) {
	sp := opts.Spatial
	ncfg = spatial.FlowNumericsConfig{
		Flux:                 sp.InviscidFlux,
		JacobianFlux:         opts.JacobianInviscidFlux,
		Gradient:             sp.GradientMethod,
		Limiter:              sp.Limiter,
		LimiterParam:         sp.LimiterParameter,
		SecondOrder:          !firstOrder,
		ReconstructPrimitive: sp.ReconstructPrimitive,
		GhostCellPolicy:      sp.GhostCellPolicy,
		Experimental:         sp.ExperimentalBCs,
		InitVortex:           sp.InitVortex,
	}
	if firstOrder {
		ncfg.Gradient = "none"
		ncfg.Limiter = "none"
	}
	if ncfg.Limiter == "" {
		ncfg.Limiter = "none"
	}
	if ncfg.Gradient == "" {
		ncfg.Gradient = "none"
	}
	return
}

// HasStarter reports whether an initialization stage is configured.
func (opts *Options) HasStarter() bool {
	return opts.Pseudotime.Initialization != nil &&
		opts.Pseudotime.Initialization.MaxTimesteps > 0
}

// Implicit reports implicit pseudo-time stepping.
func (opts *Options) Implicit() bool {
	return strings.EqualFold(opts.Pseudotime.SteppingType, "implicit")
}
