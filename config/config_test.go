package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAMLCase(t *testing.T) {
	var fileInput = []byte(`
io:
  mesh_file: "cyl.msh"
  solution_output_file: "cyl.vtu"
  log_file_prefix: "cyl"
  convergence_history_required: true
flow_conditions:
  flow_type: euler
  adiabatic_index: 1.4
  angle_of_attack: 2.0
  freestream_Mach_number: 0.38
bc:
  boundaries:
    - type: slipwall
      marker: 2
    - type: farfield
      marker: 4
  listof_output_wall_boundaries: [2]
  surface_output_file_prefix: "cyl-surf"
spatial_discretization:
  inviscid_flux: HLLC
  gradient_method: greenGauss
  limiter: Venkatakrishnan
  limiter_parameter: 6.0
pseudotime:
  pseudotime_stepping_type: implicit
  main:
    cfl_min: 100.
    cfl_max: 2000.
    tolerance: 1.e-5
    max_timesteps: 500
    ramp_start: 20
    ramp_end: 100
  initialization:
    cfl_min: 25.
    cfl_max: 250.
    tolerance: 1.e-1
    max_timesteps: 250
Jacobian_inviscid_flux: LLF
`)
	opts, err := Parse(fileInput)
	require.NoError(t, err)
	assert.Equal(t, "cyl.msh", opts.IO.MeshFile)
	assert.Equal(t, "HLLC", opts.Spatial.InviscidFlux)
	assert.Equal(t, "LLF", opts.JacobianInviscidFlux)
	assert.Equal(t, 0.38, opts.FlowConditions.FreestreamMachNumber)
	require.Len(t, opts.BC.Boundaries, 2)
	assert.Equal(t, 4, opts.BC.Boundaries[1].Marker)
	assert.True(t, opts.HasStarter())
	assert.True(t, opts.Implicit())
	assert.Equal(t, 250, opts.Pseudotime.Initialization.MaxTimesteps)
	// defaults survive a partial document
	assert.Equal(t, 0.72, opts.FlowConditions.PrandtlNumber)
	assert.Equal(t, "SGS", opts.Pseudotime.Preconditioner)

	pcfg := opts.PhysicsConfig()
	assert.False(t, pcfg.Viscous)
	assert.InDelta(t, 2.0*3.14159265/180., pcfg.Alpha, 1.e-6)
	require.Len(t, pcfg.BCs, 2)
	assert.Equal(t, "slipwall", pcfg.BCs[0].Type)

	ncfg := opts.NumericsConfig(false)
	assert.True(t, ncfg.SecondOrder)
	assert.Equal(t, "Venkatakrishnan", ncfg.Limiter)
	starter := opts.NumericsConfig(true)
	assert.Equal(t, "none", starter.Gradient)
	assert.Equal(t, "HLLC", starter.Flux)
}

func TestParseRejectsBadOptions(t *testing.T) {
	_, err := Parse([]byte(`
flow_conditions: {flow_type: euler, freestream_Mach_number: 0.5}
time: {simulation_type: unsteady}
bc: {boundaries: [{type: farfield, marker: 1}]}
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
flow_conditions: {flow_type: navierstokes, freestream_Mach_number: 0.2}
bc: {boundaries: [{type: farfield, marker: 1}]}
`))
	assert.Error(t, err, "navierstokes without Reynolds number")

	_, err = Parse([]byte(`
flow_conditions: {freestream_Mach_number: 0.5}
`))
	assert.Error(t, err, "no boundaries")
}

func TestControlFileWithInclude(t *testing.T) {
	dir := t.TempDir()
	common := filepath.Join(dir, "flow.ctrl")
	require.NoError(t, os.WriteFile(common, []byte(`
flow_conditions {
	flow_type euler ;; inviscid
	adiabatic_index 1.4
	angle_of_attack 0.0
	freestream_Mach_number 0.85
}
`), 0644))
	main := filepath.Join(dir, "case.control")
	require.NoError(t, os.WriteFile(main, []byte(`
;; transonic cylinder case
io {
	mesh_file "from-cmd"
	log_file_prefix "cyl"
}
#include "flow.ctrl"
bc {
	bc0 {
		type slipwall
		marker 2
	}
	bc1 {
		type farfield
		marker 4
	}
	listof_output_wall_boundaries 2 3
	surface_output_file_prefix "cyl-surf"
}
spatial_discretization {
	inviscid_flux Roe
	gradient_method leastSquares
	limiter none
}
pseudotime {
	pseudotime_stepping_type implicit
	main {
		cfl_min 100.0
		cfl_max 2000.0
		tolerance 1e-5
		max_timesteps 500
	}
}
Jacobian_inviscid_flux consistent
`), 0644))

	opts, err := ReadControlFile(main)
	require.NoError(t, err)
	assert.Equal(t, "from-cmd", opts.IO.MeshFile)
	assert.Equal(t, 0.85, opts.FlowConditions.FreestreamMachNumber)
	require.Len(t, opts.BC.Boundaries, 2)
	assert.Equal(t, "slipwall", opts.BC.Boundaries[0].Type)
	assert.Equal(t, 2, opts.BC.Boundaries[0].Marker)
	assert.Equal(t, "farfield", opts.BC.Boundaries[1].Type)
	assert.Equal(t, []int{2, 3}, opts.BC.OutputWallBoundaries)
	assert.Equal(t, "Roe", opts.Spatial.InviscidFlux)
	assert.Equal(t, 1.e-5, opts.Pseudotime.Main.Tolerance)
	assert.False(t, opts.HasStarter())
}

func TestControlFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.control")
	require.NoError(t, os.WriteFile(bad, []byte("io {\n mesh_file \"a.msh\"\n"), 0644))
	_, err := ReadControlFile(bad)
	assert.Error(t, err, "unclosed block")

	require.NoError(t, os.WriteFile(bad, []byte("#include \"nope.ctrl\"\n"), 0644))
	_, err = ReadControlFile(bad)
	assert.Error(t, err, "missing include")
}
