package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ghodss/yaml"
)

// Options is the full case description read from a YAML case file or a
// legacy control file. Field names follow the control file keys.
type Options struct {
	IO             IOOptions       `json:"io"`
	FlowConditions FlowConditions  `json:"flow_conditions"`
	BC             BCOptions       `json:"bc"`
	Time           TimeOptions     `json:"time"`
	Spatial        SpatialOptions  `json:"spatial_discretization"`
	Pseudotime     PseudotimeBlock `json:"pseudotime"`

	JacobianInviscidFlux string `json:"Jacobian_inviscid_flux"`
}

type IOOptions struct {
	MeshFile                   string `json:"mesh_file"`
	SolutionOutputFile         string `json:"solution_output_file"`
	LogFilePrefix              string `json:"log_file_prefix"`
	ConvergenceHistoryRequired bool   `json:"convergence_history_required"`
}

type FlowConditions struct {
	FlowType                 string  `json:"flow_type"` // euler or navierstokes
	AdiabaticIndex           float64 `json:"adiabatic_index"`
	AngleOfAttack            float64 `json:"angle_of_attack"` // degrees
	FreestreamMachNumber     float64 `json:"freestream_Mach_number"`
	FreestreamReynoldsNumber float64 `json:"freestream_Reynolds_number"`
	FreestreamTemperature    float64 `json:"freestream_temperature"`
	PrandtlNumber            float64 `json:"Prandtl_number"`
	UseConstantViscosity     bool    `json:"use_constant_viscosity"`
}

// Boundary binds one mesh marker to a boundary rule and its setpoints.
type Boundary struct {
	Type   string `json:"type"`
	Marker int    `json:"marker"`

	WallTemperature float64 `json:"wall_temperature"`
	WallVelocity    float64 `json:"wall_velocity"`
	WallPressure    float64 `json:"wall_pressure"`

	VortexMach    float64 `json:"vortex_Mach_number"`
	VortexRadius  float64 `json:"vortex_inner_radius"`
	VortexDensity float64 `json:"vortex_inner_density"`
}

type PeriodicPair struct {
	Marker1 int    `json:"marker1"`
	Marker2 int    `json:"marker2"`
	Axis    string `json:"axis"`
}

type BCOptions struct {
	Boundaries []Boundary    `json:"boundaries"`
	Periodic   *PeriodicPair `json:"periodic"`

	OutputWallBoundaries    []int  `json:"listof_output_wall_boundaries"`
	OutputOtherBoundaries   []int  `json:"listof_output_other_boundaries"`
	SurfaceOutputFilePrefix string `json:"surface_output_file_prefix"`
}

type TimeOptions struct {
	SimulationType string `json:"simulation_type"` // steady only
}

type SpatialOptions struct {
	InviscidFlux         string  `json:"inviscid_flux"`
	GradientMethod       string  `json:"gradient_method"`
	Limiter              string  `json:"limiter"`
	LimiterParameter     float64 `json:"limiter_parameter"`
	ReconstructPrimitive bool    `json:"reconstruct_primitive"`
	GhostCellPolicy      string  `json:"ghost_cell_policy"`
	ExperimentalBCs      bool    `json:"experimental_boundary_conditions"`
	InitVortex           bool    `json:"initialize_vortex"`
}

// Stage holds the pseudo-time controls of one nonlinear stage.
type Stage struct {
	CFLMin       float64 `json:"cfl_min"`
	CFLMax       float64 `json:"cfl_max"`
	Tolerance    float64 `json:"tolerance"`
	MaxTimesteps int     `json:"max_timesteps"`
	RampStart    int     `json:"ramp_start"`
	RampEnd      int     `json:"ramp_end"`
}

type LinearSolverOptions struct {
	Restart       int     `json:"restart"`
	MaxIterations int     `json:"max_iterations"`
	Tolerance     float64 `json:"tolerance"`
	NBuildSweeps  int     `json:"nbuildsweeps"`
	NApplySweeps  int     `json:"napplysweeps"`
}

type PseudotimeBlock struct {
	SteppingType   string              `json:"pseudotime_stepping_type"` // explicit or implicit
	Main           Stage               `json:"main"`
	Initialization *Stage              `json:"initialization"`
	Preconditioner string              `json:"preconditioner"`
	MatrixFree     bool                `json:"matrix_free"`
	MatrixStorage  string              `json:"matrix_storage"` // point (face addressed) or csr
	LinearSolver   LinearSolverOptions `json:"linear_solver"`
	SmoothingBeta  float64             `json:"residual_smoothing_parameter"`
}

// Defaults returns an Options with the values a case file may omit.
func Defaults() (opts Options) {
	opts.FlowConditions.FlowType = "euler"
	opts.FlowConditions.AdiabaticIndex = 1.4
	opts.FlowConditions.PrandtlNumber = 0.72
	opts.FlowConditions.FreestreamTemperature = 288.15
	opts.Time.SimulationType = "steady"
	opts.Spatial.InviscidFlux = "Roe"
	opts.Spatial.GradientMethod = "leastSquares"
	opts.Spatial.Limiter = "none"
	opts.Spatial.LimiterParameter = 4.
	opts.Pseudotime.SteppingType = "implicit"
	opts.Pseudotime.Main = Stage{CFLMin: 100., CFLMax: 2000., Tolerance: 1.e-5,
		MaxTimesteps: 500, RampStart: 20, RampEnd: 100}
	opts.Pseudotime.Preconditioner = "SGS"
	opts.Pseudotime.MatrixStorage = "point"
	opts.Pseudotime.LinearSolver = LinearSolverOptions{
		Restart: 30, MaxIterations: 200, Tolerance: 1.e-4,
		NBuildSweeps: 1, NApplySweeps: 1,
	}
	opts.JacobianInviscidFlux = "consistent"
	return
}

// Read loads a case file, YAML or legacy control-file syntax depending on the
// extension (.control/.ctrl selects the legacy reader).
func Read(filename string) (opts Options, err error) {
	if strings.HasSuffix(filename, ".control") || strings.HasSuffix(filename, ".ctrl") {
		return ReadControlFile(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return opts, fmt.Errorf("cannot open case file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML case document over the defaults.
func Parse(data []byte) (opts Options, err error) {
	opts = Defaults()
	if err = yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("bad case file: %w", err)
	}
	err = opts.Validate()
	return
}

// Validate rejects option values the solver has no branch for. Unknown flux,
// gradient and limiter names are caught later by their factories; here we
// check the cross-field constraints.
func (opts *Options) Validate() error {
	switch strings.ToLower(opts.Time.SimulationType) {
	case "", "steady":
	case "unsteady":
		return fmt.Errorf("unsteady simulation is not supported")
	default:
		return fmt.Errorf("unknown simulation_type %q", opts.Time.SimulationType)
	}
	switch strings.ToLower(opts.FlowConditions.FlowType) {
	case "euler", "navierstokes":
	default:
		return fmt.Errorf("unknown flow_type %q", opts.FlowConditions.FlowType)
	}
	switch strings.ToLower(opts.Pseudotime.SteppingType) {
	case "explicit", "implicit":
	default:
		return fmt.Errorf("unknown pseudotime_stepping_type %q", opts.Pseudotime.SteppingType)
	}
	if opts.FlowConditions.FreestreamMachNumber <= 0. {
		return fmt.Errorf("freestream_Mach_number must be positive")
	}
	if strings.ToLower(opts.FlowConditions.FlowType) == "navierstokes" &&
		opts.FlowConditions.FreestreamReynoldsNumber <= 0. {
		return fmt.Errorf("navierstokes needs a positive freestream_Reynolds_number")
	}
	if len(opts.BC.Boundaries) == 0 && opts.BC.Periodic == nil {
		return fmt.Errorf("no boundary conditions given")
	}
	if opts.Pseudotime.MatrixFree && strings.EqualFold(opts.Pseudotime.SteppingType, "explicit") {
		return fmt.Errorf("matrix_free applies to implicit stepping only")
	}
	return nil
}
