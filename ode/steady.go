package ode

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/leshihua/FVENS/mesh"
)

// Discretization is the spatial operator a steady solver marches to R(u)=0.
// The flow and scalar-diffusion finite volume schemes both satisfy it.
type Discretization interface {
	NumCells() int
	NumVars() int
	Mesh() *mesh.Mesh
	InitialState(u []float64)
	// CheckState reports nonphysical entries after an update.
	CheckState(u []float64) error
	// Residual fills res with R(u); dtm, when non-nil, receives the local
	// time step allowed by the wave speed integrals.
	Residual(u, res, dtm []float64)
}

// SteadySolverConfig controls one nonlinear stage.
type SteadySolverConfig struct {
	CFLMin, CFLMax       float64
	RampStart, RampEnd   int
	Tol                  float64
	MaxIter              int
	LogInterval          int     // console report stride, 0 means every 10
	HistoryFile          string  // .tlog path, empty disables
	SmoothingBeta        float64 // explicit residual smoothing strength
	NApplySweeps         int     // Jacobi sweeps per smoothing application
	RetryBudget          int     // CFL halvings allowed on a nonphysical update
	StepHook             func(step int, u []float64)
	StepHookInterval     int
}

// CFL evaluates the linear ramp at step k.
func (cfg *SteadySolverConfig) CFL(k int) float64 {
	switch {
	case k < cfg.RampStart || cfg.RampEnd <= cfg.RampStart:
		if cfg.RampEnd <= cfg.RampStart && k >= cfg.RampEnd {
			return cfg.CFLMax
		}
		return cfg.CFLMin
	case k >= cfg.RampEnd:
		return cfg.CFLMax
	default:
		frac := float64(k-cfg.RampStart) / float64(cfg.RampEnd-cfg.RampStart)
		return cfg.CFLMin + frac*(cfg.CFLMax-cfg.CFLMin)
	}
}

// TimingData accumulates the cost breakdown of one stage.
type TimingData struct {
	NumCells     int
	NumThreads   int
	NumTimesteps int

	TotalLinIters int
	AvgLinIters   float64

	OdeWallTime      time.Duration
	AssemblyWallTime time.Duration
	PrecWallTime     time.Duration
	LinSolveWallTime time.Duration

	Converged bool
}

func (td *TimingData) Print() {
	fmt.Printf("Steady solve: %d cells, %d threads, %d steps, converged %v\n",
		td.NumCells, td.NumThreads, td.NumTimesteps, td.Converged)
	fmt.Printf("  wall time %.3fs (assembly %.3fs, preconditioner %.3fs, linear solve %.3fs)\n",
		td.OdeWallTime.Seconds(), td.AssemblyWallTime.Seconds(),
		td.PrecWallTime.Seconds(), td.LinSolveWallTime.Seconds())
	if td.TotalLinIters > 0 {
		fmt.Printf("  linear iterations: %d total, %.1f per step\n",
			td.TotalLinIters, td.AvgLinIters)
	}
}

// SteadySolver is one nonlinear stage. Solve marches u in place and reports
// whether the residual tolerance was met; errors are fatal numerics failures.
type SteadySolver interface {
	Solve(u []float64) (converged bool, err error)
	Timing() *TimingData
}

// State of the steady driver.
type State int

const (
	Idle State = iota
	StarterRunning
	MainRunning
	Converged
	Diverged
)

func (s State) String() string {
	return [...]string{"idle", "starter running", "main running", "converged", "diverged"}[s]
}

// Driver stages a loose-tolerance starter solve before the main solve, the
// continuation strategy the steady solver uses for difficult start-ups.
type Driver struct {
	Starter SteadySolver // may be nil
	Main    SteadySolver

	state State
}

func (d *Driver) State() State { return d.state }

// Solve runs the configured stages on u. A starter stage that merely runs out
// of iterations still hands its state to the main stage; only a numerics
// failure aborts. Main-stage max_iter exhaustion converges with a warning.
func (d *Driver) Solve(u []float64) error {
	if d.Starter != nil {
		d.state = StarterRunning
		fmt.Printf("Steady driver: starter stage\n")
		if _, err := d.Starter.Solve(u); err != nil {
			d.state = Diverged
			return fmt.Errorf("starter stage: %w", err)
		}
	}
	d.state = MainRunning
	fmt.Printf("Steady driver: main stage\n")
	converged, err := d.Main.Solve(u)
	if err != nil {
		d.state = Diverged
		return fmt.Errorf("main stage: %w", err)
	}
	d.state = Converged
	if !converged {
		fmt.Printf("Steady driver: WARNING not converged within the iteration budget\n")
	}
	return nil
}

// history streams the residual log to a .tlog file.
type history struct {
	f     *os.File
	start time.Time
}

func newHistory(path string) (h *history, err error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		// not critical: warn and run without a history file
		fmt.Printf("WARNING cannot open history file %s: %v\n", path, err)
		return nil, nil
	}
	fmt.Fprintf(f, "# step          CFL    ||R||/||R0||    wall_time\n")
	return &history{f: f, start: time.Now()}, nil
}

func (h *history) record(step int, cfl, relres float64) {
	if h == nil {
		return
	}
	fmt.Fprintf(h.f, "%6d  %11.4e  %13.6e  %11.4e\n",
		step, cfl, relres, time.Since(h.start).Seconds())
}

func (h *history) close() {
	if h != nil {
		h.f.Close()
	}
}

// checkFinite guards the nonlinear loop against NaN or Inf residuals.
func checkFinite(norm float64) error {
	if math.IsNaN(norm) || math.IsInf(norm, 0) {
		return fmt.Errorf("residual norm is %v", norm)
	}
	return nil
}
