package ode

import (
	"fmt"
	"time"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/utils"
	"gonum.org/v1/gonum/floats"
)

// ImplicitDiscretization adds the analytic linearization an implicit march
// needs on top of the residual.
type ImplicitDiscretization interface {
	Discretization
	// Jacobian adds dR/du at u into A on top of whatever diagonal the
	// caller seeded.
	Jacobian(u []float64, A linsolve.BlockMatrix)
}

// SteadyBackwardEuler solves (V/Δt - dR/du) Δu = -R every pseudo-time step
// and applies the correction. With a matrix-free operator the assembled
// matrix still feeds the preconditioner while the Krylov products come from
// residual differencing.
type SteadyBackwardEuler struct {
	disc ImplicitDiscretization
	cfg  SteadySolverConfig
	td   TimingData

	A    linsolve.BlockMatrix
	prec linsolve.Preconditioner
	gm   *linsolve.GMRES
	mf   *linsolve.MatrixFree // nil for matrix-based products

	pmap  *utils.PartitionMap
	res   []float64
	dtm   []float64
	rhs   []float64
	du    []float64
	ubak  []float64
	shift []float64 // A_i/dt_i
	diag  []float64 // one block of scratch
}

func NewSteadyBackwardEuler(disc ImplicitDiscretization, cfg SteadySolverConfig,
	A linsolve.BlockMatrix, prec linsolve.Preconditioner, gm *linsolve.GMRES,
	matrixFree bool) (s *SteadyBackwardEuler) {
	var (
		nc = disc.NumCells()
		nv = disc.NumVars()
		n  = nc * nv
	)
	s = &SteadyBackwardEuler{
		disc:  disc,
		cfg:   cfg,
		A:     A,
		prec:  prec,
		gm:    gm,
		pmap:  utils.NewPartitionMap(utils.DegreeOfParallelism(0), nc),
		res:   make([]float64, n),
		dtm:   make([]float64, nc),
		rhs:   make([]float64, n),
		du:    make([]float64, n),
		ubak:  make([]float64, n),
		shift: make([]float64, nc),
		diag:  make([]float64, nv*nv),
	}
	if matrixFree {
		s.mf = linsolve.NewMatrixFree(func(u, res []float64) {
			disc.Residual(u, res, nil)
		}, nc, nv)
	}
	s.td.NumCells = nc
	s.td.NumThreads = s.pmap.ParallelDegree
	return
}

func (s *SteadyBackwardEuler) Timing() *TimingData { return &s.td }

func (s *SteadyBackwardEuler) Solve(u []float64) (converged bool, err error) {
	var (
		disc     = s.disc
		res0     float64
		relres   = 1.
		interval = s.cfg.LogInterval
		retries  = s.cfg.RetryBudget
		start    = time.Now()
	)
	if interval < 1 {
		interval = 10
	}
	if retries < 1 {
		retries = 10
	}
	hist, _ := newHistory(s.cfg.HistoryFile)
	defer hist.close()

	step := 0
	for ; step < s.cfg.MaxIter; step++ {
		cfl := s.cfg.CFL(step)
		t0 := time.Now()
		disc.Residual(u, s.res, s.dtm)
		s.td.AssemblyWallTime += time.Since(t0)

		resnorm := floats.Norm(s.res, 2)
		if err = checkFinite(resnorm); err != nil {
			s.finish(step, false, start)
			return false, err
		}
		if step == 0 {
			res0 = resnorm
		}
		if res0 > 0. {
			relres = resnorm / res0
		}
		if step%interval == 0 {
			fmt.Printf("  step %6d  CFL %9.3e  res %13.6e\n", step, cfl, relres)
		}
		hist.record(step, cfl, relres)
		if relres < s.cfg.Tol {
			converged = true
			break
		}

		copy(s.ubak, u)
		for attempt := 0; ; attempt++ {
			if err = s.takeStep(u, cfl); err != nil {
				s.finish(step, false, start)
				return false, err
			}
			cerr := disc.CheckState(u)
			if cerr == nil {
				break
			}
			if attempt >= retries {
				s.finish(step, false, start)
				return false, fmt.Errorf("update rejected after %d CFL halvings: %w", retries, cerr)
			}
			copy(u, s.ubak)
			cfl *= 0.5
			fmt.Printf("  step %6d  retrying with CFL %9.3e: %v\n", step, cfl, cerr)
		}

		if s.cfg.StepHook != nil && s.cfg.StepHookInterval > 0 && step%s.cfg.StepHookInterval == 0 {
			s.cfg.StepHook(step, u)
		}
	}
	s.finish(step, converged, start)
	fmt.Printf("  implicit stage done: %d steps, res %13.6e\n", step, relres)
	return converged, nil
}

// takeStep assembles the implicit system at the current residual and applies
// the resulting correction to u.
func (s *SteadyBackwardEuler) takeStep(u []float64, cfl float64) error {
	var (
		disc = s.disc
		nv   = disc.NumVars()
		area = disc.Mesh().Area
	)
	t0 := time.Now()
	s.A.Zero()
	for i := 0; i < disc.NumCells(); i++ {
		s.shift[i] = area[i] / (cfl * s.dtm[i])
		for k := range s.diag {
			s.diag[k] = 0.
		}
		for k := 0; k < nv; k++ {
			s.diag[k*nv+k] = s.shift[i]
		}
		s.A.UpdateDiagBlock(i, s.diag)
	}
	disc.Jacobian(u, s.A)
	s.td.AssemblyWallTime += time.Since(t0)

	t0 = time.Now()
	if err := s.prec.Build(s.A); err != nil {
		return fmt.Errorf("preconditioner: %w", err)
	}
	s.td.PrecWallTime += time.Since(t0)

	for i := range s.rhs {
		s.rhs[i] = -s.res[i]
	}
	var op linsolve.LinearOperator = linsolve.AsOperator(s.A)
	if s.mf != nil {
		s.mf.SetBase(u, s.res)
		s.mf.SetShift(s.shift)
		op = s.mf
	}
	t0 = time.Now()
	iters, err := s.gm.Solve(op, s.prec, s.rhs, s.du)
	s.td.LinSolveWallTime += time.Since(t0)
	if err != nil {
		return fmt.Errorf("linear solve: %w", err)
	}
	s.td.TotalLinIters += iters

	s.pmap.RunParallel(func(imin, imax int) {
		for i := imin * nv; i < imax*nv; i++ {
			u[i] += s.du[i]
		}
	})
	return nil
}

func (s *SteadyBackwardEuler) finish(steps int, converged bool, start time.Time) {
	s.td.NumTimesteps = steps
	s.td.Converged = converged
	s.td.OdeWallTime = time.Since(start)
	if steps > 0 {
		s.td.AvgLinIters = float64(s.td.TotalLinIters) / float64(steps)
	}
}
