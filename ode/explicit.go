package ode

import (
	"fmt"
	"time"

	"github.com/leshihua/FVENS/utils"
	"gonum.org/v1/gonum/floats"
)

// SteadyForwardEuler marches u by explicit local time stepping,
//
//	u_i <- u_i - (CFL Δt_i / A_i) R_i,
//
// with optional implicit residual smoothing (1+βL)R̃ = R applied by point
// Jacobi sweeps over the cell adjacency before the update.
type SteadyForwardEuler struct {
	disc Discretization
	cfg  SteadySolverConfig
	td   TimingData

	pmap *utils.PartitionMap
	res  []float64
	dtm  []float64

	// cell neighbor lists for residual smoothing
	nbrs [][]int
	rs0  []float64
	rs1  []float64
}

func NewSteadyForwardEuler(disc Discretization, cfg SteadySolverConfig) (s *SteadyForwardEuler) {
	var (
		n = disc.NumCells() * disc.NumVars()
	)
	s = &SteadyForwardEuler{
		disc: disc,
		cfg:  cfg,
		pmap: utils.NewPartitionMap(utils.DegreeOfParallelism(0), disc.NumCells()),
		res:  make([]float64, n),
		dtm:  make([]float64, disc.NumCells()),
	}
	s.td.NumCells = disc.NumCells()
	s.td.NumThreads = s.pmap.ParallelDegree
	if cfg.SmoothingBeta > 0. {
		s.buildNeighbors()
		s.rs0 = make([]float64, n)
		s.rs1 = make([]float64, n)
	}
	return
}

func (s *SteadyForwardEuler) Timing() *TimingData { return &s.td }

func (s *SteadyForwardEuler) buildNeighbors() {
	m := s.disc.Mesh()
	s.nbrs = make([][]int, m.NumCells)
	for i := 0; i < m.NumCells; i++ {
		for k := range m.CellFaces[i] {
			if nb := m.CellNeighbor(i, k); nb < m.NumCells {
				s.nbrs[i] = append(s.nbrs[i], nb)
			}
		}
	}
}

// smooth overwrites res with the smoothed residual.
func (s *SteadyForwardEuler) smooth(res []float64) {
	var (
		nv     = s.disc.NumVars()
		beta   = s.cfg.SmoothingBeta
		sweeps = s.cfg.NApplySweeps
	)
	if sweeps < 1 {
		sweeps = 2
	}
	copy(s.rs0, res)
	for sw := 0; sw < sweeps; sw++ {
		s.pmap.RunParallel(func(imin, imax int) {
			for i := imin; i < imax; i++ {
				den := 1. + beta*float64(len(s.nbrs[i]))
				for k := 0; k < nv; k++ {
					sum := res[i*nv+k]
					for _, j := range s.nbrs[i] {
						sum += beta * s.rs0[j*nv+k]
					}
					s.rs1[i*nv+k] = sum / den
				}
			}
		})
		s.rs0, s.rs1 = s.rs1, s.rs0
	}
	copy(res, s.rs0)
}

func (s *SteadyForwardEuler) Solve(u []float64) (converged bool, err error) {
	var (
		disc     = s.disc
		nv       = disc.NumVars()
		area     = disc.Mesh().Area
		res0     float64
		relres   = 1.
		interval = s.cfg.LogInterval
		start    = time.Now()
	)
	if interval < 1 {
		interval = 10
	}
	hist, _ := newHistory(s.cfg.HistoryFile)
	defer hist.close()

	step := 0
	for ; step < s.cfg.MaxIter; step++ {
		cfl := s.cfg.CFL(step)
		disc.Residual(u, s.res, s.dtm)
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
		if s.cfg.SmoothingBeta > 0. {
			s.smooth(s.res)
		}
		s.pmap.RunParallel(func(imin, imax int) {
			for i := imin; i < imax; i++ {
				w := cfl * s.dtm[i] / area[i]
				for k := 0; k < nv; k++ {
					u[i*nv+k] -= w * s.res[i*nv+k]
				}
			}
		})
		if s.cfg.StepHook != nil && s.cfg.StepHookInterval > 0 && step%s.cfg.StepHookInterval == 0 {
			s.cfg.StepHook(step, u)
		}
	}
	s.finish(step, converged, start)
	fmt.Printf("  explicit stage done: %d steps, res %13.6e\n", step, relres)
	return converged, nil
}

func (s *SteadyForwardEuler) finish(steps int, converged bool, start time.Time) {
	s.td.NumTimesteps = steps
	s.td.Converged = converged
	s.td.OdeWallTime = time.Since(start)
}
