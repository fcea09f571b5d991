package ode

import (
	"math"
	"strings"
	"testing"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCFLRamp(t *testing.T) {
	cfg := SteadySolverConfig{CFLMin: 10., CFLMax: 100., RampStart: 5, RampEnd: 15}
	assert.Equal(t, 10., cfg.CFL(0))
	assert.Equal(t, 10., cfg.CFL(4))
	assert.Equal(t, 55., cfg.CFL(10))
	assert.Equal(t, 100., cfg.CFL(15))
	assert.Equal(t, 100., cfg.CFL(1000))

	flat := SteadySolverConfig{CFLMin: 2., CFLMax: 2., RampStart: 0, RampEnd: 0}
	assert.Equal(t, 2., flat.CFL(0))
	assert.Equal(t, 2., flat.CFL(50))
}

func poissonSetup(t *testing.T, nx int) (*mesh.Mesh, *spatial.DiffusionFV) {
	t.Helper()
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.RectangleQuad(nx, nx, 0., 0., 1., 1., [4]int{1, 1, 1, 1})))
	require.NoError(t, err)
	nu := 1.0
	src := func(x, y float64) float64 {
		return 2. * math.Pi * math.Pi * nu * math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
	}
	d, err := spatial.NewDiffusionFV(m, nu, nil, src)
	require.NoError(t, err)
	return m, d
}

func maxPoissonError(m *mesh.Mesh, u []float64) (emax float64) {
	for i := 0; i < m.NumCells; i++ {
		c := m.Center[i]
		e := math.Abs(u[i] - math.Sin(math.Pi*c[0])*math.Sin(math.Pi*c[1]))
		emax = math.Max(emax, e)
	}
	return
}

func interiorConn(m *mesh.Mesh) (conn [][2]int) {
	for f := m.NumBFaces; f < m.NumFaces; f++ {
		conn = append(conn, m.FaceCells[f])
	}
	return
}

func TestImplicitSolvesPoisson(t *testing.T) {
	var (
		m, d = poissonSetup(t, 8)
		cfg  = SteadySolverConfig{
			CFLMin: 1.e3, CFLMax: 1.e5, RampStart: 0, RampEnd: 5,
			Tol: 1.e-10, MaxIter: 100, LogInterval: 50,
		}
		A    = linsolve.NewFaceBlockMatrix(m.NumCells, 1, interiorConn(m))
		prec = linsolve.NewBlockSGS(1)
		gm   = linsolve.NewGMRES(30, 300, 1.e-8)
		s    = NewSteadyBackwardEuler(d, cfg, A, prec, gm, false)
		u    = make([]float64, m.NumCells)
	)
	d.InitialState(u)
	converged, err := s.Solve(u)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.True(t, s.Timing().NumTimesteps < 100)
	assert.True(t, s.Timing().TotalLinIters > 0)
	assert.True(t, maxPoissonError(m, u) < 0.05)
}

func TestMatrixFreeMatchesAssembled(t *testing.T) {
	var (
		m, d = poissonSetup(t, 6)
		cfg  = SteadySolverConfig{
			CFLMin: 1.e3, CFLMax: 1.e5, RampStart: 0, RampEnd: 5,
			Tol: 1.e-10, MaxIter: 100, LogInterval: 50,
		}
		ua = make([]float64, m.NumCells)
		uf = make([]float64, m.NumCells)
	)
	for pass, u := range [][]float64{ua, uf} {
		var (
			A    = linsolve.NewCSRBlockMatrix(m.NumCells, 1)
			prec = &linsolve.BlockJacobi{}
			gm   = linsolve.NewGMRES(30, 400, 1.e-9)
			s    = NewSteadyBackwardEuler(d, cfg, A, prec, gm, pass == 1)
		)
		d.InitialState(u)
		converged, err := s.Solve(u)
		require.NoError(t, err)
		assert.True(t, converged)
	}
	for i := range ua {
		assert.InDelta(t, ua[i], uf[i], 1.e-6)
	}
}

func TestExplicitSolvesPoisson(t *testing.T) {
	var (
		m, d = poissonSetup(t, 6)
		cfg  = SteadySolverConfig{
			CFLMin: 0.8, CFLMax: 0.8,
			Tol: 1.e-7, MaxIter: 100000, LogInterval: 20000,
			SmoothingBeta: 0.4, NApplySweeps: 2,
		}
		s = NewSteadyForwardEuler(d, cfg)
		u = make([]float64, m.NumCells)
	)
	d.InitialState(u)
	converged, err := s.Solve(u)
	require.NoError(t, err)
	assert.True(t, converged)
	assert.True(t, maxPoissonError(m, u) < 0.05)
}

func TestDriverStagesStarterThenMain(t *testing.T) {
	var (
		m, d = poissonSetup(t, 6)
		mk   = func(tol float64, maxiter int) SteadySolver {
			return NewSteadyBackwardEuler(d, SteadySolverConfig{
				CFLMin: 1.e3, CFLMax: 1.e4, RampStart: 0, RampEnd: 3,
				Tol: tol, MaxIter: maxiter, LogInterval: 50,
			}, linsolve.NewFaceBlockMatrix(m.NumCells, 1, interiorConn(m)),
				linsolve.NewBlockSGS(1), linsolve.NewGMRES(30, 300, 1.e-8), false)
		}
		drv = &Driver{Starter: mk(1.e-1, 50), Main: mk(1.e-9, 100)}
		u   = make([]float64, m.NumCells)
	)
	assert.Equal(t, Idle, drv.State())
	d.InitialState(u)
	require.NoError(t, drv.Solve(u))
	assert.Equal(t, Converged, drv.State())
	assert.True(t, maxPoissonError(m, u) < 0.05)
}

func TestDivergingResidualIsFatal(t *testing.T) {
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.RectangleQuad(3, 3, 0., 0., 1., 1., [4]int{1, 1, 1, 1})))
	require.NoError(t, err)
	d, err := spatial.NewDiffusionFV(m, 1., nil, nil)
	require.NoError(t, err)
	var (
		s = NewSteadyForwardEuler(d, SteadySolverConfig{
			CFLMin: 1., CFLMax: 1., Tol: 1.e-8, MaxIter: 10,
		})
		u = make([]float64, m.NumCells)
	)
	u[0] = math.NaN()
	_, err = s.Solve(u)
	assert.Error(t, err)
}

// The flow march on the isentropic vortex: entropy stays finite and the
// residual comes down through the implicit stages.
func TestImplicitFlowOnVortexAnnulus(t *testing.T) {
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.VortexAnnulus(8, 8, 1., 1.384, 2, 3, 4, 5)))
	require.NoError(t, err)
	fv, err := spatial.NewFlowFV(m, spatial.FlowPhysicsConfig{
		Gamma: 1.4, Minf: 2.25,
		BCs: []spatial.BCSpec{
			{Type: "slipwall", Marker: 2},
			{Type: "slipwall", Marker: 3},
			{Type: "vortexinflow", Marker: 4, VortexMach: 2.25, VortexRadius: 1., VortexDensity: 1.},
			{Type: "farfield", Marker: 5},
		},
	}, spatial.FlowNumericsConfig{Flux: "Roe", InitVortex: true})
	require.NoError(t, err)

	var (
		nv   = fv.NumVars()
		conn = interiorConn(m)
		A    = linsolve.NewFaceBlockMatrix(m.NumCells, nv, conn)
		cfg  = SteadySolverConfig{
			CFLMin: 50., CFLMax: 500., RampStart: 5, RampEnd: 30,
			Tol: 1.e-6, MaxIter: 300, LogInterval: 100,
		}
		s = NewSteadyBackwardEuler(fv, cfg, A,
			linsolve.NewBlockSGS(1), linsolve.NewGMRES(30, 200, 1.e-5), false)
		u = make([]float64, m.NumCells*nv)
	)
	fv.InitialState(u)
	converged, err := s.Solve(u)
	require.NoError(t, err)
	assert.True(t, converged)
	require.NoError(t, fv.CheckState(u))
}
