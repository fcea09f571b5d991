package spatial

import (
	"math"
	"strings"
	"testing"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// exactPoisson is u = sin(pi x) sin(pi y), zero on the unit square boundary,
// with -Δu = 2 pi² u.
func exactPoisson(x, y float64) float64 {
	return math.Sin(math.Pi*x) * math.Sin(math.Pi*y)
}

func poissonSource(nu float64) func(x, y float64) float64 {
	return func(x, y float64) float64 {
		return 2. * math.Pi * math.Pi * nu * exactPoisson(x, y)
	}
}

func TestDiffusionResidualOfExactSolution(t *testing.T) {
	var (
		nu   = 0.7
		errs []float64
	)
	for _, nx := range []int{8, 16} {
		m, err := mesh.ReadFrom(strings.NewReader(
			mesh.RectangleQuad(nx, nx, 0., 0., 1., 1., [4]int{1, 1, 1, 1})))
		require.NoError(t, err)
		d, err := NewDiffusionFV(m, nu, nil, poissonSource(nu))
		require.NoError(t, err)

		var (
			u   = make([]float64, m.NumCells)
			res = make([]float64, m.NumCells)
			dtm = make([]float64, m.NumCells)
		)
		for i := 0; i < m.NumCells; i++ {
			c := m.Center[i]
			u[i] = exactPoisson(c[0], c[1])
		}
		d.Residual(u, res, dtm)
		// truncation error only; normalize by cell area
		var maxres float64
		for i := range res {
			maxres = math.Max(maxres, math.Abs(res[i]/m.Area[i]))
		}
		errs = append(errs, maxres)
		for i := range dtm {
			assert.True(t, dtm[i] > 0. && dtm[i] < 1.)
		}
	}
	// second order scheme: refining by 2 divides the defect by about 4
	assert.True(t, errs[1] < 0.4*errs[0],
		"no grid convergence: %g -> %g", errs[0], errs[1])
}

func TestDiffusionJacobianIsExact(t *testing.T) {
	var (
		nu     = 1.3
		m, err = mesh.ReadFrom(strings.NewReader(
			mesh.RectangleTri(4, 3, 0., 0., 1., 1., [4]int{1, 2, 3, 4})))
	)
	require.NoError(t, err)
	d, err := NewDiffusionFV(m, nu, map[int]float64{2: 0.5}, nil)
	require.NoError(t, err)

	var (
		n = m.NumCells
		u = make([]float64, n)
		v = make([]float64, n)
	)
	for i := 0; i < n; i++ {
		c := m.Center[i]
		u[i] = math.Cos(2.*c[0]) * math.Sin(c[1])
		v[i] = 1. + math.Sin(5.*c[0]+c[1])
	}

	A := linsolve.NewCSRBlockMatrix(n, 1)
	d.Jacobian(u, A)
	jv := make([]float64, n)
	A.Apply(v, jv)

	// the operator is linear in u, so any finite step differences exactly
	var (
		up = make([]float64, n)
		r0 = make([]float64, n)
		rp = make([]float64, n)
	)
	d.Residual(u, r0, nil)
	for i := range up {
		up[i] = u[i] + v[i]
	}
	d.Residual(up, rp, nil)
	for i := range rp {
		rp[i] -= r0[i]
	}
	diff := make([]float64, n)
	floats.SubTo(diff, jv, rp)
	assert.True(t, floats.Norm(diff, 2) < 1.e-10*floats.Norm(v, 2),
		"diffusion Jacobian disagrees with the linear increment")
}

func TestDiffusionDirichletGhost(t *testing.T) {
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.RectangleQuad(2, 2, 0., 0., 1., 1., [4]int{7, 7, 7, 7})))
	require.NoError(t, err)
	_, err = NewDiffusionFV(m, 0., nil, nil)
	assert.Error(t, err, "zero diffusivity must be rejected")

	d, err := NewDiffusionFV(m, 1., map[int]float64{7: 2.}, nil)
	require.NoError(t, err)
	// constant state at the boundary value has zero residual
	var (
		u   = make([]float64, m.NumCells)
		res = make([]float64, m.NumCells)
	)
	for i := range u {
		u[i] = 2.
	}
	d.Residual(u, res, nil)
	assert.True(t, floats.Norm(res, 2) < 1.e-13)
}
