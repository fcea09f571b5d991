package spatial

import (
	"math"
	"strings"
	"testing"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func near(a, b float64, tolI ...float64) (l bool) {
	var (
		tol = 1.e-08
	)
	if len(tolI) != 0 {
		tol = tolI[0]
	}
	bound := math.Max(tol, tol*math.Abs(a))
	l = math.Abs(a-b) <= bound
	return
}

func quadMesh(t *testing.T, nx, ny int, markers [4]int) *mesh.Mesh {
	t.Helper()
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.RectangleQuad(nx, ny, 0., 0., 1., 1., markers)))
	require.NoError(t, err)
	return m
}

func allFarfield(markers [4]int) (bcs []BCSpec) {
	for _, mk := range markers {
		bcs = append(bcs, BCSpec{Type: "farfield", Marker: mk})
	}
	return
}

func TestGhostCenterMidpointSymmetry(t *testing.T) {
	var (
		markers = [4]int{1, 2, 3, 4}
		m       = quadMesh(t, 3, 3, markers)
		fv, err = NewFlowFV(m, FlowPhysicsConfig{
			Gamma: 1.4, Minf: 0.5, BCs: allFarfield(markers),
		}, FlowNumericsConfig{Flux: "LLF"})
	)
	require.NoError(t, err)
	for f := 0; f < m.NumBFaces; f++ {
		var (
			l      = m.FaceCells[f][0]
			mx, my = m.FaceMidpoint(f)
			rg     = fv.GhostCenters()[f]
		)
		assert.True(t, near(rg[0]+m.Center[l][0], 2.*mx))
		assert.True(t, near(rg[1]+m.Center[l][1], 2.*my))
	}
}

func TestSlipWallGhostMirrorsNormalMomentum(t *testing.T) {
	var (
		rule = &slipWall{}
		n    = [2]float64{0.6, 0.8}
		ul   = []float64{1.2, 0.5, -0.3, 2.4}
		ug   = make([]float64, 4)
	)
	rule.Ghost(ul, n, [2]float64{}, ug)
	assert.Equal(t, ul[0], ug[0])
	assert.Equal(t, ul[3], ug[3])
	// normal momentum flips, tangential momentum survives
	rvnL := ul[1]*n[0] + ul[2]*n[1]
	rvnG := ug[1]*n[0] + ug[2]*n[1]
	assert.True(t, near(rvnG, -rvnL))
	rvtL := -ul[1]*n[1] + ul[2]*n[0]
	rvtG := -ug[1]*n[1] + ug[2]*n[0]
	assert.True(t, near(rvtG, rvtL))
}

func TestFreeStreamPreservation(t *testing.T) {
	var (
		markers = [4]int{1, 2, 3, 4}
		m       = quadMesh(t, 4, 4, markers)
	)
	for _, ncfg := range []FlowNumericsConfig{
		{Flux: "Roe"},
		{Flux: "HLLC", SecondOrder: true, Gradient: "leastSquares", Limiter: "Venkatakrishnan", LimiterParam: 4.},
		{Flux: "VanLeer", SecondOrder: true, Gradient: "greenGauss", Limiter: "none", ReconstructPrimitive: true},
	} {
		fv, err := NewFlowFV(m, FlowPhysicsConfig{
			Gamma: 1.4, Minf: 0.5, Alpha: 0.3, BCs: allFarfield(markers),
		}, ncfg)
		require.NoError(t, err)
		var (
			u   = make([]float64, m.NumCells*physics.NVars)
			res = make([]float64, len(u))
			dtm = make([]float64, m.NumCells)
		)
		fv.InitialState(u)
		fv.Residual(u, res, dtm)
		assert.True(t, floats.Norm(res, 2) < 1.e-12,
			"free stream not preserved by %s", ncfg.Flux)
		for i := range dtm {
			assert.True(t, dtm[i] > 0.)
		}
	}
}

// smoothState fills u with a smooth positive field that varies cell to cell.
func smoothState(m *mesh.Mesh, fs *physics.FreeStream) (u []float64) {
	var (
		nv = physics.NVars
	)
	u = make([]float64, m.NumCells*nv)
	for i := 0; i < m.NumCells; i++ {
		var (
			c    = m.Center[i]
			rho  = 1. + 0.1*math.Sin(3.*c[0])*math.Cos(2.*c[1])
			vx   = 0.9 + 0.05*math.Cos(2.*c[0])
			vy   = 0.1 * math.Sin(2.*c[1])
			p    = fs.Pinf * (1. + 0.1*math.Cos(c[0]+c[1]))
			prim = []float64{rho, vx, vy, p}
		)
		fs.PrimitiveToConserved(prim, u[i*nv:i*nv+nv])
	}
	return
}

func TestDiscreteConservationOnPeriodicTorus(t *testing.T) {
	var (
		markers = [4]int{1, 2, 3, 4}
		m       = quadMesh(t, 4, 4, markers)
	)
	require.NoError(t, m.LinkPeriodic(4, 2, "x"))
	require.NoError(t, m.LinkPeriodic(1, 3, "y"))
	fv, err := NewFlowFV(m, FlowPhysicsConfig{
		Gamma: 1.4, Minf: 0.5,
		BCs: []BCSpec{
			{Type: "periodic", Marker: 1}, {Type: "periodic", Marker: 2},
			{Type: "periodic", Marker: 3}, {Type: "periodic", Marker: 4},
		},
	}, FlowNumericsConfig{Flux: "HLL"})
	require.NoError(t, err)
	var (
		nv  = physics.NVars
		u   = smoothState(m, fv.FreeStream())
		res = make([]float64, m.NumCells*nv)
	)
	fv.Residual(u, res, nil)
	// every interior flux appears twice with opposite signs
	for k := 0; k < nv; k++ {
		sum := 0.
		for i := 0; i < m.NumCells; i++ {
			sum += res[i*nv+k]
		}
		assert.True(t, near(sum, 0., 1.e-11), "component %d does not telescope: %g", k, sum)
	}
}

func TestPeriodicChannelHoldsFreeStream(t *testing.T) {
	var (
		markers = [4]int{1, 2, 3, 4}
		m       = quadMesh(t, 5, 3, markers)
	)
	require.NoError(t, m.LinkPeriodic(4, 2, "x"))
	fv, err := NewFlowFV(m, FlowPhysicsConfig{
		Gamma: 1.4, Minf: 0.5, Alpha: 0., // flow along the channel
		BCs: []BCSpec{
			{Type: "slipwall", Marker: 1},
			{Type: "slipwall", Marker: 3},
			{Type: "periodic", Marker: 2},
			{Type: "periodic", Marker: 4},
		},
	}, FlowNumericsConfig{Flux: "Roe", SecondOrder: true, Gradient: "leastSquares", Limiter: "none"})
	require.NoError(t, err)
	var (
		u   = make([]float64, m.NumCells*physics.NVars)
		res = make([]float64, len(u))
	)
	fv.InitialState(u)
	fv.Residual(u, res, nil)
	assert.True(t, floats.Norm(res, 2) < 1.e-12)
}

// TestJacobianMatchesFiniteDifference perturbs only cells away from the
// boundary, where no frozen ghost linearization enters, and compares the
// assembled first order Jacobian-vector product against residual
// differencing. LLF carries an exact Jacobian.
func TestJacobianMatchesFiniteDifference(t *testing.T) {
	var (
		markers = [4]int{1, 2, 3, 4}
		m       = quadMesh(t, 6, 6, markers)
	)
	fv, err := NewFlowFV(m, FlowPhysicsConfig{
		Gamma: 1.4, Minf: 0.5, BCs: allFarfield(markers),
	}, FlowNumericsConfig{Flux: "LLF"})
	require.NoError(t, err)

	var (
		nv = physics.NVars
		n  = m.NumCells * nv
		u  = smoothState(m, fv.FreeStream())
		v  = make([]float64, n)
	)
	interior := make([]bool, m.NumCells)
	for i := 0; i < m.NumCells; i++ {
		interior[i] = true
		for _, f := range m.CellFaces[i] {
			if m.IsBoundaryFace(f) {
				interior[i] = false
			}
		}
	}
	for i := 0; i < m.NumCells; i++ {
		if !interior[i] {
			continue
		}
		c := m.Center[i]
		for k := 0; k < nv; k++ {
			v[i*nv+k] = math.Sin(float64(k+1)*c[0]) + math.Cos(float64(k+2)*c[1])
		}
	}

	// assembled product, no pseudo-time diagonal
	conn := make([][2]int, 0, m.NumFaces-m.NumBFaces)
	for f := m.NumBFaces; f < m.NumFaces; f++ {
		conn = append(conn, m.FaceCells[f])
	}
	A := linsolve.NewFaceBlockMatrix(m.NumCells, nv, conn)
	fv.Jacobian(u, A)
	jv := make([]float64, n)
	A.Apply(v, jv)

	// directional finite difference
	var (
		eps  = math.Sqrt(math.Nextafter(1., 2.)-1.) / 10.
		nrm  = floats.Norm(v, 2)
		h    = eps / nrm
		up   = make([]float64, n)
		r0   = make([]float64, n)
		rp   = make([]float64, n)
		fdjv = make([]float64, n)
	)
	fv.Residual(u, r0, nil)
	for i := range up {
		up[i] = u[i] + h*v[i]
	}
	fv.Residual(up, rp, nil)
	for i := range fdjv {
		fdjv[i] = (rp[i] - r0[i]) / h
	}

	diff := make([]float64, n)
	floats.SubTo(diff, jv, fdjv)
	assert.True(t, floats.Norm(diff, 2) < 1.e-5*nrm,
		"J v disagrees with finite differences: %g", floats.Norm(diff, 2))
}

func TestFarfieldSupersonicOutflowExtrapolates(t *testing.T) {
	var (
		fs   = physics.NewFreeStream(2.0, 1.4, 0.)
		rule = &farfield{fs: fs}
		ug   = make([]float64, 4)
	)
	// supersonic exit: interior state must pass through unchanged
	ul := []float64{1., 2.5, 0., fs.Pinf/0.4 + 0.5*2.5*2.5}
	rule.Ghost(ul, [2]float64{1., 0.}, [2]float64{}, ug)
	assert.Equal(t, ul, ug)
	// subsonic: free stream imposed
	ul2 := []float64{1., 0.2, 0., fs.Pinf/0.4 + 0.5*0.04}
	rule.Ghost(ul2, [2]float64{1., 0.}, [2]float64{}, ug)
	assert.Equal(t, fs.Qinf[:], ug)
}

func TestCharacteristicBCNeedsExperimentalSwitch(t *testing.T) {
	fs := physics.NewFreeStream(0.5, 1.4, 0.)
	_, err := NewBoundaryRule(BCSpec{Type: "characteristic", Marker: 1}, fs, false)
	assert.Error(t, err)
	rule, err := NewBoundaryRule(BCSpec{Type: "characteristic", Marker: 1}, fs, true)
	require.NoError(t, err)
	assert.NotNil(t, rule)
}
