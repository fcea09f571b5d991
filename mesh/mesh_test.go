package mesh

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestReadStructuredQuad(t *testing.T) {
	var (
		text   = RectangleQuad(2, 2, 0., 0., 1., 1., [4]int{1, 2, 3, 4})
		m, err = ReadFrom(strings.NewReader(text))
	)
	require.NoError(t, err)
	assert.Equal(t, 9, m.NumNodes)
	assert.Equal(t, 4, m.NumCells)
	assert.Equal(t, 8, m.NumBFaces)
	assert.Equal(t, 12, m.NumFaces)
	// boundary faces first, markers only there
	for f := 0; f < m.NumFaces; f++ {
		if f < m.NumBFaces {
			assert.True(t, m.FaceMarker[f] >= 1 && m.FaceMarker[f] <= 4)
			assert.Equal(t, m.NumCells+f, m.FaceCells[f][1])
		} else {
			assert.Equal(t, -1, m.FaceMarker[f])
			assert.True(t, m.FaceCells[f][1] < m.NumCells)
		}
	}
	total := 0.
	for e := 0; e < m.NumCells; e++ {
		assert.True(t, near(0.25, m.Area[e]))
		total += m.Area[e]
	}
	assert.True(t, near(1., total))
	// unit normals, length of every edge is one half
	for f := 0; f < m.NumFaces; f++ {
		n := m.Normal[f]
		assert.True(t, near(1., math.Hypot(n[0], n[1])))
		assert.True(t, near(0.5, m.FaceLength[f]))
	}
}

// Normals must point out of the left cell, into the right one.
func TestNormalOrientation(t *testing.T) {
	for _, text := range []string{
		RectangleQuad(3, 2, 0., 0., 3., 2., [4]int{1, 2, 3, 4}),
		RectangleTri(3, 2, 0., 0., 3., 2., [4]int{1, 2, 3, 4}),
		VortexAnnulus(4, 6, 1., 1.384, 1, 2, 3, 4),
	} {
		m, err := ReadFrom(strings.NewReader(text))
		require.NoError(t, err)
		for f := 0; f < m.NumFaces; f++ {
			var (
				mx, my = m.FaceMidpoint(f)
				cl     = m.Center[m.FaceCells[f][0]]
				n      = m.Normal[f]
				dot    = (mx-cl[0])*n[0] + (my-cl[1])*n[1]
			)
			assert.True(t, dot > 0.)
			if !m.IsBoundaryFace(f) {
				cr := m.Center[m.FaceCells[f][1]]
				assert.True(t, (cr[0]-mx)*n[0]+(cr[1]-my)*n[1] > 0.)
			}
		}
	}
}

// A hybrid mesh with one quad and two triangles, the quad written clockwise
// to exercise the orientation fix.
func TestHybridMesh(t *testing.T) {
	text := `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
6
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
5 2 0 0
6 2 1 0
$EndNodes
$Elements
9
1 1 2 1 1 1 2
2 1 2 1 1 2 5
3 1 2 2 2 5 6
4 1 2 3 3 6 3
5 1 2 3 3 3 4
6 1 2 4 4 4 1
7 3 2 0 0 1 4 3 2
8 2 2 0 0 2 5 6
9 2 2 0 0 2 6 3
$EndElements
`
	m, err := ReadFrom(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, 3, m.NumCells)
	assert.Equal(t, 6, m.NumBFaces)
	assert.Equal(t, 8, m.NumFaces)
	assert.True(t, near(1., m.Area[0])) // clockwise quad got flipped
	assert.True(t, near(0.5, m.Area[1]))
	assert.True(t, near(0.5, m.Area[2]))
	for e := 0; e < m.NumCells; e++ {
		for k := range m.CellNodes[e] {
			nb := m.CellNeighbor(e, k)
			assert.True(t, nb != e)
		}
	}
}

func TestAnnulusGeometry(t *testing.T) {
	var (
		nr, nt    = 8, 16
		rin, rout = 1., 1.384
		text      = VortexAnnulus(nr, nt, rin, rout, 1, 2, 3, 4)
		m, err    = ReadFrom(strings.NewReader(text))
	)
	require.NoError(t, err)
	assert.Equal(t, nr*nt, m.NumCells)
	assert.Equal(t, 2*nt+2*nr, m.NumBFaces)
	var (
		total = 0.
		exact = 0.25 * math.Pi * (rout*rout - rin*rin)
	)
	for e := 0; e < m.NumCells; e++ {
		assert.True(t, m.Area[e] > 0.)
		total += m.Area[e]
	}
	// inscribed polygons, so a little under the exact area
	assert.True(t, total < exact)
	assert.True(t, near(exact, total, 2.e-03))
	counts := map[int]int{}
	for f := 0; f < m.NumBFaces; f++ {
		counts[m.FaceMarker[f]]++
	}
	assert.Equal(t, nt, counts[1])
	assert.Equal(t, nt, counts[2])
	assert.Equal(t, nr, counts[3])
	assert.Equal(t, nr, counts[4])
}

func TestPeriodicLink(t *testing.T) {
	var (
		text   = RectangleQuad(3, 2, 0., 0., 3., 2., [4]int{10, 20, 30, 40})
		m, err = ReadFrom(strings.NewReader(text))
	)
	require.NoError(t, err)
	require.NoError(t, m.LinkPeriodic(20, 40, "x"))
	linked := 0
	for f := 0; f < m.NumBFaces; f++ {
		if m.FaceMarker[f] != 20 && m.FaceMarker[f] != 40 {
			assert.Equal(t, -1, m.PeriodicPartner[f])
			continue
		}
		linked++
		p := m.PeriodicPartner[f]
		require.True(t, p >= 0 && p < m.NumBFaces)
		assert.Equal(t, f, m.PeriodicPartner[p])
		// right cell is the twin's interior cell
		assert.Equal(t, m.FaceCells[p][0], m.FaceCells[f][1])
		// midpoints line up in y
		_, yf := m.FaceMidpoint(f)
		_, yp := m.FaceMidpoint(p)
		assert.True(t, near(yf, yp))
	}
	assert.Equal(t, 4, linked)

	// mismatched counts and bad axis labels are rejected
	m2, err := ReadFrom(strings.NewReader(text))
	require.NoError(t, err)
	assert.Error(t, m2.LinkPeriodic(10, 20, "y"))
	assert.Error(t, m2.LinkPeriodic(20, 40, "z"))
	assert.Error(t, m2.LinkPeriodic(20, 99, "x"))
}

func TestBadMeshes(t *testing.T) {
	// an unmarked boundary edge is an error
	var sb strings.Builder
	nodes := [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	cells := [][]int{{0, 1, 2, 3}}
	blines := [][3]int{{0, 1, 5}, {1, 2, 5}, {2, 3, 5}} // left side missing
	require.NoError(t, WriteGmsh(&sb, nodes, cells, blines))
	_, err := ReadFrom(strings.NewReader(sb.String()))
	assert.Error(t, err)

	// a boundary line on an interior edge is an error
	text := RectangleQuad(2, 1, 0., 0., 2., 1., [4]int{1, 1, 1, 1})
	text = strings.Replace(text, "1 1 2 1 1 1 2", "1 1 2 7 7 2 5", 1) // 2-5 is the shared edge
	_, err = ReadFrom(strings.NewReader(text))
	assert.Error(t, err)

	// no cells at all
	_, err = ReadFrom(strings.NewReader("$MeshFormat\n2.2 0 8\n$EndMeshFormat\n"))
	assert.Error(t, err)
}
