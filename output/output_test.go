package output

import (
	"encoding/xml"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformCase(t *testing.T) (*mesh.Mesh, *physics.FreeStream, []float64) {
	t.Helper()
	m, err := mesh.ReadFrom(strings.NewReader(
		mesh.RectangleQuad(4, 3, 0., 0., 2., 1., [4]int{1, 2, 3, 4})))
	require.NoError(t, err)
	fs := physics.NewFreeStream(0.5, 1.4, 0.)
	u := make([]float64, m.NumCells*physics.NVars)
	for i := 0; i < m.NumCells; i++ {
		copy(u[i*4:i*4+4], fs.Qinf[:])
	}
	return m, fs, u
}

func TestPostprocessUniformFlow(t *testing.T) {
	m, fs, u := uniformCase(t)
	pf := Postprocess(m, fs, u)
	require.Len(t, pf.Density, m.NumNodes)
	require.Len(t, pf.CellMach, m.NumCells)
	for nd := 0; nd < m.NumNodes; nd++ {
		assert.InDelta(t, 1., pf.Density[nd], 1.e-13)
		assert.InDelta(t, fs.Minf, pf.Mach[nd], 1.e-13)
		assert.InDelta(t, fs.Pinf, pf.Pressure[nd], 1.e-13)
		assert.InDelta(t, 1., pf.VelX[nd], 1.e-13)
		assert.InDelta(t, 0., pf.VelY[nd], 1.e-13)
	}
	assert.InDelta(t, 0., EntropyError(m, fs, u), 1.e-13)
}

func TestVTUWriterProducesValidXML(t *testing.T) {
	m, fs, u := uniformCase(t)
	pf := Postprocess(m, fs, u)
	path := filepath.Join(t.TempDir(), "out.vtu")
	require.NoError(t, WriteVTU(path, m, pf))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	var (
		pieces, arrays int
	)
	for {
		tok, derr := dec.Token()
		if derr != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch se.Name.Local {
			case "Piece":
				pieces++
			case "DataArray":
				arrays++
			}
		}
	}
	assert.Equal(t, 1, pieces)
	// 4 point fields + points + connectivity + offsets + types
	assert.Equal(t, 8, arrays)
}

func TestLegacyVTKWriter(t *testing.T) {
	m, fs, u := uniformCase(t)
	pf := Postprocess(m, fs, u)
	path := filepath.Join(t.TempDir(), "out.vtk")
	require.NoError(t, WriteLegacyVTK(path, m, pf))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "DATASET UNSTRUCTURED_GRID")
	assert.Contains(t, text, "SCALARS Mach_number")
	assert.Contains(t, text, "VECTORS velocity")
}

// In a uniform free stream the pressure is constant, so the closed bottom
// wall of the channel feels pure normal force and zero lift at alpha = 0:
// the x-components of the wall normals cancel, CL integrates p * ny.
func TestSurfaceCoefficientsUniformFlow(t *testing.T) {
	m, fs, u := uniformCase(t)
	prefix := filepath.Join(t.TempDir(), "surf")
	coeffs, err := WriteSurfaceCoefficients(prefix, m, fs, u, []int{1}, false)
	require.NoError(t, err)
	require.Len(t, coeffs, 1)
	// bottom wall: length 2, outward normal (0,-1), p = pinf
	wantCL := -fs.Pinf * 2. / 0.5
	assert.InDelta(t, wantCL, coeffs[0].CL, 1.e-12)
	assert.InDelta(t, 0., coeffs[0].CD, 1.e-12)

	data, err := os.ReadFile(prefix + "-1.dat")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// header + 4 faces + CL/CD footer
	assert.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "# CL"))
}

func TestEntropyErrorDetectsDeviation(t *testing.T) {
	m, fs, u := uniformCase(t)
	// inflate the pressure of one cell
	u[3] *= 1.1
	err := EntropyError(m, fs, u)
	assert.True(t, err > 1.e-4)
	assert.False(t, math.IsNaN(err))
}
