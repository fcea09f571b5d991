package output

import (
	"fmt"
	"image/color"

	"github.com/notargets/avs/chart2d"
	"github.com/notargets/avs/functions"
	graphics2D "github.com/notargets/avs/geometry"
	utils2 "github.com/notargets/avs/utils"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
)

// LivePlot renders the evolving Mach field during a solve. Quadrilateral
// cells are split into two triangles for the surface plot; the nodal field
// comes from the same averaging as the solution writers.
type LivePlot struct {
	m     *mesh.Mesh
	fs    *physics.FreeStream
	chart *chart2d.Chart2D
	gm    *graphics2D.TriMesh
}

func NewLivePlot(m *mesh.Mesh, fs *physics.FreeStream) (lp *LivePlot) {
	lp = &LivePlot{m: m, fs: fs}
	var (
		points = make([]graphics2D.Point, m.NumNodes)
		tris   []graphics2D.Triangle
	)
	for i, nd := range m.Nodes {
		points[i].X[0] = float32(nd[0])
		points[i].X[1] = float32(nd[1])
	}
	for _, cn := range m.CellNodes {
		tris = append(tris, graphics2D.Triangle{
			Nodes: [3]int32{int32(cn[0]), int32(cn[1]), int32(cn[2])},
		})
		if len(cn) == 4 {
			tris = append(tris, graphics2D.Triangle{
				Nodes: [3]int32{int32(cn[0]), int32(cn[2]), int32(cn[3])},
			})
		}
	}
	lp.gm = &graphics2D.TriMesh{
		Triangles: tris,
		Geometry:  points,
	}
	lp.gm.Attributes = make([][]float32, len(tris))
	for k := range lp.gm.Attributes {
		lp.gm.Attributes[k] = make([]float32, 3)
	}
	return
}

// Update redraws the Mach surface from the current state.
func (lp *LivePlot) Update(u []float64) {
	var (
		pf    = Postprocess(lp.m, lp.fs, u)
		field = make([]float32, len(pf.Mach))
		fmin  = float32(pf.Mach[0])
		fmax  = fmin
	)
	for i, v := range pf.Mach {
		field[i] = float32(v)
		if field[i] < fmin {
			fmin = field[i]
		}
		if field[i] > fmax {
			fmax = field[i]
		}
	}
	if lp.chart == nil {
		box := graphics2D.NewBoundingBox(lp.gm.GetGeometry())
		lp.chart = chart2d.NewChart2D(1280, 1280,
			box.XMin[0], box.XMax[0], box.XMin[1], box.XMax[1])
		go lp.chart.Plot()
	}
	lp.chart.AddColorMap(utils2.NewColorMap(0.99*fmin, 1.01*fmax, 1.))
	fs := functions.NewFSurface(lp.gm, [][]float32{field}, 0)
	white := color.RGBA{R: 255, G: 255, B: 255, A: 1}
	if err := lp.chart.AddFunctionSurface("FSurface", *fs, chart2d.NoLine, white); err != nil {
		fmt.Printf("WARNING live plot update failed: %v\n", err)
	}
}
