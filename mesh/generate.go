package mesh

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// WriteGmsh renders nodes, cells and marked boundary lines in Gmsh v2
// ASCII. Boundary lines are (node1, node2, marker) triples with 0-based
// node indices.
func WriteGmsh(w io.Writer, nodes [][2]float64, cells [][]int, blines [][3]int) error {
	if _, err := fmt.Fprintf(w, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n"); err != nil {
		return err
	}
	fmt.Fprintf(w, "$Nodes\n%d\n", len(nodes))
	for i, p := range nodes {
		fmt.Fprintf(w, "%d %.16g %.16g 0\n", i+1, p[0], p[1])
	}
	fmt.Fprintf(w, "$EndNodes\n$Elements\n%d\n", len(cells)+len(blines))
	id := 1
	for _, bl := range blines {
		fmt.Fprintf(w, "%d %d 2 %d %d %d %d\n", id, gmshLine, bl[2], bl[2], bl[0]+1, bl[1]+1)
		id++
	}
	for _, cn := range cells {
		etype := gmshTri
		if len(cn) == 4 {
			etype = gmshQuad
		}
		fmt.Fprintf(w, "%d %d 2 0 0", id, etype)
		for _, p := range cn {
			fmt.Fprintf(w, " %d", p+1)
		}
		fmt.Fprintf(w, "\n")
		id++
	}
	_, err := fmt.Fprintf(w, "$EndElements\n")
	return err
}

// RectangleQuad builds a Gmsh v2 file for a structured nx by ny quad grid
// on [x0,x1] x [y0,y1]. markers are the boundary markers of the bottom,
// right, top and left sides in that order.
func RectangleQuad(nx, ny int, x0, y0, x1, y1 float64, markers [4]int) string {
	nodes, nid := rectNodes(nx, ny, x0, y0, x1, y1)
	var cells [][]int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			cells = append(cells, []int{nid(i, j), nid(i+1, j), nid(i+1, j+1), nid(i, j+1)})
		}
	}
	return renderGmsh(nodes, cells, rectBoundary(nx, ny, nid, markers))
}

// RectangleTri is RectangleQuad with every quad split along its diagonal.
func RectangleTri(nx, ny int, x0, y0, x1, y1 float64, markers [4]int) string {
	nodes, nid := rectNodes(nx, ny, x0, y0, x1, y1)
	var cells [][]int
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			cells = append(cells,
				[]int{nid(i, j), nid(i+1, j), nid(i+1, j+1)},
				[]int{nid(i, j), nid(i+1, j+1), nid(i, j+1)})
		}
	}
	return renderGmsh(nodes, cells, rectBoundary(nx, ny, nid, markers))
}

func rectNodes(nx, ny int, x0, y0, x1, y1 float64) (nodes [][2]float64, nid func(i, j int) int) {
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			nodes = append(nodes, [2]float64{
				x0 + float64(i)*(x1-x0)/float64(nx),
				y0 + float64(j)*(y1-y0)/float64(ny),
			})
		}
	}
	nid = func(i, j int) int { return j*(nx+1) + i }
	return
}

func rectBoundary(nx, ny int, nid func(i, j int) int, markers [4]int) (blines [][3]int) {
	for i := 0; i < nx; i++ {
		blines = append(blines, [3]int{nid(i, 0), nid(i+1, 0), markers[0]})
	}
	for j := 0; j < ny; j++ {
		blines = append(blines, [3]int{nid(nx, j), nid(nx, j+1), markers[1]})
	}
	for i := 0; i < nx; i++ {
		blines = append(blines, [3]int{nid(i, ny), nid(i+1, ny), markers[2]})
	}
	for j := 0; j < ny; j++ {
		blines = append(blines, [3]int{nid(0, j), nid(0, j+1), markers[3]})
	}
	return
}

// VortexAnnulus builds a quarter annulus between radii rin and rout,
// nr cells radially and nt cells around, for the isentropic vortex case.
// The flow runs clockwise, entering through the x=0 edge and leaving
// through the y=0 edge.
func VortexAnnulus(nr, nt int, rin, rout float64, inner, outer, inflow, outflow int) string {
	var (
		nodes  [][2]float64
		cells  [][]int
		blines [][3]int
		nid    = func(ir, it int) int { return it*(nr+1) + ir }
	)
	for it := 0; it <= nt; it++ {
		for ir := 0; ir <= nr; ir++ {
			var (
				r  = rin + float64(ir)*(rout-rin)/float64(nr)
				th = float64(it) * 0.5 * math.Pi / float64(nt)
			)
			nodes = append(nodes, [2]float64{r * math.Cos(th), r * math.Sin(th)})
		}
	}
	for it := 0; it < nt; it++ {
		for ir := 0; ir < nr; ir++ {
			cells = append(cells, []int{nid(ir, it), nid(ir+1, it), nid(ir+1, it+1), nid(ir, it+1)})
		}
	}
	for it := 0; it < nt; it++ {
		blines = append(blines, [3]int{nid(0, it), nid(0, it+1), inner})
		blines = append(blines, [3]int{nid(nr, it), nid(nr, it+1), outer})
	}
	for ir := 0; ir < nr; ir++ {
		blines = append(blines, [3]int{nid(ir, 0), nid(ir+1, 0), outflow})
		blines = append(blines, [3]int{nid(ir, nt), nid(ir+1, nt), inflow})
	}
	return renderGmsh(nodes, cells, blines)
}

func renderGmsh(nodes [][2]float64, cells [][]int, blines [][3]int) string {
	var sb strings.Builder
	if err := WriteGmsh(&sb, nodes, cells, blines); err != nil {
		panic(err)
	}
	return sb.String()
}
