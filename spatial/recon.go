package spatial

import (
	"fmt"
	"strings"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/utils"
)

// GradientScheme computes per-cell component gradients from cell averages u
// and ghost values ug (one slot per boundary face). Buffers are cell-major
// with nvars entries per cell or ghost.
type GradientScheme interface {
	Compute(u, ug, dudx, dudy []float64)
}

// NewGradientScheme builds the reconstruction named in the configuration.
// rcg holds the ghost cell centers, one per boundary face.
func NewGradientScheme(name string, m *mesh.Mesh, rcg [][2]float64, nvars int) GradientScheme {
	switch strings.ToUpper(name) {
	case "NONE":
		return &constantRecon{n: m.NumCells * nvars}
	case "LEASTSQUARES":
		return newLeastSquaresRecon(m, rcg, nvars)
	case "GREENGAUSS":
		return newGreenGaussRecon(m, rcg, nvars)
	default:
		panic(fmt.Errorf("unknown gradient scheme %s", name))
	}
}

// constantRecon zeroes the gradients, giving a first order scheme.
type constantRecon struct {
	n int
}

func (c *constantRecon) Compute(u, ug, dudx, dudy []float64) {
	for i := 0; i < c.n; i++ {
		dudx[i] = 0.
		dudy[i] = 0.
	}
}

type lsqNeighbor struct {
	cell   int // interior neighbor, -1 for a ghost
	bface  int // ghost slot when cell < 0
	dx, dy float64
	w      float64
}

// leastSquaresRecon solves the weighted least squares problem
// min Σ_j w_ij (u_j - u_i - ∇u_i·Δr_ij)², w = 1/|Δr|², over the face
// neighbors of each cell, ghosts included. The 2x2 normal matrix depends
// only on geometry and is inverted once.
type leastSquaresRecon struct {
	nvars int
	pmap  *utils.PartitionMap
	nbrs  [][]lsqNeighbor
	inv   [][4]float64
}

func newLeastSquaresRecon(m *mesh.Mesh, rcg [][2]float64, nvars int) (r *leastSquaresRecon) {
	r = &leastSquaresRecon{
		nvars: nvars,
		pmap:  utils.NewPartitionMap(utils.DegreeOfParallelism(0), m.NumCells),
		nbrs:  make([][]lsqNeighbor, m.NumCells),
		inv:   make([][4]float64, m.NumCells),
	}
	for i := 0; i < m.NumCells; i++ {
		var a11, a12, a22 float64
		for _, f := range m.CellFaces[i] {
			nb := lsqNeighbor{cell: -1, bface: -1}
			var rn [2]float64
			if m.IsBoundaryFace(f) {
				nb.bface = f
				rn = rcg[f]
			} else {
				nb.cell = m.FaceCells[f][0]
				if nb.cell == i {
					nb.cell = m.FaceCells[f][1]
				}
				rn = m.Center[nb.cell]
			}
			nb.dx = rn[0] - m.Center[i][0]
			nb.dy = rn[1] - m.Center[i][1]
			nb.w = 1. / (nb.dx*nb.dx + nb.dy*nb.dy)
			a11 += nb.w * nb.dx * nb.dx
			a12 += nb.w * nb.dx * nb.dy
			a22 += nb.w * nb.dy * nb.dy
			r.nbrs[i] = append(r.nbrs[i], nb)
		}
		det := a11*a22 - a12*a12
		if det == 0. {
			panic(fmt.Errorf("degenerate least squares stencil at cell %d", i))
		}
		r.inv[i] = [4]float64{a22 / det, -a12 / det, -a12 / det, a11 / det}
	}
	return
}

func (r *leastSquaresRecon) Compute(u, ug, dudx, dudy []float64) {
	r.pmap.RunParallel(func(kMin, kMax int) {
		var (
			nv = r.nvars
		)
		for i := kMin; i < kMax; i++ {
			for k := 0; k < nv; k++ {
				var bx, by float64
				for _, nb := range r.nbrs[i] {
					un := 0.
					if nb.cell >= 0 {
						un = u[nb.cell*nv+k]
					} else {
						un = ug[nb.bface*nv+k]
					}
					du := un - u[i*nv+k]
					bx += nb.w * du * nb.dx
					by += nb.w * du * nb.dy
				}
				dudx[i*nv+k] = r.inv[i][0]*bx + r.inv[i][1]*by
				dudy[i*nv+k] = r.inv[i][2]*bx + r.inv[i][3]*by
			}
		}
	})
}

type ggFace struct {
	cell     int // interior neighbor, -1 for a ghost
	bface    int
	snx, sny float64 // outward normal times face length
}

// greenGaussRecon evaluates ∇u_i = (1/A_i) Σ_f ½(u_i + u_nbr) n_f ℓ_f over
// the faces of each cell, with the normal oriented outward.
type greenGaussRecon struct {
	nvars int
	pmap  *utils.PartitionMap
	area  []float64
	refs  [][]ggFace
}

func newGreenGaussRecon(m *mesh.Mesh, rcg [][2]float64, nvars int) (r *greenGaussRecon) {
	r = &greenGaussRecon{
		nvars: nvars,
		pmap:  utils.NewPartitionMap(utils.DegreeOfParallelism(0), m.NumCells),
		area:  m.Area,
		refs:  make([][]ggFace, m.NumCells),
	}
	for i := 0; i < m.NumCells; i++ {
		for _, f := range m.CellFaces[i] {
			gf := ggFace{cell: -1, bface: -1}
			sign := 1.
			if m.FaceCells[f][0] != i {
				sign = -1.
				gf.cell = m.FaceCells[f][0]
			} else if m.IsBoundaryFace(f) {
				gf.bface = f
			} else {
				gf.cell = m.FaceCells[f][1]
			}
			gf.snx = sign * m.Normal[f][0] * m.FaceLength[f]
			gf.sny = sign * m.Normal[f][1] * m.FaceLength[f]
			r.refs[i] = append(r.refs[i], gf)
		}
	}
	return
}

func (r *greenGaussRecon) Compute(u, ug, dudx, dudy []float64) {
	r.pmap.RunParallel(func(kMin, kMax int) {
		var (
			nv = r.nvars
		)
		for i := kMin; i < kMax; i++ {
			for k := 0; k < nv; k++ {
				var gx, gy float64
				for _, gf := range r.refs[i] {
					un := 0.
					if gf.cell >= 0 {
						un = u[gf.cell*nv+k]
					} else {
						un = ug[gf.bface*nv+k]
					}
					avg := 0.5 * (u[i*nv+k] + un)
					gx += avg * gf.snx
					gy += avg * gf.sny
				}
				dudx[i*nv+k] = gx / r.area[i]
				dudy[i*nv+k] = gy / r.area[i]
			}
		}
	})
}
