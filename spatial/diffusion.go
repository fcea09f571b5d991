package spatial

import (
	"fmt"
	"math"

	"github.com/leshihua/FVENS/linsolve"
	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/utils"
)

// DiffusionFV is the scalar companion discretization, -ν Δu = f with
// Dirichlet boundaries, on the same mesh machinery as the flow solver. It
// serves as a verification vehicle for the assembly, the linear solvers and
// the pseudo-time drivers with one variable per cell.
type DiffusionFV struct {
	m  *mesh.Mesh
	nu float64

	source    func(x, y float64) float64
	dirichlet map[int]float64

	rcg   [][2]float64
	pmapF *utils.PartitionMap

	integ []float64
	dacc  []float64
}

// NewDiffusionFV builds the scalar scheme. dirichlet maps boundary markers to
// prescribed values; unlisted markers hold zero. source may be nil.
func NewDiffusionFV(m *mesh.Mesh, nu float64, dirichlet map[int]float64,
	source func(x, y float64) float64) (d *DiffusionFV, err error) {
	if nu <= 0. {
		return nil, fmt.Errorf("diffusivity must be positive, got %g", nu)
	}
	d = &DiffusionFV{
		m:         m,
		nu:        nu,
		source:    source,
		dirichlet: dirichlet,
		rcg:       make([][2]float64, m.NumBFaces),
		pmapF:     utils.NewPartitionMap(utils.DegreeOfParallelism(0), m.NumFaces),
		integ:     make([]float64, m.NumCells),
		dacc:      make([]float64, m.NumCells),
	}
	for f := 0; f < m.NumBFaces; f++ {
		var (
			l      = m.FaceCells[f][0]
			mx, my = m.FaceMidpoint(f)
		)
		d.rcg[f] = [2]float64{2.*mx - m.Center[l][0], 2.*my - m.Center[l][1]}
	}
	return
}

func (d *DiffusionFV) NumCells() int    { return d.m.NumCells }
func (d *DiffusionFV) NumVars() int     { return 1 }
func (d *DiffusionFV) Mesh() *mesh.Mesh { return d.m }

func (d *DiffusionFV) InitialState(u []float64) {
	for i := range u {
		u[i] = 0.
	}
}

func (d *DiffusionFV) CheckState(u []float64) error {
	for i, v := range u {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite value in cell %d", i)
		}
	}
	return nil
}

// faceGeom returns the ghost or neighbor value, the center distance and
// whether the face is interior.
func (d *DiffusionFV) faceGeom(f int, u []float64) (ur, dist float64, interior bool) {
	var (
		m = d.m
		l = m.FaceCells[f][0]
		r = m.FaceCells[f][1]
	)
	if f >= m.NumBFaces || m.PeriodicPartner[f] >= 0 {
		var (
			cl = m.Center[l]
			cr = m.Center[r]
		)
		if f < m.NumBFaces {
			cr = d.rcg[f]
		}
		return u[r], math.Hypot(cr[0]-cl[0], cr[1]-cl[1]), true
	}
	var (
		cl = m.Center[l]
		cg = d.rcg[f]
		g  = d.dirichlet[m.FaceMarker[f]]
	)
	return 2.*g - u[l], math.Hypot(cg[0]-cl[0], cg[1]-cl[1]), false
}

// Residual accumulates R(u) = -A ν Δu - A f by the two-point face flux.
func (d *DiffusionFV) Residual(u, res, dtm []float64) {
	var (
		m = d.m
	)
	for i := range res {
		res[i] = 0.
	}
	if dtm != nil {
		for i := range d.integ {
			d.integ[i] = 0.
		}
	}
	d.pmapF.RunParallel(func(fmin, fmax int) {
		for f := fmin; f < fmax; f++ {
			var (
				l         = m.FaceCells[f][0]
				r         = m.FaceCells[f][1]
				length    = m.FaceLength[f]
				ur, dist, interior = d.faceGeom(f, u)
				flx       = -d.nu * (ur - u[l]) / dist * length
			)
			utils.AtomicAdd(&res[l], flx)
			if interior && f >= m.NumBFaces {
				utils.AtomicAdd(&res[r], -flx)
			}
			if dtm == nil {
				continue
			}
			w := d.nu * length / dist
			utils.AtomicAdd(&d.integ[l], w)
			if interior && f >= m.NumBFaces {
				utils.AtomicAdd(&d.integ[r], w)
			}
		}
	})
	if d.source != nil {
		for i := 0; i < m.NumCells; i++ {
			c := m.Center[i]
			res[i] -= m.Area[i] * d.source(c[0], c[1])
		}
	}
	if dtm != nil {
		for i := 0; i < m.NumCells; i++ {
			if d.integ[i] > 0. {
				dtm[i] = m.Area[i] / d.integ[i]
			} else {
				dtm[i] = 1e30
			}
		}
	}
}

// Jacobian adds dR/du into A. Unlike the flow scheme the Dirichlet ghost
// chain is differentiated exactly, u_g = 2g - u_L.
func (d *DiffusionFV) Jacobian(u []float64, A linsolve.BlockMatrix) {
	var (
		m    = d.m
		face = A.Type() == 'd'
		blk  = [1]float64{}
	)
	for i := range d.dacc {
		d.dacc[i] = 0.
	}
	for f := 0; f < m.NumFaces; f++ {
		var (
			l       = m.FaceCells[f][0]
			r       = m.FaceCells[f][1]
			length  = m.FaceLength[f]
			_, dist, interior = d.faceGeom(f, u)
			w       = d.nu * length / dist
		)
		if interior && f >= m.NumBFaces {
			d.dacc[l] += w
			d.dacc[r] += w
			blk[0] = -w
			if face {
				A.SubmitBlock(l, r, blk[:], linsolve.TagUpper, f-m.NumBFaces)
				A.SubmitBlock(r, l, blk[:], linsolve.TagLower, f-m.NumBFaces)
			} else {
				A.SubmitBlock(l, r, blk[:], 1, 1)
				A.SubmitBlock(r, l, blk[:], 1, 1)
			}
			continue
		}
		if interior {
			// periodic boundary face, frozen remote coupling
			d.dacc[l] += w
			continue
		}
		d.dacc[l] += 2. * w
	}
	for i := 0; i < m.NumCells; i++ {
		blk[0] = d.dacc[i]
		A.UpdateDiagBlock(i, blk[:])
	}
}
