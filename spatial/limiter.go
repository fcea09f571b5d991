package spatial

import (
	"fmt"
	"math"
	"strings"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/utils"
)

// Limiter turns cell averages, ghost values and cell gradients into left and
// right face states at the face quadrature points. Left values are written
// for every face, right values for interior and periodic faces; the right
// state of an ordinary boundary face comes from the boundary rule afterward.
type Limiter interface {
	ComputeFaceValues(u, ug, dudx, dudy, uleft, uright []float64)
}

// NewLimiter builds the limiter named in the configuration. param is the
// tuning constant of Venkatakrishnan's limiter, ignored by the others.
func NewLimiter(name string, m *mesh.Mesh, rcg [][2]float64, nvars int, param float64) Limiter {
	lb := newLimiterBase(m, rcg, nvars)
	switch strings.ToUpper(name) {
	case "NONE":
		return &noLimiter{limiterBase: lb}
	case "WENO":
		return &wenoLimiter{
			limiterBase: lb,
			gwx:         make([]float64, m.NumCells*nvars),
			gwy:         make([]float64, m.NumCells*nvars),
		}
	case "VANALBADA":
		return &vanAlbadaLimiter{limiterBase: lb}
	case "BARTHJESPERSEN":
		return &boundedLimiter{
			limiterBase: lb,
			phi:         make([]float64, m.NumCells*nvars),
			venkat:      false,
		}
	case "VENKATAKRISHNAN":
		return &boundedLimiter{
			limiterBase: lb,
			phi:         make([]float64, m.NumCells*nvars),
			venkat:      true,
			k:           param,
		}
	default:
		panic(fmt.Errorf("unknown limiter %s", name))
	}
}

type limiterBase struct {
	m     *mesh.Mesh
	rcg   [][2]float64
	nvars int
	gp    [][2]float64 // one quadrature point per face, the midpoint
	pmapF *utils.PartitionMap
	pmapC *utils.PartitionMap
}

func newLimiterBase(m *mesh.Mesh, rcg [][2]float64, nvars int) limiterBase {
	lb := limiterBase{
		m:     m,
		rcg:   rcg,
		nvars: nvars,
		gp:    make([][2]float64, m.NumFaces),
		pmapF: utils.NewPartitionMap(utils.DegreeOfParallelism(0), m.NumFaces),
		pmapC: utils.NewPartitionMap(utils.DegreeOfParallelism(0), m.NumCells),
	}
	for f := 0; f < m.NumFaces; f++ {
		lb.gp[f][0], lb.gp[f][1] = m.GaussPoint(f, 0, 1)
	}
	return lb
}

// rightCell resolves the reconstruction cell behind a face's right state: the
// right cell for interior faces, the periodic partner for linked boundary
// faces (with its center translated across the periodic map), none otherwise.
func (lb *limiterBase) rightCell(f int) (r int, rc [2]float64, ok bool) {
	if !lb.m.IsBoundaryFace(f) {
		r = lb.m.FaceCells[f][1]
		return r, lb.m.Center[r], true
	}
	if lb.m.PeriodicPartner[f] >= 0 {
		return lb.m.FaceCells[f][1], lb.rcg[f], true
	}
	return 0, rc, false
}

func (lb *limiterBase) extrapolate(cell, f int, rc [2]float64, u, gx, gy, out []float64) {
	var (
		nv = lb.nvars
		dx = lb.gp[f][0] - rc[0]
		dy = lb.gp[f][1] - rc[1]
	)
	for k := 0; k < nv; k++ {
		out[f*nv+k] = u[cell*nv+k] + gx[cell*nv+k]*dx + gy[cell*nv+k]*dy
	}
}

// noLimiter reconstructs face values by plain linear extrapolation to the
// quadrature point.
type noLimiter struct {
	limiterBase
}

func (l *noLimiter) ComputeFaceValues(u, ug, dudx, dudy, uleft, uright []float64) {
	l.pmapF.RunParallel(func(kMin, kMax int) {
		for f := kMin; f < kMax; f++ {
			lc := l.m.FaceCells[f][0]
			l.extrapolate(lc, f, l.m.Center[lc], u, dudx, dudy, uleft)
			if rc, rcc, ok := l.rightCell(f); ok {
				l.extrapolate(rc, f, rcc, u, dudx, dudy, uright)
			}
		}
	})
}

// WENO smoothness constants: oscillation exponent, linear weight of the
// central gradient, and the floor keeping weights finite.
const (
	wenoExponent      = 4.
	wenoCentralWeight = 1000.
	wenoEps           = 1.e-5
)

// wenoLimiter replaces each cell gradient by a smoothness weighted blend of
// the cell's own gradient and its interior neighbors' gradients, then
// extrapolates like noLimiter. Oscillatory gradients get small weights, so
// near discontinuities the flattest stencil dominates.
type wenoLimiter struct {
	limiterBase
	gwx, gwy []float64
}

func (l *wenoLimiter) ComputeFaceValues(u, ug, dudx, dudy, uleft, uright []float64) {
	l.pmapC.RunParallel(func(kMin, kMax int) {
		var (
			nv = l.nvars
		)
		for i := kMin; i < kMax; i++ {
			for k := 0; k < nv; k++ {
				gx, gy := dudx[i*nv+k], dudy[i*nv+k]
				beta := gx*gx + gy*gy
				w := wenoCentralWeight / math.Pow(beta+wenoEps, wenoExponent)
				wsum, bx, by := w, w*gx, w*gy
				for kf := range l.m.CellFaces[i] {
					nbr := l.m.CellNeighbor(i, kf)
					if nbr >= l.m.NumCells {
						continue
					}
					gx, gy = dudx[nbr*nv+k], dudy[nbr*nv+k]
					beta = gx*gx + gy*gy
					w = 1. / math.Pow(beta+wenoEps, wenoExponent)
					wsum += w
					bx += w * gx
					by += w * gy
				}
				l.gwx[i*nv+k] = bx / wsum
				l.gwy[i*nv+k] = by / wsum
			}
		}
	})
	l.pmapF.RunParallel(func(kMin, kMax int) {
		for f := kMin; f < kMax; f++ {
			lc := l.m.FaceCells[f][0]
			l.extrapolate(lc, f, l.m.Center[lc], u, l.gwx, l.gwy, uleft)
			if rc, rcc, ok := l.rightCell(f); ok {
				l.extrapolate(rc, f, rcc, u, l.gwx, l.gwy, uright)
			}
		}
	})
}

const muscl = 1. / 3.

// vanAlbadaLimiter is the MUSCL reconstruction along the line joining the
// two cell centers of a face, limited by the van Albada factor. Boundary
// faces fall back to plain extrapolation of the left state.
type vanAlbadaLimiter struct {
	limiterBase
}

func (l *vanAlbadaLimiter) ComputeFaceValues(u, ug, dudx, dudy, uleft, uright []float64) {
	l.pmapF.RunParallel(func(kMin, kMax int) {
		var (
			nv = l.nvars
		)
		for f := kMin; f < kMax; f++ {
			lc := l.m.FaceCells[f][0]
			rc, rcc, ok := l.rightCell(f)
			if !ok {
				l.extrapolate(lc, f, l.m.Center[lc], u, dudx, dudy, uleft)
				continue
			}
			var (
				dx = rcc[0] - l.m.Center[lc][0]
				dy = rcc[1] - l.m.Center[lc][1]
			)
			for k := 0; k < nv; k++ {
				du := u[rc*nv+k] - u[lc*nv+k]
				dmL := 2.*(dudx[lc*nv+k]*dx+dudy[lc*nv+k]*dy) - du
				dmR := 2.*(dudx[rc*nv+k]*dx+dudy[rc*nv+k]*dy) - du
				phiL := vanAlbada(dmL, du)
				phiR := vanAlbada(dmR, du)
				uleft[f*nv+k] = u[lc*nv+k] +
					0.25*phiL*((1.-muscl*phiL)*dmL+(1.+muscl*phiL)*du)
				uright[f*nv+k] = u[rc*nv+k] -
					0.25*phiR*((1.-muscl*phiR)*dmR+(1.+muscl*phiR)*du)
			}
		}
	})
}

func vanAlbada(a, b float64) (phi float64) {
	const eps = 1.e-12
	phi = (2.*a*b + eps) / (a*a + b*b + eps)
	if phi < 0. {
		phi = 0.
	}
	return
}

// boundedLimiter covers Barth-Jespersen (venkat false) and Venkatakrishnan
// (venkat true). Each cell gets one limiting factor per component, the
// minimum over its faces of the slope bound against the neighborhood
// extrema, and reconstruction scales the gradient by that factor.
type boundedLimiter struct {
	limiterBase
	phi    []float64
	venkat bool
	k      float64
}

func (l *boundedLimiter) ComputeFaceValues(u, ug, dudx, dudy, uleft, uright []float64) {
	l.pmapC.RunParallel(func(kMin, kMax int) {
		var (
			nv   = l.nvars
			umin = make([]float64, nv)
			umax = make([]float64, nv)
		)
		for i := kMin; i < kMax; i++ {
			for k := 0; k < nv; k++ {
				umin[k], umax[k] = u[i*nv+k], u[i*nv+k]
			}
			for kf, f := range l.m.CellFaces[i] {
				for k := 0; k < nv; k++ {
					un := 0.
					if nbr := l.m.CellNeighbor(i, kf); nbr < l.m.NumCells {
						un = u[nbr*nv+k]
					} else {
						un = ug[f*nv+k]
					}
					umin[k] = math.Min(umin[k], un)
					umax[k] = math.Max(umax[k], un)
				}
			}
			var eps2 float64
			if l.venkat {
				h := math.Sqrt(4. * l.m.Area[i] / math.Pi)
				eps2 = math.Pow(l.k*h, 3.)
			}
			for k := 0; k < nv; k++ {
				phi := 1.
				for _, f := range l.m.CellFaces[i] {
					var (
						dx = l.gp[f][0] - l.m.Center[i][0]
						dy = l.gp[f][1] - l.m.Center[i][1]
						dm = dudx[i*nv+k]*dx + dudy[i*nv+k]*dy
					)
					if dm == 0. {
						continue
					}
					dp := umax[k] - u[i*nv+k]
					if dm < 0. {
						dp = umin[k] - u[i*nv+k]
					}
					var psi float64
					if l.venkat {
						psi = (dp*dp+eps2)*dm + 2.*dm*dm*dp
						psi /= dm * (dp*dp + 2.*dm*dm + dm*dp + eps2)
					} else {
						psi = math.Min(1., dp/dm)
					}
					phi = math.Min(phi, psi)
				}
				if phi < 0. {
					phi = 0.
				}
				l.phi[i*nv+k] = phi
			}
		}
	})
	l.pmapF.RunParallel(func(kMin, kMax int) {
		var (
			nv = l.nvars
		)
		for f := kMin; f < kMax; f++ {
			lc := l.m.FaceCells[f][0]
			l.limited(lc, f, l.m.Center[lc], u, dudx, dudy, uleft, nv)
			if rc, rcc, ok := l.rightCell(f); ok {
				l.limited(rc, f, rcc, u, dudx, dudy, uright, nv)
			}
		}
	})
}

func (l *boundedLimiter) limited(cell, f int, rc [2]float64, u, gx, gy, out []float64, nv int) {
	var (
		dx = l.gp[f][0] - rc[0]
		dy = l.gp[f][1] - rc[1]
	)
	for k := 0; k < nv; k++ {
		out[f*nv+k] = u[cell*nv+k] +
			l.phi[cell*nv+k]*(gx[cell*nv+k]*dx+gy[cell*nv+k]*dy)
	}
}
