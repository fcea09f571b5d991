package output

import (
	"math"

	"github.com/leshihua/FVENS/mesh"
	"github.com/leshihua/FVENS/physics"
)

// Fields holds the post-processed scalar and vector fields, nodal and
// per-cell, ready for the writers.
type Fields struct {
	// nodal, length NumNodes
	Density  []float64
	Mach     []float64
	Pressure []float64
	VelX     []float64
	VelY     []float64

	// per cell
	CellDensity  []float64
	CellMach     []float64
	CellPressure []float64
}

// Postprocess area-weight-averages the conserved state to the nodes and
// derives the output quantities from the averaged state.
func Postprocess(m *mesh.Mesh, fs *physics.FreeStream, u []float64) (pf *Fields) {
	var (
		nv = physics.NVars
		un = make([]float64, m.NumNodes*nv)
		wt = make([]float64, m.NumNodes)
	)
	for i := 0; i < m.NumCells; i++ {
		for _, nd := range m.CellNodes[i] {
			wt[nd] += m.Area[i]
			for k := 0; k < nv; k++ {
				un[nd*nv+k] += m.Area[i] * u[i*nv+k]
			}
		}
	}
	for nd := 0; nd < m.NumNodes; nd++ {
		if wt[nd] > 0. {
			for k := 0; k < nv; k++ {
				un[nd*nv+k] /= wt[nd]
			}
		}
	}

	pf = &Fields{
		Density:      make([]float64, m.NumNodes),
		Mach:         make([]float64, m.NumNodes),
		Pressure:     make([]float64, m.NumNodes),
		VelX:         make([]float64, m.NumNodes),
		VelY:         make([]float64, m.NumNodes),
		CellDensity:  make([]float64, m.NumCells),
		CellMach:     make([]float64, m.NumCells),
		CellPressure: make([]float64, m.NumCells),
	}
	for nd := 0; nd < m.NumNodes; nd++ {
		q := un[nd*nv : nd*nv+nv]
		pf.Density[nd], pf.VelX[nd], pf.VelY[nd], pf.Pressure[nd], pf.Mach[nd] = flowPoint(fs, q)
	}
	for i := 0; i < m.NumCells; i++ {
		q := u[i*nv : i*nv+nv]
		pf.CellDensity[i], _, _, pf.CellPressure[i], pf.CellMach[i] = flowPoint(fs, q)
	}
	return
}

func flowPoint(fs *physics.FreeStream, q []float64) (rho, vx, vy, p, mach float64) {
	rho = q[0]
	vx, vy = q[1]/q[0], q[2]/q[0]
	p = fs.Pressure(q)
	c := fs.SoundSpeed(rho, p)
	mach = math.Hypot(vx, vy) / c
	return
}

// EntropyError is the area-weighted L2 norm of the relative entropy
// deviation from the free stream, the error measure of the isentropic
// verification cases.
func EntropyError(m *mesh.Mesh, fs *physics.FreeStream, u []float64) (err float64) {
	var (
		nv    = physics.NVars
		sinf  = fs.Entropy(fs.Qinf[:])
		total float64
	)
	for i := 0; i < m.NumCells; i++ {
		ds := (fs.Entropy(u[i*nv:i*nv+nv]) - sinf) / sinf
		err += m.Area[i] * ds * ds
		total += m.Area[i]
	}
	err = math.Sqrt(err / total)
	return
}
