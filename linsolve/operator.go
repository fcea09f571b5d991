package linsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LinearOperator is what the Krylov solver multiplies by. Assembled block
// matrices and the matrix-free Jacobian both satisfy it.
type LinearOperator interface {
	Dims() int
	Apply(x, y []float64)
}

type matOperator struct {
	A BlockMatrix
}

// AsOperator wraps an assembled block matrix as a linear operator.
func AsOperator(A BlockMatrix) LinearOperator {
	return matOperator{A: A}
}

func (m matOperator) Dims() int            { return m.A.NumBlocks() * m.A.BlockSize() }
func (m matOperator) Apply(x, y []float64) { m.A.Apply(x, y) }

// MatrixFree applies the implicit system operator by directional residual
// differencing,
//
//	J v ≈ (R(u0 + ε v/|v|) − R(u0)) |v|/ε + (A_i/Δt_i) v
//
// so no Jacobian storage is needed. The base state, its residual and the
// per-cell time term must be refreshed every pseudo-time step.
type MatrixFree struct {
	Residual func(u, res []float64)
	Eps      float64
	bs       int
	u0, r0   []float64
	shift    []float64
	w, rw    []float64
}

func NewMatrixFree(residual func(u, res []float64), ncells, bs int) (mf *MatrixFree) {
	var (
		n = ncells * bs
	)
	mf = &MatrixFree{
		Residual: residual,
		Eps:      math.Sqrt(math.Nextafter(1., 2.)-1.) / 10.,
		bs:       bs,
		u0:       make([]float64, n),
		r0:       make([]float64, n),
		shift:    make([]float64, ncells),
		w:        make([]float64, n),
		rw:       make([]float64, n),
	}
	return
}

func (mf *MatrixFree) Dims() int { return len(mf.u0) }

// SetBase records the linearization state and its residual.
func (mf *MatrixFree) SetBase(u, res []float64) {
	copy(mf.u0, u)
	copy(mf.r0, res)
}

// SetShift records the per-cell pseudo-time term A_i/Δt_i.
func (mf *MatrixFree) SetShift(volOverDt []float64) {
	copy(mf.shift, volOverDt)
}

func (mf *MatrixFree) Apply(v, y []float64) {
	var (
		nv = floats.Norm(v, 2)
		bs = mf.bs
	)
	if nv == 0. {
		for i := range y {
			y[i] = 0.
		}
		return
	}
	h := mf.Eps / nv
	for i := range mf.w {
		mf.w[i] = mf.u0[i] + h*v[i]
	}
	mf.Residual(mf.w, mf.rw)
	for i := range y {
		y[i] = (mf.rw[i]-mf.r0[i])/h + mf.shift[i/bs]*v[i]
	}
}
