package linsolve

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// GMRES is a restarted, left-preconditioned GMRES solver. Convergence is
// measured on the preconditioned residual relative to its initial value.
// Running out of iterations is not an error: the caller gets the best
// available correction and a warning is printed, matching the nonlinear
// driver's policy of applying partial updates.
type GMRES struct {
	Restart int
	MaxIter int
	Tol     float64
}

func NewGMRES(restart, maxIter int, tol float64) (g *GMRES) {
	if restart < 1 {
		restart = 30
	}
	if maxIter < 1 {
		maxIter = 200
	}
	if tol <= 0. {
		tol = 1.e-4
	}
	return &GMRES{Restart: restart, MaxIter: maxIter, Tol: tol}
}

// Solve overwrites x with the approximate solution of A x = b, starting from
// x = 0, and reports the number of operator applications spent.
func (g *GMRES) Solve(A LinearOperator, M Preconditioner, b, x []float64) (iters int, err error) {
	var (
		n = A.Dims()
		m = g.Restart
	)
	if len(b) != n || len(x) != n {
		return 0, fmt.Errorf("size mismatch: operator %d, rhs %d, solution %d", n, len(b), len(x))
	}
	var (
		V  = make([][]float64, m+1)
		H  = make([][]float64, m+1)
		cs = make([]float64, m)
		sn = make([]float64, m)
		gv = make([]float64, m+1)
		y  = make([]float64, m)
		w  = make([]float64, n)
		z  = make([]float64, n)
	)
	for i := range V {
		V[i] = make([]float64, n)
		H[i] = make([]float64, m)
	}
	for i := range x {
		x[i] = 0.
	}

	var beta0, res float64
	for iters < g.MaxIter {
		// Preconditioned residual r = M⁻¹(b − A x) seeds the Krylov basis.
		A.Apply(x, w)
		for i := range w {
			w[i] = b[i] - w[i]
		}
		M.Apply(w, V[0])
		beta := floats.Norm(V[0], 2)
		if beta0 == 0. {
			beta0 = beta
		}
		if beta0 == 0. || beta <= g.Tol*beta0 {
			return iters, nil
		}
		floats.Scale(1./beta, V[0])
		for i := range gv {
			gv[i] = 0.
		}
		gv[0] = beta

		j := 0
		for ; j < m && iters < g.MaxIter; j++ {
			iters++
			A.Apply(V[j], w)
			M.Apply(w, z)
			// Arnoldi step with modified Gram-Schmidt.
			for i := 0; i <= j; i++ {
				H[i][j] = floats.Dot(z, V[i])
				floats.AddScaled(z, -H[i][j], V[i])
			}
			H[j+1][j] = floats.Norm(z, 2)
			breakdown := H[j+1][j] <= 1.e-30*beta0
			if !breakdown {
				copy(V[j+1], z)
				floats.Scale(1./H[j+1][j], V[j+1])
			}
			// Rotate the new column into upper triangular form and update
			// the residual estimate.
			for i := 0; i < j; i++ {
				t := cs[i]*H[i][j] + sn[i]*H[i+1][j]
				H[i+1][j] = -sn[i]*H[i][j] + cs[i]*H[i+1][j]
				H[i][j] = t
			}
			cs[j], sn[j] = givens(H[j][j], H[j+1][j])
			H[j][j] = cs[j]*H[j][j] + sn[j]*H[j+1][j]
			H[j+1][j] = 0.
			gv[j+1] = -sn[j] * gv[j]
			gv[j] *= cs[j]
			res = math.Abs(gv[j+1])
			if res <= g.Tol*beta0 || breakdown {
				j++
				break
			}
		}
		// Back substitution over the j rotated columns, then the Krylov
		// correction x += V y.
		for i := j - 1; i >= 0; i-- {
			s := gv[i]
			for k := i + 1; k < j; k++ {
				s -= H[i][k] * y[k]
			}
			y[i] = s / H[i][i]
		}
		for k := 0; k < j; k++ {
			floats.AddScaled(x, y[k], V[k])
		}
		res = math.Abs(gv[j])
		if res <= g.Tol*beta0 {
			return iters, nil
		}
	}
	fmt.Printf("GMRES: no convergence in %d iterations, residual ratio %.3e\n",
		iters, res/beta0)
	return iters, nil
}

func givens(a, b float64) (c, s float64) {
	if b == 0. {
		return 1., 0.
	}
	if math.Abs(b) > math.Abs(a) {
		t := a / b
		s = 1. / math.Sqrt(1.+t*t)
		c = s * t
	} else {
		t := b / a
		c = 1. / math.Sqrt(1.+t*t)
		s = c * t
	}
	return
}
