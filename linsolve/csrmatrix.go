package linsolve

import (
	"github.com/james-bowman/sparse"
)

// CSRBlockMatrix is the general storage form: scalar entries live in a DOK
// during assembly and are compressed to CSR on first Apply after a
// modification. It accepts blocks for any (row, col) pair, so it also serves
// stencils the face form cannot express.
type CSRBlockMatrix struct {
	nblocks, bs int
	dok         *sparse.DOK
	csr         *sparse.CSR
	dirty       bool
}

func NewCSRBlockMatrix(nblocks, bs int) (A *CSRBlockMatrix) {
	var (
		n = nblocks * bs
	)
	A = &CSRBlockMatrix{
		nblocks: nblocks,
		bs:      bs,
		dok:     sparse.NewDOK(n, n),
		dirty:   true,
	}
	return
}

func (A *CSRBlockMatrix) Type() byte     { return 'c' }
func (A *CSRBlockMatrix) NumBlocks() int { return A.nblocks }
func (A *CSRBlockMatrix) BlockSize() int { return A.bs }

func (A *CSRBlockMatrix) Zero() {
	var (
		n = A.nblocks * A.bs
	)
	A.dok = sparse.NewDOK(n, n)
	A.csr = nil
	A.dirty = true
}

func (A *CSRBlockMatrix) UpdateDiagBlock(row int, blk []float64) {
	var (
		bs = A.bs
		r0 = row * bs
	)
	for i := 0; i < bs; i++ {
		for j := 0; j < bs; j++ {
			v := blk[i*bs+j]
			if v != 0. {
				A.dok.Set(r0+i, r0+j, A.dok.At(r0+i, r0+j)+v)
			}
		}
	}
	A.dirty = true
}

func (A *CSRBlockMatrix) SubmitBlock(row, col int, blk []float64, arg1, arg2 int) {
	var (
		bs = A.bs
		r0 = row * bs
		c0 = col * bs
	)
	_, _ = arg1, arg2
	for i := 0; i < bs; i++ {
		for j := 0; j < bs; j++ {
			A.dok.Set(r0+i, c0+j, blk[i*bs+j])
		}
	}
	A.dirty = true
}

func (A *CSRBlockMatrix) DiagBlock(row int, out []float64) {
	var (
		bs = A.bs
		r0 = row * bs
	)
	for i := 0; i < bs; i++ {
		for j := 0; j < bs; j++ {
			out[i*bs+j] = A.dok.At(r0+i, r0+j)
		}
	}
}

func (A *CSRBlockMatrix) Apply(x, y []float64) {
	if A.dirty {
		A.csr = A.dok.ToCSR()
		A.dirty = false
	}
	for i := range y {
		y[i] = 0.
	}
	A.csr.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
}
