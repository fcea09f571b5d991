package linsolve

import (
	"fmt"

	"github.com/leshihua/FVENS/utils"
)

// Off-diagonal submission tags for the face-addressed storage form.
const (
	TagLower = 1
	TagUpper = 2
)

// BlockMatrix is the operator the implicit assembly writes into: a square
// block matrix with bs x bs blocks, one block row per cell. Off-diagonal
// submission depends on the storage form, so assemblers branch on Type():
// 'd' storage is addressed by interior face index and tag, anything else by
// the (row, col) block pair.
type BlockMatrix interface {
	Type() byte
	NumBlocks() int
	BlockSize() int
	// Zero clears all stored blocks.
	Zero()
	// UpdateDiagBlock adds blk into the diagonal block of the given row.
	UpdateDiagBlock(row int, blk []float64)
	// SubmitBlock sets an off-diagonal block. For Type 'd', arg1 is
	// TagLower or TagUpper and arg2 the interior face index; otherwise both
	// args carry the block size.
	SubmitBlock(row, col int, blk []float64, arg1, arg2 int)
	// Apply computes y = A x.
	Apply(x, y []float64)
	// DiagBlock copies the diagonal block of the given row into out.
	DiagBlock(row int, out []float64)
}

type faceRef struct {
	face  int
	col   int
	upper bool // this row is the face's left cell, so its block is U
}

// FaceBlockMatrix is the 'd' storage form: a diagonal block per cell plus a
// lower and an upper block per interior face, the layout the finite volume
// stencil induces. conn lists (left, right) cells per interior face.
type FaceBlockMatrix struct {
	nblocks, bs int
	D           []float64
	L, U        []float64
	conn        [][2]int
	rows        [][]faceRef
	pmap        *utils.PartitionMap
}

func NewFaceBlockMatrix(nblocks, bs int, conn [][2]int) (A *FaceBlockMatrix) {
	var (
		b2 = bs * bs
	)
	A = &FaceBlockMatrix{
		nblocks: nblocks,
		bs:      bs,
		D:       make([]float64, nblocks*b2),
		L:       make([]float64, len(conn)*b2),
		U:       make([]float64, len(conn)*b2),
		conn:    conn,
		rows:    make([][]faceRef, nblocks),
		pmap:    utils.NewPartitionMap(utils.DegreeOfParallelism(0), nblocks),
	}
	for f, lr := range conn {
		l, r := lr[0], lr[1]
		A.rows[l] = append(A.rows[l], faceRef{face: f, col: r, upper: true})
		A.rows[r] = append(A.rows[r], faceRef{face: f, col: l, upper: false})
	}
	return
}

func (A *FaceBlockMatrix) Type() byte     { return 'd' }
func (A *FaceBlockMatrix) NumBlocks() int { return A.nblocks }
func (A *FaceBlockMatrix) BlockSize() int { return A.bs }

func (A *FaceBlockMatrix) Zero() {
	for i := range A.D {
		A.D[i] = 0.
	}
	for i := range A.L {
		A.L[i] = 0.
		A.U[i] = 0.
	}
}

func (A *FaceBlockMatrix) UpdateDiagBlock(row int, blk []float64) {
	var (
		b2 = A.bs * A.bs
		d  = A.D[row*b2 : (row+1)*b2]
	)
	for i := range d {
		d[i] += blk[i]
	}
}

func (A *FaceBlockMatrix) SubmitBlock(row, col int, blk []float64, arg1, arg2 int) {
	var (
		b2  = A.bs * A.bs
		dst []float64
	)
	switch arg1 {
	case TagLower:
		dst = A.L[arg2*b2 : (arg2+1)*b2]
	case TagUpper:
		dst = A.U[arg2*b2 : (arg2+1)*b2]
	default:
		panic(fmt.Errorf("face form needs TagLower or TagUpper, got %d", arg1))
	}
	copy(dst, blk)
}

func (A *FaceBlockMatrix) DiagBlock(row int, out []float64) {
	var (
		b2 = A.bs * A.bs
	)
	copy(out, A.D[row*b2:(row+1)*b2])
}

// Apply runs block rows in parallel; every target cell is owned by exactly
// one bucket so no accumulation races occur.
func (A *FaceBlockMatrix) Apply(x, y []float64) {
	A.pmap.RunParallel(func(kMin, kMax int) {
		var (
			bs, b2 = A.bs, A.bs * A.bs
		)
		for row := kMin; row < kMax; row++ {
			yr := y[row*bs : (row+1)*bs]
			blockMulVec(A.D[row*b2:(row+1)*b2], x[row*bs:(row+1)*bs], yr, bs, true)
			for _, ref := range A.rows[row] {
				blk := A.L
				if ref.upper {
					blk = A.U
				}
				blockMulVec(blk[ref.face*b2:(ref.face+1)*b2],
					x[ref.col*bs:(ref.col+1)*bs], yr, bs, false)
			}
		}
	})
}

// blockMulVec computes y = B x (overwrite) or y += B x for one block.
func blockMulVec(B, x, y []float64, bs int, overwrite bool) {
	for i := 0; i < bs; i++ {
		s := 0.
		for j := 0; j < bs; j++ {
			s += B[i*bs+j] * x[j]
		}
		if overwrite {
			y[i] = s
		} else {
			y[i] += s
		}
	}
}
