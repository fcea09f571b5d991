package linsolve

import (
	"fmt"
	"strings"

	"github.com/leshihua/FVENS/utils"
)

// Preconditioner approximates the inverse of an assembled block matrix.
// Build is called once per pseudo-time step after assembly, Apply once per
// Krylov iteration.
type Preconditioner interface {
	Build(A BlockMatrix) error
	Apply(r, z []float64)
}

// NewPreconditioner maps a config name to a preconditioner. sweeps is the
// symmetric sweep count for SGS application.
func NewPreconditioner(name string, sweeps int) Preconditioner {
	switch strings.ToUpper(name) {
	case "", "NONE":
		return &NoPrec{}
	case "JACOBI":
		return &BlockJacobi{}
	case "SGS":
		return NewBlockSGS(sweeps)
	default:
		panic(fmt.Errorf("unknown preconditioner %s", name))
	}
}

type NoPrec struct{}

func (p *NoPrec) Build(A BlockMatrix) error { return nil }
func (p *NoPrec) Apply(r, z []float64)      { copy(z, r) }

// BlockJacobi inverts every diagonal block at build time.
type BlockJacobi struct {
	nblocks, bs int
	dinv        []float64
	pmap        *utils.PartitionMap
}

func (p *BlockJacobi) Build(A BlockMatrix) (err error) {
	p.nblocks, p.bs = A.NumBlocks(), A.BlockSize()
	if p.dinv, err = invertDiagonals(A, p.dinv); err != nil {
		return err
	}
	if p.pmap == nil || p.pmap.MaxIndex != p.nblocks {
		p.pmap = utils.NewPartitionMap(utils.DegreeOfParallelism(0), p.nblocks)
	}
	return nil
}

func (p *BlockJacobi) Apply(r, z []float64) {
	p.pmap.RunParallel(func(kMin, kMax int) {
		var (
			bs, b2 = p.bs, p.bs * p.bs
		)
		for row := kMin; row < kMax; row++ {
			blockMulVec(p.dinv[row*b2:(row+1)*b2], r[row*bs:(row+1)*bs],
				z[row*bs:(row+1)*bs], bs, true)
		}
	})
}

// BlockSGS runs symmetric block Gauss-Seidel sweeps over the face-addressed
// storage form. Each Apply starts from z = 0, so one sweep is the classic
// forward (D+L) then backward (D+U) solve.
type BlockSGS struct {
	Sweeps      int
	nblocks, bs int
	dinv        []float64
	fm          *FaceBlockMatrix
	s           []float64
}

func NewBlockSGS(sweeps int) (p *BlockSGS) {
	if sweeps < 1 {
		sweeps = 1
	}
	return &BlockSGS{Sweeps: sweeps}
}

func (p *BlockSGS) Build(A BlockMatrix) (err error) {
	fm, ok := A.(*FaceBlockMatrix)
	if !ok {
		return fmt.Errorf("SGS needs the face addressed storage form, got type %q", A.Type())
	}
	p.fm = fm
	p.nblocks, p.bs = A.NumBlocks(), A.BlockSize()
	if p.dinv, err = invertDiagonals(A, p.dinv); err != nil {
		return err
	}
	if len(p.s) != p.bs {
		p.s = make([]float64, p.bs)
	}
	return nil
}

func (p *BlockSGS) Apply(r, z []float64) {
	for i := range z {
		z[i] = 0.
	}
	for sweep := 0; sweep < p.Sweeps; sweep++ {
		for row := 0; row < p.nblocks; row++ {
			p.relaxRow(row, r, z)
		}
		for row := p.nblocks - 1; row >= 0; row-- {
			p.relaxRow(row, r, z)
		}
	}
}

func (p *BlockSGS) relaxRow(row int, r, z []float64) {
	var (
		bs, b2 = p.bs, p.bs * p.bs
		fm     = p.fm
		s      = p.s
	)
	copy(s, r[row*bs:(row+1)*bs])
	for _, ref := range fm.rows[row] {
		blk := fm.L
		if ref.upper {
			blk = fm.U
		}
		off := ref.face * b2
		zc := z[ref.col*bs : (ref.col+1)*bs]
		for i := 0; i < bs; i++ {
			t := 0.
			for j := 0; j < bs; j++ {
				t += blk[off+i*bs+j] * zc[j]
			}
			s[i] -= t
		}
	}
	blockMulVec(p.dinv[row*b2:(row+1)*b2], s, z[row*bs:(row+1)*bs], bs, true)
}

func invertDiagonals(A BlockMatrix, dinv []float64) ([]float64, error) {
	var (
		nb, bs = A.NumBlocks(), A.BlockSize()
		b2     = bs * bs
		blk    = make([]float64, b2)
	)
	if len(dinv) != nb*b2 {
		dinv = make([]float64, nb*b2)
	}
	for row := 0; row < nb; row++ {
		A.DiagBlock(row, blk)
		inv, err := utils.NewMatrix(bs, bs, blk).Inverse()
		if err != nil {
			return nil, fmt.Errorf("singular diagonal block in row %d: %v", row, err)
		}
		copy(dinv[row*b2:(row+1)*b2], inv.Data())
	}
	return dinv, nil
}
