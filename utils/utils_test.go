package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Buckets tile the index space with imbalance of at most one
		for maxIndex := 1; maxIndex < 500; maxIndex++ {
			pm := NewPartitionMap(7, maxIndex)
			var total, minDim, maxDim int
			minDim = maxIndex
			for np := 0; np < pm.ParallelDegree; np++ {
				kMin, kMax := pm.GetBucketRange(np)
				dim := pm.GetBucketDimension(np)
				assert.Equal(t, kMax-kMin, dim)
				if np > 0 {
					prev := pm.Partitions[np-1]
					assert.Equal(t, prev[1], kMin)
				}
				total += dim
				if dim < minDim {
					minDim = dim
				}
				if dim > maxDim {
					maxDim = dim
				}
			}
			assert.Equal(t, maxIndex, total)
			assert.True(t, maxDim-minDim <= 1)
		}
	}
	{ // RunParallel visits every index exactly once
		var (
			N       = 1000
			pm      = NewPartitionMap(5, N)
			visited = make([]int32, N)
		)
		pm.RunParallel(func(kMin, kMax int) {
			for k := kMin; k < kMax; k++ {
				visited[k]++
			}
		})
		for k := 0; k < N; k++ {
			assert.Equal(t, int32(1), visited[k])
		}
	}
	{
		assert.Equal(t, 1, NewPartitionMap(0, 10).ParallelDegree)
		assert.True(t, DegreeOfParallelism(0) >= 1)
		assert.Equal(t, 3, DegreeOfParallelism(3))
	}
}

func TestAtomicAdd(t *testing.T) {
	var (
		sum float64
		pm  = NewPartitionMap(8, 100000)
	)
	pm.RunParallel(func(kMin, kMax int) {
		for k := kMin; k < kMax; k++ {
			AtomicAdd(&sum, 0.5)
		}
	})
	assert.True(t, math.Abs(sum-50000.) < 1.e-08)
}

func TestMatrix(t *testing.T) {
	{ // Multiply and data access
		A := NewMatrix(2, 2, []float64{1, 2, 3, 4})
		B := NewMatrix(2, 2, []float64{0, 1, 1, 0})
		C := A.Mul(B)
		assert.Equal(t, []float64{2, 1, 4, 3}, C.Data())
		assert.Equal(t, []float64{4, 3}, C.Row(1))
	}
	{ // Inverse of a diagonal block
		A := NewMatrix(2, 2, []float64{4, 0, 0, 2})
		Ainv, err := A.Inverse()
		assert.NoError(t, err)
		assert.InDelta(t, 0.25, Ainv.At(0, 0), 1.e-14)
		assert.InDelta(t, 0.5, Ainv.At(1, 1), 1.e-14)
	}
	{ // Chainable mutators
		A := NewMatrix(2, 2, []float64{1, 1, 1, 1})
		A.Scale(2).Add(NewMatrix(2, 2, []float64{1, 0, 0, 1}))
		assert.Equal(t, []float64{3, 2, 2, 3}, A.Data())
		assert.InDelta(t, 3., A.Max(), 1.e-15)
		assert.InDelta(t, 2., A.Min(), 1.e-15)
	}
	{ // Read-only guard
		A := NewMatrix(1, 1)
		A.SetReadOnly("A")
		assert.Panics(t, func() { A.Set(0, 0, 1.) })
	}
}
