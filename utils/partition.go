package utils

import (
	"runtime"
	"sync"
)

// PartitionMap splits an index space [0,MaxIndex) into ParallelDegree
// contiguous buckets with a maximum imbalance of one item.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / pm.ParallelDegree
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) (kMax int) {
	var (
		k1, k2 = pm.GetBucketRange(bucketNum)
	)
	kMax = k2 - k1
	return
}

// RunParallel forks one goroutine per bucket, calls work with the bucket's
// index range, and joins. Every parallel region in the solver goes through
// here.
func (pm *PartitionMap) RunParallel(work func(kMin, kMax int)) {
	var (
		wg = sync.WaitGroup{}
	)
	for np := 0; np < pm.ParallelDegree; np++ {
		kMin, kMax := pm.GetBucketRange(np)
		wg.Add(1)
		go func(kMin, kMax int) {
			work(kMin, kMax)
			wg.Done()
		}(kMin, kMax)
	}
	wg.Wait()
}

// DegreeOfParallelism resolves a requested worker count, 0 meaning all CPUs.
func DegreeOfParallelism(requested int) (pd int) {
	pd = requested
	if pd <= 0 {
		pd = runtime.NumCPU()
	}
	return
}
