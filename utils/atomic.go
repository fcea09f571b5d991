package utils

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AtomicAdd accumulates val into *addr with a compare-and-swap loop so that
// concurrent face updates to the same cell total serialize correctly. The
// final sum is independent of schedule up to floating point rounding.
func AtomicAdd(addr *float64, val float64) {
	var (
		ptr = (*uint64)(unsafe.Pointer(addr))
	)
	for {
		old := atomic.LoadUint64(ptr)
		new := math.Float64bits(math.Float64frombits(old) + val)
		if atomic.CompareAndSwapUint64(ptr, old, new) {
			return
		}
	}
}
