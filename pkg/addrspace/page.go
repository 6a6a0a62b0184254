package addrspace

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// PageSize is the granularity of every mapping. Each mapping is also
// surrounded by exactly one unmapped guard page of this size.
const PageSize = 4096

// VirtualAddress is an address in the simulated range [0, 2^64).
type VirtualAddress uint64

func (a VirtualAddress) String() string {
	return fmt.Sprintf("%016X", uint64(a))
}

func alignDown[T constraints.Unsigned](x, align T) T {
	return x &^ (align - 1)
}

// alignUp rounds x up to a multiple of align. ok is false if the result
// does not fit in T.
func alignUp[T constraints.Unsigned](x, align T) (ret T, ok bool) {
	down := alignDown(x, align)
	if down == x {
		return x, true
	}

	ret = down + align
	return ret, ret > down
}

func isAligned[T constraints.Unsigned](x, align T) bool {
	return x&(align-1) == 0
}

// addOverflows reports whether a+b would wrap around.
func addOverflows(a, b uint64) bool {
	return a > math.MaxUint64-b
}
