package gpu

import "github.com/cockroachdb/errors"

// Returns true if v is a non-zero power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

// Round v up to the next multiple of align. Alignment must be a power of two.
func AlignUp(v, align uint64) uint64 {
	if !IsPowerOfTwo(align) {
		panic(errors.AssertionFailedf("gpu: alignment %d is not a power of two", align))
	}
	return (v + align - 1) &^ (align - 1)
}
