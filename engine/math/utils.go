package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// PadUniformBufferSize rounds size up to the next multiple of align.
// align must be zero or a power of two; zero returns size unchanged.
func PadUniformBufferSize[T constraints.Unsigned](size, align T) T {
	if align == 0 {
		return size
	}
	return (size + align - 1) &^ (align - 1)
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo[T constraints.Unsigned](v T) bool {
	return v != 0 && v&(v-1) == 0
}
