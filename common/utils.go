package common

// Coalesce returns the first value that is not the zero value of T, or the zero value.
// Used to fill unset descriptor fields with defaults.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds n up to the next multiple of align. align must be non-zero.
//
// Parameters:
//   - n: the value to round
//   - align: the granularity
//
// Returns:
//   - T: the smallest multiple of align that is >= n
func AlignUp[T ~uint32 | ~uint64](n, align T) T {
	return (n + align - 1) / align * align
}
