package utils

import "github.com/chewxy/math32"

// SmallNumber is the squared distance below which two values are treated as the same.
const SmallNumber float32 = 1e-8

// Clamp32 returns v limited to the range [lo, hi].
func Clamp32(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// Sign32 returns -1, 0 or 1 matching the sign of v.
func Sign32(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// IsNearlyZero reports whether |v| <= tolerance.
func IsNearlyZero(v, tolerance float32) bool {
	return math32.Abs(v) <= tolerance
}

// IsNearlyEqual reports whether a and b differ by at most tolerance.
func IsNearlyEqual(a, b, tolerance float32) bool {
	return math32.Abs(a-b) <= tolerance
}
