package core

import (
	"math"

	"golang.org/x/exp/constraints"
)

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [lo, hi].
// NaN floats clamp to lo.
func Clamp[T constraints.Integer | constraints.Float](value, lo, hi T) T {
	if lo > hi {
		lo, hi = hi, lo
	}

	if value != value { // NaN
		return lo
	}

	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// Recursive filter state decaying towards silence otherwise slows hot loops.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// RampAt returns the gain of a linear start→end ramp at position i of a
// length-n window. The first sample is one step past start and the last
// sample lands exactly on end, so consecutive ramps chain without
// repeating a value.
func RampAt(start, end float64, i, n int) float64 {
	if n <= 0 {
		return end
	}

	return start + (end-start)*float64(i+1)/float64(n)
}

// RampSegment returns the start and end gains of the sub-ramp covering
// positions [offset, offset+length) of a length-n start→end ramp, in the
// same convention as RampAt.
func RampSegment(start, end float64, offset, length, n int) (float64, float64) {
	if n <= 0 {
		return end, end
	}

	step := (end - start) / float64(n)

	return start + step*float64(offset), start + step*float64(offset+length)
}
