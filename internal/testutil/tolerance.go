package testutil

import (
	"fmt"
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails tb if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(tb testing.TB, got, want []float64, eps float64) {
	tb.Helper()
	if len(got) != len(want) {
		tb.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			tb.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails tb if any element is NaN or Inf.
func RequireFinite(tb testing.TB, data []float64) {
	tb.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			tb.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbsDiff returns the maximum absolute difference between two slices.
// Returns an error if the slices differ in length.
func MaxAbsDiff(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(a), len(b))
	}
	maxDiff := 0.0
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff, nil
}

// PeakAbs returns the largest absolute sample value.
func PeakAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = max(peak, math.Abs(v))
	}
	return peak
}

// Peaks returns the indices whose absolute value exceeds threshold.
func Peaks(data []float64, threshold float64) []int {
	var idx []int
	for i, v := range data {
		if math.Abs(v) > threshold {
			idx = append(idx, i)
		}
	}
	return idx
}
