package biquad

import (
	"math"
	"testing"
)

const eps = 1e-12

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// refCoeffs is a stable lowpass-like section used across tests.
var refCoeffs = Coefficients{B0: 0.25, B1: 0.5, B2: 0.25, A1: -0.2, A2: 0.04}

func TestProcessSampleHandTraced(t *testing.T) {
	// x = [1, 0, 0, 0]
	// n=0: y=0.25           d0=0.5+0.05=0.55     d1=0.25-0.01=0.24
	// n=1: y=0.55           d0=0.11+0.24=0.35    d1=-0.022
	// n=2: y=0.35           d0=0.07-0.022=0.048  d1=-0.014
	// n=3: y=0.048
	s := NewSection(refCoeffs)

	want := []float64{0.25, 0.55, 0.35, 0.048}
	for i, w := range want {
		var x float64
		if i == 0 {
			x = 1
		}
		if y := s.ProcessSample(x); !almostEqual(y, w, eps) {
			t.Fatalf("sample %d: got %.15f want %.15f", i, y, w)
		}
	}
}

func TestIdentityPassesThrough(t *testing.T) {
	s := NewSection(Identity())
	for i, x := range []float64{1, 0, -1, 0.5, 0.25} {
		if y := s.ProcessSample(x); y != x {
			t.Fatalf("sample %d: got %v want %v", i, y, x)
		}
	}
}

func TestProcessBlockMatchesSample(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 8, 33} {
		input := make([]float64, n)
		for i := range input {
			input[i] = math.Sin(float64(i) * 0.7)
		}

		ref := NewSection(refCoeffs)
		want := make([]float64, n)
		for i, x := range input {
			want[i] = ref.ProcessSample(x)
		}

		s := NewSection(refCoeffs)
		block := append([]float64(nil), input...)
		s.ProcessBlock(block)

		for i := range block {
			if !almostEqual(block[i], want[i], eps) {
				t.Fatalf("n=%d sample %d: block=%.15f sample=%.15f", n, i, block[i], want[i])
			}
		}
		if s.State() != ref.State() {
			t.Fatalf("n=%d: state %v want %v", n, s.State(), ref.State())
		}
	}
}

func TestProcessBlockSplitMatchesWhole(t *testing.T) {
	input := []float64{1, 0.5, -0.3, 0.7, 0, -1, 0.2, 0.8, -0.1}

	whole := NewSection(refCoeffs)
	a := append([]float64(nil), input...)
	whole.ProcessBlock(a)

	split := NewSection(refCoeffs)
	b := append([]float64(nil), input...)
	split.ProcessBlock(b[:3])
	split.ProcessBlock(b[3:])

	for i := range a {
		if !almostEqual(a[i], b[i], eps) {
			t.Fatalf("sample %d: whole=%v split=%v", i, a[i], b[i])
		}
	}
}

func TestSetCoefficientsKeepsState(t *testing.T) {
	s := NewSection(refCoeffs)
	s.ProcessSample(1)
	before := s.State()

	s.SetCoefficients(Coefficients{B0: 0.5, B1: 0.5})
	if s.State() != before {
		t.Fatalf("state changed: %v -> %v", before, s.State())
	}
	if s.B0 != 0.5 || s.A1 != 0 {
		t.Fatalf("coefficients not replaced: %+v", s.Coefficients)
	}
}

func TestPureDelay(t *testing.T) {
	s := NewSection(Coefficients{B1: 1})
	input := []float64{1, 2, 3, 4, 5}
	want := []float64{0, 1, 2, 3, 4}
	for i, x := range input {
		if y := s.ProcessSample(x); y != want[i] {
			t.Fatalf("sample %d: got %v want %v", i, y, want[i])
		}
	}
}

func TestResetAndStateRestore(t *testing.T) {
	s := NewSection(refCoeffs)
	s.ProcessSample(1)
	s.ProcessSample(0.5)
	saved := s.State()

	y3 := s.ProcessSample(-0.3)
	y4 := s.ProcessSample(0.7)

	s.SetState(saved)
	if got := s.ProcessSample(-0.3); !almostEqual(got, y3, eps) {
		t.Fatalf("after restore: got %v want %v", got, y3)
	}
	if got := s.ProcessSample(0.7); !almostEqual(got, y4, eps) {
		t.Fatalf("after restore: got %v want %v", got, y4)
	}

	s.Reset()
	if st := s.State(); st != [2]float64{} {
		t.Fatalf("state not zero after reset: %v", st)
	}
}

func TestLongRunDecays(t *testing.T) {
	s := NewSection(refCoeffs)
	s.ProcessSample(1)
	for range 10000 {
		s.ProcessSample(0)
	}

	st := s.State()
	if math.Abs(st[0]) > 1e-100 || math.Abs(st[1]) > 1e-100 {
		t.Fatalf("state did not decay: %v", st)
	}
}
