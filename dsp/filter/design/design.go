package design

import (
	"math"

	"github.com/cwbudde/algo-tapdelay/dsp/filter/biquad"
)

// DefaultQ is the Butterworth quality factor used for second-order designs.
const DefaultQ = 1 / math.Sqrt2

// Lowpass designs a second-order lowpass biquad at freq (Hz) with quality
// factor q.
func Lowpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	b1 := 1 - cw
	b0 := b1 / 2
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

// Highpass designs a second-order highpass biquad at freq (Hz) with quality
// factor q.
func Highpass(freq, q, sampleRate float64) biquad.Coefficients {
	w0, ok := normalizedW0(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	q = normalizedQ(q)
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	b0 := (1 + cw) / 2
	b1 := -(1 + cw)
	b2 := b0
	a0 := 1 + alpha
	a1 := -2 * cw
	a2 := 1 - alpha

	return normalizeBiquad(b0, b1, b2, a0, a1, a2)
}

// FirstOrderLowpass designs a first-order lowpass section (B2 = A2 = 0).
func FirstOrderLowpass(freq, sampleRate float64) biquad.Coefficients {
	k, ok := bilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{
		B0: k * norm,
		B1: k * norm,
		A1: (k - 1) * norm,
	}
}

// FirstOrderHighpass designs a first-order highpass section (B2 = A2 = 0).
func FirstOrderHighpass(freq, sampleRate float64) biquad.Coefficients {
	k, ok := bilinearK(freq, sampleRate)
	if !ok {
		return biquad.Coefficients{}
	}

	norm := 1 / (1 + k)

	return biquad.Coefficients{
		B0: norm,
		B1: -norm,
		A1: (k - 1) * norm,
	}
}

// LowpassOrder returns a lowpass of the given order (1, or 2 for anything
// else) with Butterworth damping.
func LowpassOrder(order int, freq, sampleRate float64) biquad.Coefficients {
	if order == 1 {
		return FirstOrderLowpass(freq, sampleRate)
	}

	return Lowpass(freq, DefaultQ, sampleRate)
}

// HighpassOrder returns a highpass of the given order (1, or 2 for anything
// else) with Butterworth damping.
func HighpassOrder(order int, freq, sampleRate float64) biquad.Coefficients {
	if order == 1 {
		return FirstOrderHighpass(freq, sampleRate)
	}

	return Highpass(freq, DefaultQ, sampleRate)
}

func valid(freq, sampleRate float64) bool {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return false
	}

	return freq > 0 && freq < sampleRate/2 && !math.IsNaN(freq) && !math.IsInf(freq, 0)
}

func normalizedW0(freq, sampleRate float64) (float64, bool) {
	if !valid(freq, sampleRate) {
		return 0, false
	}

	return 2 * math.Pi * freq / sampleRate, true
}

// bilinearK computes the prewarped frequency tan(pi*freq/sampleRate).
func bilinearK(freq, sampleRate float64) (float64, bool) {
	if !valid(freq, sampleRate) {
		return 0, false
	}

	return math.Tan(math.Pi * freq / sampleRate), true
}

func normalizedQ(q float64) float64 {
	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return DefaultQ
	}

	return q
}

func normalizeBiquad(b0, b1, b2, a0, a1, a2 float64) biquad.Coefficients {
	if a0 == 0 || math.IsNaN(a0) || math.IsInf(a0, 0) {
		return biquad.Coefficients{}
	}

	return biquad.Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
