// Package response computes the magnitude curves an editor draws for a tap
// filter. All functions allocate and are meant for the control thread.
package response

import (
	"fmt"
	"math"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-tapdelay/dsp/filter/biquad"
	"github.com/cwbudde/algo-tapdelay/dsp/filter/dualband"
)

// FloorDB is reported for magnitudes at or below -130 dB.
const FloorDB = -130.0

// Config describes one tap filter setting.
type Config struct {
	SampleRate float64
	HighPass   float64 // Hz
	LowPass    float64 // Hz
	Mix        float64 // 0 dry .. 1 filtered
	Order      int     // 1 or 2
}

// FromFilter returns the current setting of f.
func FromFilter(f *dualband.Filter) Config {
	return Config{
		SampleRate: f.SampleRate(),
		HighPass:   f.HighPass(),
		LowPass:    f.LowPass(),
		Mix:        f.Mix(),
		Order:      f.Order(),
	}
}

func (c Config) filter(maxBlock int) (*dualband.Filter, error) {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return nil, fmt.Errorf("response: invalid sample rate: %f", c.SampleRate)
	}

	f := dualband.New(dualband.WithOrder(c.Order))
	if err := f.Prepare(c.SampleRate, maxBlock); err != nil {
		return nil, err
	}
	f.SetTargets(c.HighPass, c.LowPass, c.Mix)

	return f, nil
}

// Curve returns the magnitude in dB of (1-mix) + mix·Hhp·Hlp at each of
// freqs, evaluated from the stage coefficients. An invalid sample rate
// yields a flat FloorDB curve.
func Curve(cfg Config, freqs []float64) []float64 {
	out := make([]float64, len(freqs))

	f, err := cfg.filter(1)
	if err != nil {
		for i := range out {
			out[i] = FloorDB
		}
		return out
	}

	hp, lp := f.Coefficients()
	mix := f.Mix()
	for i, freq := range freqs {
		out[i] = toDB(cmplx.Abs(combined(&hp, &lp, mix, freq, cfg.SampleRate)))
	}

	return out
}

func combined(hp, lp *biquad.Coefficients, mix, freq, sampleRate float64) complex128 {
	wet := hp.Response(freq, sampleRate) * lp.Response(freq, sampleRate)
	return complex(1-mix, 0) + complex(mix, 0)*wet
}

// FFTCurve returns the magnitude in dB of the first size/2+1 FFT bins of the
// filter's impulse response, truncated to size samples. Bin k lies at
// BinFrequency(k, size, cfg.SampleRate).
func FFTCurve(cfg Config, size int) ([]float64, error) {
	if size < 2 {
		return nil, fmt.Errorf("response: fft size must be >= 2: %d", size)
	}

	f, err := cfg.filter(size)
	if err != nil {
		return nil, err
	}

	ir := make([]float64, size)
	ir[0] = 1
	f.ProcessBlock(ir)

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("response: fft plan: %w", err)
	}

	in := make([]complex128, size)
	for i, v := range ir {
		in[i] = complex(v, 0)
	}
	spectrum := make([]complex128, size)
	if err := plan.Forward(spectrum, in); err != nil {
		return nil, fmt.Errorf("response: fft: %w", err)
	}

	out := make([]float64, size/2+1)
	for k := range out {
		out[k] = toDB(cmplx.Abs(spectrum[k]))
	}

	return out, nil
}

// BinFrequency returns the centre frequency of FFT bin k.
func BinFrequency(k, size int, sampleRate float64) float64 {
	return float64(k) * sampleRate / float64(size)
}

// LogFrequencies returns n frequencies spaced logarithmically from lo to hi,
// the usual x axis of a filter plot.
func LogFrequencies(lo, hi float64, n int) []float64 {
	if n <= 0 || lo <= 0 || hi <= lo {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}

	out := make([]float64, n)
	ratio := math.Log(hi / lo)
	for i := range out {
		out[i] = lo * math.Exp(ratio*float64(i)/float64(n-1))
	}
	out[n-1] = hi

	return out
}

func toDB(mag float64) float64 {
	if !(mag > 0) {
		return FloorDB
	}
	return max(20*math.Log10(mag), FloorDB)
}
