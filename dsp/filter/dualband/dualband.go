// Package dualband implements the per-tap tone filter: a high-pass stage
// cascaded with a low-pass stage, blended with the unfiltered input by a
// mix control. Both corners and the mix are smoothed so that edits never
// step the output.
package dualband

import (
	"fmt"

	"github.com/cwbudde/algo-tapdelay/dsp/core"
	"github.com/cwbudde/algo-tapdelay/dsp/filter/biquad"
	"github.com/cwbudde/algo-tapdelay/dsp/filter/design"
	"github.com/cwbudde/algo-tapdelay/dsp/smooth"
)

const (
	// MinCutoff and MaxCutoff bound both corner frequencies in Hz.
	MinCutoff = 20.0
	MaxCutoff = 20000.0

	// DefaultHighPass and DefaultLowPass leave the audible band open.
	DefaultHighPass = MinCutoff
	DefaultLowPass  = MaxCutoff
	// DefaultMix is fully filtered.
	DefaultMix = 1.0

	// Grain is the number of samples that share one coefficient set while
	// a cutoff ramps in ProcessBlock.
	Grain = 10

	// nyquistGuard keeps the upper corner below Nyquist at low sample rates.
	nyquistGuard = 0.49
)

type config struct {
	order            int
	smoothingSamples int
}

// Option configures a Filter.
type Option func(*config)

// WithOrder selects first- or second-order stages. Other values are ignored.
func WithOrder(order int) Option {
	return func(cfg *config) {
		if order == 1 || order == 2 {
			cfg.order = order
		}
	}
}

// WithSmoothingSamples fixes the ramp length of cutoff changes. By default
// the ramp lasts one maximum block, as passed to Prepare.
func WithSmoothingSamples(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.smoothingSamples = n
		}
	}
}

// Filter is a smoothed high-pass/low-pass cascade with dry/wet mix.
type Filter struct {
	cfg        config
	sampleRate float64

	hp, lp biquad.Section

	hpFreq smooth.Value
	lpFreq smooth.Value
	mix    smooth.Value

	dry    []float64
	primed bool
}

// New returns a filter prepared for the default processor configuration,
// with the band fully open and the mix fully filtered.
func New(opts ...Option) *Filter {
	cfg := config{order: 2}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}

	f := &Filter{
		cfg:    cfg,
		hpFreq: *smooth.New(smooth.Logarithmic, DefaultHighPass),
		lpFreq: *smooth.New(smooth.Logarithmic, DefaultLowPass),
		mix:    *smooth.New(smooth.Linear, DefaultMix),
	}

	def := core.DefaultProcessorConfig()
	if err := f.Prepare(def.SampleRate, def.BlockSize); err != nil {
		panic(err)
	}

	return f
}

// Prepare sizes the dry scratch, recomputes coefficients for sampleRate,
// resets the ramp lengths and clears the filter state. The next SetTargets
// call snaps instead of ramping. Prepare allocates.
func (f *Filter) Prepare(sampleRate float64, maxBlockLength int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("dualband: sample rate must be > 0: %f", sampleRate)
	}
	if maxBlockLength <= 0 {
		return fmt.Errorf("dualband: max block length must be > 0: %d", maxBlockLength)
	}

	f.sampleRate = sampleRate
	f.dry = core.EnsureLen(f.dry, maxBlockLength)

	steps := maxBlockLength
	if f.cfg.smoothingSamples > 0 {
		steps = f.cfg.smoothingSamples
	}

	f.hpFreq.Reset(steps)
	f.lpFreq.Reset(steps)
	f.mix.Reset(steps)

	f.hpFreq.SetCurrentAndTarget(f.clampCutoff(f.hpFreq.Target()))
	f.lpFreq.SetCurrentAndTarget(f.clampCutoff(f.lpFreq.Target()))
	f.updateHighPass(f.hpFreq.Current())
	f.updateLowPass(f.lpFreq.Current())

	f.Reset()
	f.primed = false

	return nil
}

// SetTargets sets new corner frequencies in Hz and a mix in [0,1]. Values
// are clamped. The first call after New or Prepare applies them at once.
func (f *Filter) SetTargets(highPass, lowPass, mix float64) {
	highPass = f.clampCutoff(highPass)
	lowPass = f.clampCutoff(lowPass)
	mix = core.Clamp(mix, 0, 1)

	if !f.primed {
		f.primed = true
		f.hpFreq.SetCurrentAndTarget(highPass)
		f.lpFreq.SetCurrentAndTarget(lowPass)
		f.mix.SetCurrentAndTarget(mix)
		f.updateHighPass(highPass)
		f.updateLowPass(lowPass)

		return
	}

	f.hpFreq.SetTarget(highPass)
	f.lpFreq.SetTarget(lowPass)
	f.mix.SetTarget(mix)
}

// ProcessSample filters one sample. Coefficients follow ramping cutoffs
// every sample.
func (f *Filter) ProcessSample(x float64) float64 {
	if f.hpFreq.IsSmoothing() {
		f.updateHighPass(f.hpFreq.Next())
	}
	if f.lpFreq.IsSmoothing() {
		f.updateLowPass(f.lpFreq.Next())
	}

	wet := f.lp.ProcessSample(f.hp.ProcessSample(x))
	m := f.mix.Next()

	return x*(1-m) + wet*m
}

// ProcessBlock filters buf in place. While a cutoff ramps, coefficients are
// recomputed once per Grain samples rather than per sample. The mix ramps
// per sample.
func (f *Filter) ProcessBlock(buf []float64) {
	step := len(f.dry)
	for off := 0; off < len(buf); off += step {
		f.processChunk(buf[off:min(off+step, len(buf))])
	}
}

// Reset clears the filter state. Targets and ramps are kept.
func (f *Filter) Reset() {
	f.hp.Reset()
	f.lp.Reset()
}

// HighPass returns the current high-pass corner in Hz.
func (f *Filter) HighPass() float64 { return f.hpFreq.Current() }

// LowPass returns the current low-pass corner in Hz.
func (f *Filter) LowPass() float64 { return f.lpFreq.Current() }

// Mix returns the current mix.
func (f *Filter) Mix() float64 { return f.mix.Current() }

// SampleRate returns the rate passed to the last Prepare.
func (f *Filter) SampleRate() float64 { return f.sampleRate }

// Order returns the order of each stage.
func (f *Filter) Order() int { return f.cfg.order }

// IsSmoothing reports whether any corner or the mix is ramping.
func (f *Filter) IsSmoothing() bool {
	return f.hpFreq.IsSmoothing() || f.lpFreq.IsSmoothing() || f.mix.IsSmoothing()
}

// Coefficients returns the coefficients currently loaded in the high-pass
// and low-pass stages.
func (f *Filter) Coefficients() (highPass, lowPass biquad.Coefficients) {
	return f.hp.Coefficients, f.lp.Coefficients
}

func (f *Filter) processChunk(buf []float64) {
	dry := f.dry[:len(buf)]
	copy(dry, buf)

	if f.hpFreq.IsSmoothing() || f.lpFreq.IsSmoothing() {
		for off := 0; off < len(buf); off += Grain {
			n := min(Grain, len(buf)-off)
			if f.hpFreq.IsSmoothing() {
				f.updateHighPass(f.hpFreq.Skip(n))
			}
			if f.lpFreq.IsSmoothing() {
				f.updateLowPass(f.lpFreq.Skip(n))
			}

			g := buf[off : off+n]
			f.hp.ProcessBlock(g)
			f.lp.ProcessBlock(g)
		}
	} else {
		f.hp.ProcessBlock(buf)
		f.lp.ProcessBlock(buf)
	}

	if !f.mix.IsSmoothing() {
		m := f.mix.Current()
		switch m {
		case 1:
		case 0:
			copy(buf, dry)
		default:
			for i := range buf {
				buf[i] = dry[i]*(1-m) + buf[i]*m
			}
		}

		return
	}

	for i := range buf {
		m := f.mix.Next()
		buf[i] = dry[i]*(1-m) + buf[i]*m
	}
}

func (f *Filter) clampCutoff(freq float64) float64 {
	hi := min(MaxCutoff, nyquistGuard*f.sampleRate)
	return core.Clamp(freq, MinCutoff, hi)
}

func (f *Filter) updateHighPass(freq float64) {
	c := design.HighpassOrder(f.cfg.order, freq, f.sampleRate)
	if c == (biquad.Coefficients{}) {
		c = biquad.Identity()
	}
	f.hp.SetCoefficients(c)
}

func (f *Filter) updateLowPass(freq float64) {
	c := design.LowpassOrder(f.cfg.order, freq, f.sampleRate)
	if c == (biquad.Coefficients{}) {
		c = biquad.Identity()
	}
	f.lp.SetCoefficients(c)
}
