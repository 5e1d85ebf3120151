package tapdelay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/dsp/core"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

// Processor is the stereo tap delay: two channels reading one control
// store.
type Processor struct {
	cfg      config
	store    *control.Store
	channels [2]*Channel

	delayTime   control.Source
	tempoSync   control.Source
	note        control.Source
	numTaps     control.Source
	loop        control.Source
	dryWet      control.Source
	falloff     control.Source
	linkAmps    control.Source
	linkFilters control.Source

	sampleRate float64
	maxBlock   int
}

// New returns a processor prepared for the configured sample rate and block
// size.
func New(opts ...Option) (*Processor, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	store := cfg.store
	if store == nil {
		s, err := control.NewStore(Specs()...)
		if err != nil {
			return nil, fmt.Errorf("tapdelay: %w", err)
		}
		store = s
	}

	p := &Processor{cfg: cfg, store: store}

	for _, r := range []struct {
		dst *control.Source
		id  string
	}{
		{&p.delayTime, IDDelayTime},
		{&p.tempoSync, IDTempoSync},
		{&p.note, IDNote},
		{&p.numTaps, IDNumTaps},
		{&p.loop, IDLoop},
		{&p.dryWet, IDDryWet},
		{&p.falloff, IDFalloff},
		{&p.linkAmps, IDLinkAmps},
		{&p.linkFilters, IDLinkFilters},
	} {
		src, err := store.Resolve(r.id)
		if err != nil {
			return nil, fmt.Errorf("tapdelay: %w", err)
		}
		*r.dst = src
	}

	for _, side := range []Side{Left, Right} {
		ch, err := NewChannel(store, side, ChannelConfig{
			Policy:      cfg.policy,
			FilterOrder: cfg.filterOrder,
		})
		if err != nil {
			return nil, err
		}
		p.channels[side] = ch
	}

	if err := p.Prepare(cfg.proc.SampleRate, cfg.proc.BlockSize); err != nil {
		return nil, err
	}

	return p, nil
}

// RingCapacity returns the per-channel ring size needed at sampleRate: the
// longest loop plus one block.
func RingCapacity(sampleRate float64, maxBlock int) int {
	return MaxTaps*millisToSamples(sampleRate, MaxDelayMillis) + maxBlock + 1
}

// Prepare resizes both channels for a new sample rate or block size and
// resets them. It allocates; call it outside the audio callback.
func (p *Processor) Prepare(sampleRate float64, maxBlock int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("tapdelay: invalid sample rate: %f", sampleRate)
	}
	if maxBlock <= 0 {
		return fmt.Errorf("tapdelay: max block must be > 0: %d", maxBlock)
	}

	capacity := RingCapacity(sampleRate, maxBlock)
	for _, ch := range p.channels {
		if err := ch.Prepare(sampleRate, maxBlock, capacity); err != nil {
			return err
		}
	}

	p.sampleRate = sampleRate
	p.maxBlock = maxBlock

	p.cfg.logger.Debug("tapdelay prepared",
		"sample_rate", sampleRate,
		"max_block", maxBlock,
		"ring_capacity", capacity,
		"ring_bytes", 2*capacity*8,
		"policy", p.cfg.policy.String(),
		"filter_order", p.cfg.filterOrder,
	)

	return nil
}

// Process renders left and right in place. Both slices must have the same
// length; blocks longer than the prepared max are split and each piece
// resolves the controls again.
func (p *Processor) Process(left, right []float64) {
	if len(left) != len(right) {
		panic(fmt.Errorf("tapdelay: channel length mismatch: %d != %d", len(left), len(right)))
	}

	for off := 0; off < len(left); off += p.maxBlock {
		end := min(off+p.maxBlock, len(left))
		params := p.blockParams()

		p.channels[Left].Route(Independent, Independent)
		p.channels[Right].Route(linkFromToggle(p.linkAmps.Load()), linkFromToggle(p.linkFilters.Load()))

		p.channels[Left].Process(left[off:end], left[off:end], params)
		p.channels[Right].Process(right[off:end], right[off:end], params)
	}
}

// Reset clears both channels.
func (p *Processor) Reset() {
	for _, ch := range p.channels {
		ch.Reset()
	}
}

// Store returns the control store.
func (p *Processor) Store() *control.Store { return p.store }

// Channel returns the pipeline of side.
func (p *Processor) Channel(side Side) *Channel { return p.channels[side] }

// State returns the crossfade phase of side after the last block. It is
// safe to call while Process runs on another goroutine.
func (p *Processor) State(side Side) State { return p.channels[side].State() }

// SampleRate returns the prepared sample rate.
func (p *Processor) SampleRate() float64 { return p.sampleRate }

// MaxBlockSize returns the prepared block size.
func (p *Processor) MaxBlockSize() int { return p.maxBlock }

// DelayMillis returns the tap spacing the controls currently select, with
// tempo sync applied.
func (p *Processor) DelayMillis() float64 {
	ms := p.delayTime.Load()
	if p.tempoSync.Load() >= 0.5 {
		ms = tempo.Resolve(tempo.Note(int(p.note.Load())), p.cfg.tempo)
	}
	return core.Clamp(ms, MinDelayMillis, MaxDelayMillis)
}

// Taps returns the tap count the controls currently select.
func (p *Processor) Taps() int {
	idx := core.Clamp(int(math.Round(p.numTaps.Load())), 0, len(TapCounts)-1)
	return TapCounts[idx]
}

// TailSeconds returns how long output continues after the input stops:
// infinite while the loop is on, otherwise until the last tap.
func (p *Processor) TailSeconds() float64 {
	if p.loop.Load() >= 0.5 {
		return math.Inf(1)
	}
	return float64(p.Taps()) * p.DelayMillis() / 1000
}

func (p *Processor) blockParams() BlockParams {
	return BlockParams{
		DelaySamples: millisToSamples(p.sampleRate, p.DelayMillis()),
		Taps:         p.Taps(),
		Wet:          p.dryWet.Load() / 100,
		Falloff:      1 - p.falloff.Load()/100,
		Loop:         p.loop.Load() >= 0.5,
	}
}

func millisToSamples(sampleRate, ms float64) int {
	return int(sampleRate * ms / 1000)
}
