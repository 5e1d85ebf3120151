package tapdelay

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/dsp/core"
	"github.com/cwbudde/algo-tapdelay/dsp/delay"
	"github.com/cwbudde/algo-tapdelay/dsp/filter/dualband"
)

// ChannelConfig holds construction-time settings of a Channel.
type ChannelConfig struct {
	Policy      CrossfadePolicy
	FilterOrder int // 1 or 2; anything else selects 2
}

// BlockParams are the settings resolved once per block.
type BlockParams struct {
	DelaySamples int     // spacing between taps
	Taps         int     // active taps, tap 0 included
	Wet          float64 // [0,1]
	Falloff      float64 // gain applied per repeat, 1 keeps every repeat
	Loop         bool
}

type tapSources struct {
	amp, hp, lp, mix control.Source
}

type tap struct {
	amp    control.Smoothed
	start  float64 // amp at block start
	filter *dualband.Filter
}

// Channel is the delay pipeline of one side.
type Channel struct {
	side   Side
	policy CrossfadePolicy

	ring *delay.Ring
	taps [MaxTaps]tap

	// sources[0] are the channel's own controls, sources[1] the other side's.
	sources    [2][MaxTaps]tapSources
	ampLink    Link
	filterLink Link

	maxBlock int
	dry      []float64
	acc      []float64
	curve    []float64
	gain     []float64
	work     []float64

	state       State
	published   atomic.Int32 // state, for readers off the audio thread
	primed      bool
	activeDelay int
	activeTaps  int
	lastDelay   int
	lastTaps    int
	lastWet     float64
	lastFalloff float64
	lastLoop    bool
}

// NewChannel binds a channel to the tap controls of side and of the other
// side, which mirrored taps read from. The channel must be prepared before
// use.
func NewChannel(store *control.Store, side Side, cfg ChannelConfig) (*Channel, error) {
	if store == nil {
		return nil, fmt.Errorf("tapdelay: nil control store")
	}

	c := &Channel{side: side, policy: cfg.Policy}

	for i, s := range []Side{side, side.Other()} {
		for k := range MaxTaps {
			src := &c.sources[i][k]
			for _, r := range []struct {
				dst *control.Source
				id  string
			}{
				{&src.amp, AmpID(s, k)},
				{&src.hp, HighPassID(s, k)},
				{&src.lp, LowPassID(s, k)},
				{&src.mix, FilterMixID(s, k)},
			} {
				v, err := store.Resolve(r.id)
				if err != nil {
					return nil, fmt.Errorf("tapdelay: %s channel: %w", side, err)
				}
				*r.dst = v
			}
		}
	}

	for k := range c.taps {
		if err := c.taps[k].amp.Bind(store, AmpID(side, k)); err != nil {
			return nil, fmt.Errorf("tapdelay: %w", err)
		}
		c.taps[k].filter = dualband.New(dualband.WithOrder(cfg.FilterOrder))
	}

	return c, nil
}

// Prepare sizes the ring to capacity samples and the scratch buffers to
// maxBlock, prepares every tap filter and resets the crossfade state. It
// allocates and must not run concurrently with Process.
func (c *Channel) Prepare(sampleRate float64, maxBlock, capacity int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("tapdelay: sample rate must be > 0: %f", sampleRate)
	}
	if maxBlock <= 0 {
		return fmt.Errorf("tapdelay: max block must be > 0: %d", maxBlock)
	}
	if capacity <= maxBlock {
		return fmt.Errorf("tapdelay: ring capacity %d must exceed max block %d", capacity, maxBlock)
	}

	if c.ring == nil {
		r, err := delay.New(capacity)
		if err != nil {
			return err
		}
		c.ring = r
	} else if err := c.ring.Resize(capacity); err != nil {
		return err
	}

	c.maxBlock = maxBlock
	c.dry = core.EnsureLen(c.dry, maxBlock)
	c.acc = core.EnsureLen(c.acc, maxBlock)
	c.curve = core.EnsureLen(c.curve, maxBlock)
	c.gain = core.EnsureLen(c.gain, maxBlock)
	c.work = core.EnsureLen(c.work, maxBlock)

	for k := range c.taps {
		if err := c.taps[k].filter.Prepare(sampleRate, maxBlock); err != nil {
			return err
		}
	}

	c.setState(Stable)
	c.primed = false

	return nil
}

// Reset silences the ring and the filters. The next block starts Stable
// with the parameters it is given.
func (c *Channel) Reset() {
	if c.ring != nil {
		c.ring.Clear()
	}
	c.resetFilters()
	c.setState(Stable)
	c.primed = false
}

// Side returns the side the channel was built for.
func (c *Channel) Side() Side { return c.side }

// State returns the crossfade phase of the last processed block. It may be
// called from any goroutine while Process runs.
func (c *Channel) State() State { return State(c.published.Load()) }

func (c *Channel) setState(s State) {
	c.state = s
	c.published.Store(int32(s))
}

// Route selects where tap gains and tap filters read their controls from.
// Switching the gain source ramps from the previous value over the next
// block; filter corners follow their own smoothing. Route does not
// allocate.
func (c *Channel) Route(ampLink, filterLink Link) {
	if ampLink != c.ampLink {
		c.ampLink = ampLink
		src := c.linkSources(ampLink)
		for k := range c.taps {
			c.taps[k].amp.Attach(src[k].amp)
		}
	}
	c.filterLink = filterLink
}

// Filter returns the filter of tap k, for display.
func (c *Channel) Filter(k int) *dualband.Filter {
	return c.taps[k].filter
}

// Process renders one block. out may alias in. len(in) must not exceed the
// prepared max block.
func (c *Channel) Process(in, out []float64, p BlockParams) {
	n := len(in)
	if c.ring == nil {
		panic("tapdelay: channel not prepared")
	}
	if n > c.maxBlock || len(out) < n {
		panic(fmt.Errorf("tapdelay: block of %d samples (out %d) exceeds prepared max %d",
			n, len(out), c.maxBlock))
	}
	if n == 0 {
		return
	}

	taps := core.Clamp(p.Taps, 1, MaxTaps)
	d := core.Clamp(p.DelaySamples, 1, max(1, c.ring.Len()/taps))
	wet := core.Clamp(p.Wet, 0, 1)
	falloff := core.Clamp(p.Falloff, 0, 1)

	for k := range c.taps {
		c.taps[k].start = c.taps[k].amp.BlockStart()
	}
	src := c.linkSources(c.filterLink)
	for k := range c.taps {
		s := &src[k]
		c.taps[k].filter.SetTargets(s.hp.Load(), s.lp.Load(), s.mix.Load()/100)
	}

	if !c.primed {
		c.primed = true
		c.activeDelay, c.activeTaps = d, taps
		c.lastDelay, c.lastTaps = d, taps
		c.lastWet, c.lastFalloff, c.lastLoop = wet, falloff, p.Loop
		for k := range c.taps {
			c.taps[k].amp.Jump()
			c.taps[k].start = c.taps[k].amp.BlockEnd()
		}
	}

	state, mute := c.nextState(d, taps)
	if state == FadingIn {
		c.activeDelay, c.activeTaps = d, taps
	}

	b := block{
		n:     n,
		state: state,
		wet:   [2]float64{c.lastWet, wet},
		fall:  [2]float64{c.lastFalloff, falloff},
		fade:  [2]float64{1, 1},
	}
	if state == FadingOut {
		b.fade[1] = 0
	}
	if p.Loop || c.lastLoop {
		b.loop = true
		b.loopFade = [2]float64{boolGain(c.lastLoop), boolGain(p.Loop)}
	}

	dry := c.dry[:n]
	copy(dry, in)
	c.renderDry(out[:n], dry, b)

	if !mute {
		for off := 0; off < n; {
			m := min(n-off, c.activeDelay)
			c.processChunk(b, off, dry[off:off+m], out[off:off+m])
			off += m
		}
	}

	c.lastDelay, c.lastTaps = d, taps
	c.lastWet, c.lastFalloff, c.lastLoop = wet, falloff, p.Loop
	c.setState(state)

	if state == FadingOut {
		c.ring.Clear()
		c.resetFilters()
	}
}

// block carries the per-block ramp end points as {start, end} pairs.
type block struct {
	n        int
	state    State
	wet      [2]float64
	fall     [2]float64
	fade     [2]float64
	loop     bool
	loopFade [2]float64
}

// nextState advances the crossfade state machine. mute reports a FadingOut
// block with nothing valid to fade from.
func (c *Channel) nextState(d, taps int) (State, bool) {
	changed := d != c.activeDelay || taps != c.activeTaps

	switch c.state {
	case FadingOut:
		if c.policy == MuteBackToBack && (d != c.lastDelay || taps != c.lastTaps) {
			return FadingOut, true
		}
		return FadingIn, false
	case FadingIn:
		if c.policy == MuteBackToBack && changed {
			return FadingOut, false
		}
		return Stable, false
	default:
		if changed {
			return FadingOut, false
		}
		return Stable, false
	}
}

// renderDry writes in × (1 − wet) × tap-0 gain into out.
func (c *Channel) renderDry(out, in []float64, b block) {
	a0, a1 := c.taps[0].start, c.taps[0].amp.BlockEnd()

	if b.wet[0] == b.wet[1] && a0 == a1 {
		vecmath.ScaleBlock(out, in, (1-b.wet[1])*a1)
		return
	}

	curve := c.curve[:b.n]
	gain := c.gain[:b.n]
	core.FillRamp(curve, 1-b.wet[0], 1-b.wet[1])
	core.FillRamp(gain, a0, a1)
	vecmath.MulBlockInPlace(curve, gain)
	vecmath.MulBlock(out, in, curve)
}

// processChunk runs the loop, the ring write and the taps for
// dry[:m] / out[:m], which start at offset off of the block. m never
// exceeds the active delay, so every tap window covers samples that the
// previous tap has already processed.
func (c *Channel) processChunk(b block, off int, dry, out []float64) {
	m := len(dry)
	d, taps := c.activeDelay, c.activeTaps
	fs, fe := core.RampSegment(b.fall[0], b.fall[1], off, m, b.n)

	if b.loop {
		c.feedLoop(b, off, taps*d-m, dry, out, fs, fe)
	}

	if b.state == FadingIn {
		if m == b.n {
			c.ring.WriteRamped(dry)
		} else {
			c.ring.Write(dry)
			s, e := core.RampSegment(0, 1, off, m, b.n)
			c.ring.ScaleInPlaceRamped(0, m, s, e)
		}
	} else {
		c.ring.Write(dry)
	}

	acc := c.acc[:m]
	core.Zero(acc)
	for k := taps - 1; k >= 1; k-- {
		at := k * d
		c.ring.ScaleInPlaceRamped(at, m, fs, fe)
		c.ring.FilterInPlace(at, m, c.taps[k].filter)

		as, ae := c.ampSegment(k, off, m, b.n)
		c.ring.SumDelayedRamped(at, m, acc, as, ae)
	}

	curve := c.curve[:m]
	c.fillSegment(curve, b.wet, off, b.n)
	if b.state == FadingOut {
		gain := c.gain[:m]
		c.fillSegment(gain, b.fade, off, b.n)
		vecmath.MulBlockInPlace(curve, gain)
	}
	vecmath.MulBlockInPlace(acc, curve)
	vecmath.AddBlockInPlace(out, acc)
}

// feedLoop treats the window one full pass behind the chunk as tap 0: it is
// attenuated and filtered in place, heard through the wet path and fed
// back into dry ahead of the ring write. A negative loopDelay (a pass
// shorter than the chunk) contributes nothing.
func (c *Channel) feedLoop(b block, off, loopDelay int, dry, out []float64, fs, fe float64) {
	m := len(dry)
	if loopDelay < 0 {
		return
	}

	c.ring.ScaleInPlaceRamped(loopDelay, m, fs, fe)
	c.ring.FilterInPlace(loopDelay, m, c.taps[0].filter)

	tail := c.acc[:m]
	c.ring.ReadBlockDelayed(loopDelay, m, tail)

	// weight = loop fade × transition fade
	weight := c.curve[:m]
	gain := c.gain[:m]
	work := c.work[:m]
	c.fillSegment(weight, b.loopFade, off, b.n)
	c.fillSegment(gain, b.fade, off, b.n)
	vecmath.MulBlockInPlace(weight, gain)

	vecmath.MulBlock(work, tail, weight)
	vecmath.AddBlockInPlace(dry, work)

	c.fillSegment(gain, b.wet, off, b.n)
	vecmath.MulBlockInPlace(weight, gain)
	as, ae := c.ampSegment(0, off, m, b.n)
	core.FillRamp(gain, as, ae)
	vecmath.MulBlockInPlace(weight, gain)

	vecmath.MulBlock(work, tail, weight)
	vecmath.AddBlockInPlace(out, work)
}

func (c *Channel) fillSegment(buf []float64, ends [2]float64, off, n int) {
	s, e := core.RampSegment(ends[0], ends[1], off, len(buf), n)
	core.FillRamp(buf, s, e)
}

func (c *Channel) ampSegment(k, off, m, n int) (float64, float64) {
	return core.RampSegment(c.taps[k].start, c.taps[k].amp.BlockEnd(), off, m, n)
}

func (c *Channel) linkSources(l Link) *[MaxTaps]tapSources {
	if l == MirroredFromOther {
		return &c.sources[1]
	}
	return &c.sources[0]
}

func (c *Channel) resetFilters() {
	for k := range c.taps {
		if f := c.taps[k].filter; f != nil {
			f.Reset()
		}
	}
}

func boolGain(on bool) float64 {
	if on {
		return 1
	}
	return 0
}
