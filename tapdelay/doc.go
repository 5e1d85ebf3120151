// Package tapdelay implements a stereo multi-tap delay.
//
// Each [Channel] owns one ring buffer and up to [MaxTaps] taps spaced one
// delay time apart. Every tap has a gain and a [dualband.Filter]; both are
// applied to the stored copy of the signal before the next tap reads it,
// so attenuation and tone shaping accumulate from repeat to repeat. With
// the loop enabled the last repeat is fed back into the line.
//
// Changing the delay time or the number of taps changes how the ring is
// addressed. The channel handles this with a crossfade: one block fades
// the old configuration out, the ring is cleared, and the next block fades
// the new configuration in. See [State] and [CrossfadePolicy].
//
// A [Processor] wires two channels to a [control.Store] laid out by
// [Specs] and resolves the per-block parameters from it.
//
// [dualband.Filter]: github.com/cwbudde/algo-tapdelay/dsp/filter/dualband
package tapdelay
