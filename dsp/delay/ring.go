package delay

import (
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-tapdelay/dsp/core"
)

// scratchLen bounds the internal gain/sum scratch arrays. Windows longer than
// this are processed in scratchLen pieces, so no operation allocates.
const scratchLen = 256

// BlockProcessor filters a block of samples in place.
type BlockProcessor interface {
	ProcessBlock(buf []float64)
}

// Ring is a fixed-capacity circular sample store addressed relative to the
// most recently written sample.
//
// Window operations take a (delay, length) pair naming the length samples,
// in chronological order, whose newest element lies delay samples before the
// most recent write. Every pair must satisfy delay+length <= Len(); a
// violation is a sizing bug and panics.
type Ring struct {
	buffer  []float64
	cursor  int // index of the most recent sample
	written int // saturates at len(buffer)

	ramp [scratchLen]float64
	tmp  [scratchLen]float64
}

// New returns a ring of fixed capacity.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ring capacity must be > 0: %d", capacity)
	}

	return &Ring{
		buffer: make([]float64, capacity),
		cursor: capacity - 1,
	}, nil
}

// Len returns the capacity in samples.
func (r *Ring) Len() int {
	return len(r.buffer)
}

// Written returns how many samples were written since the last Clear,
// saturating at Len().
func (r *Ring) Written() int {
	return r.written
}

// Write appends a block and advances the cursor.
func (r *Ring) Write(samples []float64) {
	n := len(samples)
	size := len(r.buffer)
	if n > size {
		panic(fmt.Errorf("delay: write of %d samples exceeds capacity %d", n, size))
	}
	if n == 0 {
		return
	}

	start := r.cursor + 1
	if start == size {
		start = 0
	}

	copied := copy(r.buffer[start:], samples)
	if copied < n {
		copy(r.buffer, samples[copied:])
	}

	r.cursor = start + n - 1
	if r.cursor >= size {
		r.cursor -= size
	}

	r.written += n
	if r.written > size {
		r.written = size
	}
}

// WriteRamped appends a block scaled by a 0→1 linear ramp across its length.
func (r *Ring) WriteRamped(samples []float64) {
	r.Write(samples)
	r.ScaleInPlaceRamped(0, len(samples), 0, 1)
}

// ReadDelayed returns the sample written delay positions before the most
// recent one, or 0 if fewer than delay+1 samples were written.
func (r *Ring) ReadDelayed(delay int) float64 {
	r.check(delay, 1)
	if delay >= r.written {
		return 0
	}

	idx := r.cursor - delay
	if idx < 0 {
		idx += len(r.buffer)
	}

	return r.buffer[idx]
}

// ReadBlockDelayed copies a window into out[:length].
func (r *Ring) ReadBlockDelayed(delay, length int, out []float64) {
	a, b := r.window(delay, length)
	n := copy(out[:length], a)
	copy(out[n:length], b)
}

// SumDelayedInto adds gain times the window into out[:length].
func (r *Ring) SumDelayedInto(delay, length int, out []float64, gain float64) {
	a, b := r.window(delay, length)
	if gain == 0 {
		return
	}

	r.sumScaled(out[:len(a)], a, gain)
	r.sumScaled(out[len(a):length], b, gain)
}

// SumDelayedRamped adds the window into out[:length] with the gain moving
// linearly from startGain to endGain (see core.RampAt).
func (r *Ring) SumDelayedRamped(delay, length int, out []float64, startGain, endGain float64) {
	if startGain == endGain {
		r.SumDelayedInto(delay, length, out, endGain)
		return
	}

	a, b := r.window(delay, length)
	r.sumRamped(out[:len(a)], a, startGain, endGain, 0, length)
	r.sumRamped(out[len(a):length], b, startGain, endGain, len(a), length)
}

// ScaleInPlace multiplies a stored window by gain.
func (r *Ring) ScaleInPlace(delay, length int, gain float64) {
	a, b := r.window(delay, length)
	if gain == 1 || length == 0 {
		return
	}

	vecmath.ScaleBlockInPlace(a, gain)
	if len(b) > 0 {
		vecmath.ScaleBlockInPlace(b, gain)
	}
}

// ScaleInPlaceRamped multiplies a stored window by a startGain→endGain ramp.
func (r *Ring) ScaleInPlaceRamped(delay, length int, startGain, endGain float64) {
	if startGain == endGain {
		r.ScaleInPlace(delay, length, endGain)
		return
	}

	a, b := r.window(delay, length)
	r.scaleRamped(a, startGain, endGain, 0, length)
	r.scaleRamped(b, startGain, endGain, len(a), length)
}

// FilterInPlace runs f over a stored window. A window straddling the wrap
// boundary is filtered as two consecutive sub-blocks, so f sees the samples
// in chronological order.
func (r *Ring) FilterInPlace(delay, length int, f BlockProcessor) {
	a, b := r.window(delay, length)
	if len(a) > 0 {
		f.ProcessBlock(a)
	}
	if len(b) > 0 {
		f.ProcessBlock(b)
	}
}

// Clear zeroes the contents and the written counter.
func (r *Ring) Clear() {
	core.Zero(r.buffer)
	r.written = 0
}

// Resize reallocates storage to newCapacity and clears it. It allocates and
// must not be called from the audio callback.
func (r *Ring) Resize(newCapacity int) error {
	if newCapacity <= 0 {
		return fmt.Errorf("ring capacity must be > 0: %d", newCapacity)
	}

	if newCapacity != len(r.buffer) {
		r.buffer = make([]float64, newCapacity)
	} else {
		core.Zero(r.buffer)
	}

	r.cursor = newCapacity - 1
	r.written = 0

	return nil
}

func (r *Ring) check(delay, length int) {
	if delay < 0 || length < 0 || delay+length > len(r.buffer) {
		panic(fmt.Errorf("delay: window delay=%d length=%d exceeds capacity %d",
			delay, length, len(r.buffer)))
	}
}

// window returns the stored window as at most two contiguous slices of the
// backing array: [start, size) followed by [0, wrapped).
func (r *Ring) window(delay, length int) ([]float64, []float64) {
	r.check(delay, length)
	if length == 0 {
		return nil, nil
	}

	size := len(r.buffer)
	start := r.cursor - delay - (length - 1)
	if start < 0 {
		start += size
	}

	if start+length <= size {
		return r.buffer[start : start+length], nil
	}

	return r.buffer[start:], r.buffer[:start+length-size]
}

func (r *Ring) sumScaled(dst, src []float64, gain float64) {
	if len(src) == 0 {
		return
	}
	if gain == 1 {
		vecmath.AddBlockInPlace(dst, src)
		return
	}

	for off := 0; off < len(src); off += scratchLen {
		m := min(scratchLen, len(src)-off)
		tmp := r.tmp[:m]
		vecmath.ScaleBlock(tmp, src[off:off+m], gain)
		vecmath.AddBlockInPlace(dst[off:off+m], tmp)
	}
}

// sumRamped adds src into dst where src covers positions [pos, pos+len(src))
// of a total-length ramp.
func (r *Ring) sumRamped(dst, src []float64, start, end float64, pos, total int) {
	for off := 0; off < len(src); off += scratchLen {
		m := min(scratchLen, len(src)-off)
		s, e := core.RampSegment(start, end, pos+off, m, total)
		ramp := r.ramp[:m]
		core.FillRamp(ramp, s, e)

		tmp := r.tmp[:m]
		vecmath.MulBlock(tmp, src[off:off+m], ramp)
		vecmath.AddBlockInPlace(dst[off:off+m], tmp)
	}
}

func (r *Ring) scaleRamped(buf []float64, start, end float64, pos, total int) {
	for off := 0; off < len(buf); off += scratchLen {
		m := min(scratchLen, len(buf)-off)
		s, e := core.RampSegment(start, end, pos+off, m, total)
		ramp := r.ramp[:m]
		core.FillRamp(ramp, s, e)
		vecmath.MulBlockInPlace(buf[off:off+m], ramp)
	}
}
