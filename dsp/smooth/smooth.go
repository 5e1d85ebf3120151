// Package smooth provides countdown-based parameter smoothing for control
// values that must never jump inside an audio block.
package smooth

import "math"

// Mode selects the interpolation domain.
type Mode int

const (
	// Linear moves by a constant increment per sample.
	Linear Mode = iota
	// Logarithmic moves by a constant ratio per sample. Suited to
	// frequencies, where equal ratios are heard as equal steps. Values are
	// kept above MinLogValue.
	Logarithmic
)

// MinLogValue is the lower bound for values in Logarithmic mode.
const MinLogValue = 1e-6

// Value is a smoothed scalar that reaches its target after a fixed number
// of steps. The zero value is a Linear smoother with no ramp length, which
// jumps straight to every new target.
type Value struct {
	mode Mode

	current float64
	target  float64
	step    float64 // increment (Linear) or log increment (Logarithmic)

	steps     int
	countdown int
}

// New returns a smoother in the given mode, resting at initial.
func New(mode Mode, initial float64) *Value {
	v := &Value{mode: mode}
	v.SetCurrentAndTarget(initial)

	return v
}

// Reset sets the ramp length in steps and stops any ramp in progress at
// the target.
func (v *Value) Reset(steps int) {
	v.steps = max(steps, 0)
	v.SetCurrentAndTarget(v.target)
}

// Steps returns the configured ramp length.
func (v *Value) Steps() int {
	return v.steps
}

// SetCurrentAndTarget jumps to value without ramping.
func (v *Value) SetCurrentAndTarget(value float64) {
	value = v.sanitize(value)
	v.current = value
	v.target = value
	v.countdown = 0
}

// SetTarget starts a ramp from the current value to target. Setting the
// target that is already pending leaves the ramp untouched.
func (v *Value) SetTarget(target float64) {
	target = v.sanitize(target)
	if target == v.target {
		return
	}

	if v.steps <= 0 {
		v.SetCurrentAndTarget(target)
		return
	}

	v.target = target
	v.countdown = v.steps

	if v.mode == Logarithmic {
		v.step = (math.Log(target) - math.Log(v.current)) / float64(v.steps)
	} else {
		v.step = (target - v.current) / float64(v.steps)
	}
}

// Next advances one step and returns the new current value.
func (v *Value) Next() float64 {
	if v.countdown <= 0 {
		return v.target
	}

	v.countdown--
	if v.countdown == 0 {
		v.current = v.target
	} else {
		v.advance(1)
	}

	return v.current
}

// Skip advances n steps and returns the resulting current value.
func (v *Value) Skip(n int) float64 {
	if n <= 0 {
		return v.current
	}

	if n >= v.countdown {
		v.SetCurrentAndTarget(v.target)
		return v.target
	}

	v.countdown -= n
	v.advance(n)

	return v.current
}

// IsSmoothing reports whether a ramp is in progress.
func (v *Value) IsSmoothing() bool {
	return v.countdown > 0
}

// Current returns the present value.
func (v *Value) Current() float64 {
	return v.current
}

// Target returns the value the ramp is heading to.
func (v *Value) Target() float64 {
	return v.target
}

func (v *Value) advance(n int) {
	if v.mode == Logarithmic {
		v.current *= math.Exp(v.step * float64(n))
		return
	}

	v.current += v.step * float64(n)
}

func (v *Value) sanitize(x float64) float64 {
	if math.IsNaN(x) {
		x = 0
	}

	if v.mode == Logarithmic && x < MinLogValue {
		return MinLogValue
	}

	return x
}
