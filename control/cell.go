package control

import (
	"math"
	"sync/atomic"
)

// Source is a live value readable from the audio thread.
type Source interface {
	Load() float64
}

// Cell is a float64 with atomic load and store. It has a single writer
// and a single reader.
type Cell struct {
	bits atomic.Uint64
}

// Load returns the stored value.
func (c *Cell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Store replaces the value.
func (c *Cell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// Const is a Source that never changes.
type Const float64

// Load returns the constant.
func (c Const) Load() float64 { return float64(c) }
