package control

import "fmt"

// Smoothed exposes a control as a value at block start and a value at block
// end. Updates landing inside one block collapse to the latest; the audio
// thread is the only writer of the remembered start value.
type Smoothed struct {
	id    string
	src   Source
	start float64
	end   float64
	next  float64
	bound bool
}

// Bind attaches s to the cell of id in store.
func (s *Smoothed) Bind(store *Store, id string) error {
	src, err := store.Resolve(id)
	if err != nil {
		return fmt.Errorf("bind %q: %w", id, err)
	}

	s.Attach(src)
	s.id = id

	return nil
}

// Attach switches to src. The first attach seeds both block values from
// src. Later attaches keep the previous value as the next block's start, so
// the new source is approached by a ramp. Attach does not allocate and may
// run on the audio thread.
func (s *Smoothed) Attach(src Source) {
	if !s.bound {
		v := src.Load()
		s.start, s.end, s.next = v, v, v
		s.bound = true
	}

	s.src = src
}

// ID returns the id passed to the last Bind.
func (s *Smoothed) ID() string { return s.id }

// Source returns the attached source, or nil.
func (s *Smoothed) Source() Source { return s.src }

// BlockStart begins a block: it returns the value remembered from the end
// of the previous block and snapshots the source as this block's end. Call
// it once per block before BlockEnd.
func (s *Smoothed) BlockStart() float64 {
	s.start = s.next
	if s.src != nil {
		s.end = s.src.Load()
	} else {
		s.end = s.start
	}
	s.next = s.end

	return s.start
}

// BlockEnd returns the value snapshotted by BlockStart.
func (s *Smoothed) BlockEnd() float64 {
	return s.end
}

// Changed reports whether the value moves across the current block.
func (s *Smoothed) Changed() bool {
	return s.start != s.end
}

// Jump makes the current block start at its end value, skipping the ramp.
func (s *Smoothed) Jump() {
	s.start = s.end
}
