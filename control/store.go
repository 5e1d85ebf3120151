package control

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/cwbudde/algo-tapdelay/dsp/core"
)

var (
	// ErrUnknownControl is returned for ids that were never defined.
	ErrUnknownControl = errors.New("control: unknown control")
	// ErrDuplicateControl is returned when an id is defined twice.
	ErrDuplicateControl = errors.New("control: duplicate control")
	// ErrInvalidSpec is returned for malformed control specs.
	ErrInvalidSpec = errors.New("control: invalid spec")
)

// Spec describes one control. A positive Step quantizes values to
// Min + k*Step, which is how toggles (0/1) and choice indices are expressed.
type Spec struct {
	ID      string
	Min     float64
	Max     float64
	Default float64
	Step    float64
}

// Validate reports whether the spec is usable.
func (s Spec) Validate() error {
	switch {
	case s.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidSpec)
	case math.IsNaN(s.Min) || math.IsNaN(s.Max) || s.Min > s.Max:
		return fmt.Errorf("%w: %q range [%v, %v]", ErrInvalidSpec, s.ID, s.Min, s.Max)
	case s.Default < s.Min || s.Default > s.Max || math.IsNaN(s.Default):
		return fmt.Errorf("%w: %q default %v outside [%v, %v]", ErrInvalidSpec, s.ID, s.Default, s.Min, s.Max)
	case s.Step < 0 || math.IsNaN(s.Step):
		return fmt.Errorf("%w: %q step %v", ErrInvalidSpec, s.ID, s.Step)
	}

	return nil
}

// Normalize clamps v into range and snaps it to Step.
func (s Spec) Normalize(v float64) float64 {
	v = core.Clamp(v, s.Min, s.Max)
	if s.Step > 0 {
		v = s.Min + math.Round((v-s.Min)/s.Step)*s.Step
		v = core.Clamp(v, s.Min, s.Max)
	}

	return v
}

// Listener receives (id, value) after a control changed.
type Listener func(id string, value float64)

type entry struct {
	spec      Spec
	cell      Cell
	listeners map[uint64]Listener
}

// Store holds the live value of every control.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	nextSub uint64
}

// NewStore returns a store holding specs at their defaults.
func NewStore(specs ...Spec) (*Store, error) {
	s := &Store{entries: make(map[string]*entry, len(specs))}
	if err := s.Define(specs...); err != nil {
		return nil, err
	}

	return s, nil
}

// Define adds controls. Either all specs are added or none.
func (s *Store) Define(specs ...Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		if err := sp.Validate(); err != nil {
			return err
		}
		if _, ok := s.entries[sp.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateControl, sp.ID)
		}
		if _, ok := seen[sp.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateControl, sp.ID)
		}
		seen[sp.ID] = struct{}{}
	}

	for _, sp := range specs {
		e := &entry{spec: sp}
		e.cell.Store(sp.Normalize(sp.Default))
		s.entries[sp.ID] = e
		s.order = append(s.order, sp.ID)
	}

	return nil
}

// Set normalizes v, publishes it to the audio thread and notifies
// listeners on the calling goroutine.
func (s *Store) Set(id string, v float64) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.RUnlock()
		return fmt.Errorf("%w: %q", ErrUnknownControl, id)
	}

	v = e.spec.Normalize(v)
	e.cell.Store(v)

	listeners := make([]Listener, 0, len(e.listeners))
	for _, key := range slices.Sorted(maps.Keys(e.listeners)) {
		listeners = append(listeners, e.listeners[key])
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(id, v)
	}

	return nil
}

// Value returns the current value of id.
func (s *Store) Value(id string) (float64, error) {
	e, err := s.lookup(id)
	if err != nil {
		return 0, err
	}

	return e.cell.Load(), nil
}

// Resolve returns the cell backing id. The result stays valid for the
// lifetime of the store and may be read from the audio thread.
func (s *Store) Resolve(id string) (Source, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	return &e.cell, nil
}

// Subscribe registers l for changes of id. The returned cancel function
// removes it and is safe to call more than once.
func (s *Store) Subscribe(id string, l Listener) (func(), error) {
	if l == nil {
		return nil, fmt.Errorf("control: nil listener for %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownControl, id)
	}

	if e.listeners == nil {
		e.listeners = make(map[uint64]Listener)
	}

	key := s.nextSub
	s.nextSub++
	e.listeners[key] = l

	cancel := func() {
		s.mu.Lock()
		delete(e.listeners, key)
		s.mu.Unlock()
	}

	return cancel, nil
}

// IDs returns all control ids in definition order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.order)
}

// Spec returns the spec of id.
func (s *Store) Spec(id string) (Spec, error) {
	e, err := s.lookup(id)
	if err != nil {
		return Spec{}, err
	}

	return e.spec, nil
}

// Snapshot returns the current value of every control.
func (s *Store) Snapshot() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.entries))
	for id, e := range s.entries {
		out[id] = e.cell.Load()
	}

	return out
}

// Restore sets every value in values. Unknown ids are skipped and reported
// together in the returned error.
func (s *Store) Restore(values map[string]float64) error {
	var errs []error
	for _, id := range slices.Sorted(maps.Keys(values)) {
		if err := s.Set(id, values[id]); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownControl, id)
	}

	return e, nil
}
