// Package cliutil holds the flag types and logging setup shared by the
// tapdelay commands.
package cliutil

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-vecmath/cpu"

	"github.com/cwbudde/algo-tapdelay/control"
)

// Assignment sets one control.
type Assignment struct {
	ID    string
	Value float64
}

// ParseAssignment parses "id=value".
func ParseAssignment(s string) (Assignment, error) {
	id, raw, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return Assignment{}, fmt.Errorf("want id=value, got %q", s)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Assignment{}, fmt.Errorf("control %q: %w", id, err)
	}

	return Assignment{ID: id, Value: v}, nil
}

// Apply stores a in store.
func (a Assignment) Apply(store *control.Store) error {
	return store.Set(a.ID, a.Value)
}

// Assignments is a repeatable flag of "id=value" pairs.
type Assignments []Assignment

func (l *Assignments) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, a := range *l {
		parts[i] = fmt.Sprintf("%s=%g", a.ID, a.Value)
	}
	return strings.Join(parts, ",")
}

// Set implements flag.Value.
func (l *Assignments) Set(s string) error {
	a, err := ParseAssignment(s)
	if err != nil {
		return err
	}
	*l = append(*l, a)
	return nil
}

// ApplyAll stores every assignment in order.
func (l Assignments) ApplyAll(store *control.Store) error {
	for _, a := range l {
		if err := a.Apply(store); err != nil {
			return err
		}
	}
	return nil
}

// Event is an assignment scheduled at a point of the rendered timeline.
type Event struct {
	At time.Duration
	Assignment
}

// Frame returns the sample frame at which e fires.
func (e Event) Frame(sampleRate int) int {
	return int(e.At.Seconds() * float64(sampleRate))
}

// ParseEvent parses "id=value@seconds".
func ParseEvent(s string) (Event, error) {
	assign, at, ok := strings.Cut(s, "@")
	if !ok {
		return Event{}, fmt.Errorf("want id=value@seconds, got %q", s)
	}

	a, err := ParseAssignment(assign)
	if err != nil {
		return Event{}, err
	}

	sec, err := strconv.ParseFloat(strings.TrimSpace(at), 64)
	if err != nil || sec < 0 {
		return Event{}, fmt.Errorf("control %q: invalid time %q", a.ID, at)
	}

	return Event{At: time.Duration(sec * float64(time.Second)), Assignment: a}, nil
}

// Schedule is a repeatable flag of "id=value@seconds" events.
type Schedule []Event

func (s *Schedule) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(*s))
	for i, e := range *s {
		parts[i] = fmt.Sprintf("%s=%g@%gs", e.ID, e.Value, e.At.Seconds())
	}
	return strings.Join(parts, ",")
}

// Set implements flag.Value. Events are kept sorted by time; events at the
// same time keep their command-line order.
func (s *Schedule) Set(v string) error {
	e, err := ParseEvent(v)
	if err != nil {
		return err
	}
	*s = append(*s, e)
	slices.SortStableFunc(*s, func(a, b Event) int {
		switch {
		case a.At < b.At:
			return -1
		case a.At > b.At:
			return 1
		default:
			return 0
		}
	})
	return nil
}

// Cursor walks a Schedule in time order.
type Cursor struct {
	events []Event
	next   int
}

// Cursor returns a cursor at the start of s.
func (s Schedule) Cursor() *Cursor {
	return &Cursor{events: s}
}

// Due applies every event firing before frame end and returns how many
// were applied.
func (c *Cursor) Due(store *control.Store, end, sampleRate int) (int, error) {
	applied := 0
	for c.next < len(c.events) && c.events[c.next].Frame(sampleRate) < end {
		if err := c.events[c.next].Apply(store); err != nil {
			return applied, err
		}
		c.next++
		applied++
	}
	return applied, nil
}

// Done reports whether every event was applied.
func (c *Cursor) Done() bool {
	return c.next >= len(c.events)
}

// NewLogger returns a text logger writing to w, at debug level when verbose.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// LogCPU reports the SIMD features the vector kernels dispatch on.
func LogCPU(logger *slog.Logger) {
	f := cpu.DetectFeatures()
	logger.Debug("cpu features",
		"arch", f.Architecture,
		"sse2", f.HasSSE2,
		"avx", f.HasAVX,
		"avx2", f.HasAVX2,
		"avx512", f.HasAVX512,
		"neon", f.HasNEON,
		"force_generic", f.ForceGeneric,
	)
}
