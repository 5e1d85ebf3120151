// Package tempo converts musical note values to delay times.
package tempo

import (
	"fmt"
	"math"
)

// DefaultBPM is used whenever no valid tempo is available.
const DefaultBPM = 120.0

// Note is a musical duration, ordered from shortest to longest.
type Note int

const (
	SixtyFourth Note = iota
	ThirtySecondTriplet
	ThirtySecond
	SixteenthTriplet
	ThirtySecondDotted
	Sixteenth
	EighthTriplet
	SixteenthDotted
	Eighth
	QuarterTriplet
	EighthDotted
	Quarter
	HalfTriplet
	QuarterDotted
	Half
	HalfDotted
	Whole

	numNotes
)

var noteInfo = [numNotes]struct {
	name  string
	beats float64
}{
	SixtyFourth:         {"1/64", 1.0 / 16},
	ThirtySecondTriplet: {"1/32T", 1.0 / 12},
	ThirtySecond:        {"1/32", 1.0 / 8},
	SixteenthTriplet:    {"1/16T", 1.0 / 6},
	ThirtySecondDotted:  {"1/32D", 3.0 / 16},
	Sixteenth:           {"1/16", 1.0 / 4},
	EighthTriplet:       {"1/8T", 1.0 / 3},
	SixteenthDotted:     {"1/16D", 3.0 / 8},
	Eighth:              {"1/8", 1.0 / 2},
	QuarterTriplet:      {"1/4T", 2.0 / 3},
	EighthDotted:        {"1/8D", 3.0 / 4},
	Quarter:             {"1/4", 1},
	HalfTriplet:         {"1/2T", 4.0 / 3},
	QuarterDotted:       {"1/4D", 3.0 / 2},
	Half:                {"1/2", 2},
	HalfDotted:          {"1/2D", 3},
	Whole:               {"1/1", 4},
}

// Notes returns every note in order.
func Notes() []Note {
	out := make([]Note, numNotes)
	for i := range out {
		out[i] = Note(i)
	}
	return out
}

// Valid reports whether n is a defined note.
func (n Note) Valid() bool {
	return n >= 0 && n < numNotes
}

// Beats returns the length in quarter-note beats, or 0 for an invalid note.
func (n Note) Beats() float64 {
	if !n.Valid() {
		return 0
	}
	return noteInfo[n].beats
}

func (n Note) String() string {
	if !n.Valid() {
		return fmt.Sprintf("Note(%d)", int(n))
	}
	return noteInfo[n].name
}

// ParseNote returns the note named s, e.g. "1/8D".
func ParseNote(s string) (Note, error) {
	for i, info := range noteInfo {
		if info.name == s {
			return Note(i), nil
		}
	}
	return 0, fmt.Errorf("tempo: unknown note %q", s)
}

// Source reports the current host tempo.
type Source interface {
	Tempo() (bpm float64, ok bool)
}

// Fixed is a Source with a constant tempo.
type Fixed float64

// Tempo returns the fixed tempo. Non-positive values report !ok.
func (f Fixed) Tempo() (float64, bool) {
	bpm := float64(f)
	return bpm, validBPM(bpm)
}

// Millis returns the duration of note at bpm in milliseconds. An invalid
// bpm falls back to DefaultBPM.
func Millis(note Note, bpm float64) float64 {
	if !validBPM(bpm) {
		bpm = DefaultBPM
	}
	return note.Beats() * 60000 / bpm
}

// Resolve is Millis with the tempo taken from src, which may be nil.
func Resolve(note Note, src Source) float64 {
	bpm := DefaultBPM
	if src != nil {
		if v, ok := src.Tempo(); ok {
			bpm = v
		}
	}
	return Millis(note, bpm)
}

func validBPM(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0) && !math.IsNaN(bpm)
}
