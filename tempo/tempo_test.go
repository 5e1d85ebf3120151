package tempo

import (
	"math"
	"testing"
)

func TestMillis(t *testing.T) {
	tests := []struct {
		note Note
		bpm  float64
		want float64
	}{
		{Quarter, 120, 500},
		{Eighth, 120, 250},
		{Sixteenth, 120, 125},
		{EighthDotted, 100, 450},
		{QuarterTriplet, 90, 444.44444444444446},
		{Whole, 60, 4000},
		{Quarter, 0, 500},
		{Quarter, -5, 500},
		{Quarter, math.NaN(), 500},
	}

	for _, tt := range tests {
		got := Millis(tt.note, tt.bpm)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("Millis(%v, %v) = %v want %v", tt.note, tt.bpm, got, tt.want)
		}
	}
}

func TestNotesAreOrderedByLength(t *testing.T) {
	notes := Notes()
	if len(notes) != int(numNotes) {
		t.Fatalf("len=%d", len(notes))
	}
	for i := 1; i < len(notes); i++ {
		if notes[i].Beats() <= notes[i-1].Beats() {
			t.Fatalf("%v (%v) not longer than %v (%v)", notes[i], notes[i].Beats(), notes[i-1], notes[i-1].Beats())
		}
	}
}

func TestStringAndParse(t *testing.T) {
	for _, n := range Notes() {
		got, err := ParseNote(n.String())
		if err != nil || got != n {
			t.Fatalf("round trip %v: got %v err %v", n, got, err)
		}
	}
	if _, err := ParseNote("3/7"); err == nil {
		t.Fatal("expected error")
	}
	if Note(99).String() != "Note(99)" || Note(-1).Beats() != 0 {
		t.Fatal("invalid note handling")
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve(Eighth, Fixed(150)); got != 200 {
		t.Fatalf("got %v want 200", got)
	}
	if got := Resolve(Eighth, Fixed(0)); got != 250 {
		t.Fatalf("invalid tempo: got %v want 250", got)
	}
	if got := Resolve(Eighth, nil); got != 250 {
		t.Fatalf("nil source: got %v want 250", got)
	}
}
