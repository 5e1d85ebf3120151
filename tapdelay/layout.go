package tapdelay

import (
	"fmt"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/dsp/filter/dualband"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

const (
	// MaxTaps is the largest selectable number of taps.
	MaxTaps = 32

	MinDelayMillis     = 20.0
	MaxDelayMillis     = 250.0
	DefaultDelayMillis = 100.0

	// DefaultNote is the tempo-synced delay used until a note is chosen.
	DefaultNote = tempo.Sixteenth
)

// TapCounts lists the values selectable through IDNumTaps, by index.
var TapCounts = [...]int{8, 16, MaxTaps}

// Global control ids.
const (
	IDDelayTime   = "delay-time"   // ms
	IDTempoSync   = "tempo-sync"   // toggle
	IDNote        = "note"         // tempo.Note index
	IDNumTaps     = "num-taps"     // index into TapCounts
	IDLoop        = "loop"         // toggle
	IDDryWet      = "dry-wet"      // percent
	IDFalloff     = "falloff"      // percent lost per repeat
	IDLinkAmps    = "link-amps"    // toggle, right taps follow left gains
	IDLinkFilters = "link-filters" // toggle, right filters follow left filters
)

// Side names one of the two channels.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

// AmpID returns the control id of a tap gain. Tap 0 scales the dry signal
// and the loop.
func AmpID(side Side, tap int) string {
	return fmt.Sprintf("%s-amp-%d", side, tap)
}

// HighPassID returns the control id of a tap's high-pass corner in Hz.
func HighPassID(side Side, tap int) string {
	return fmt.Sprintf("%s-hp-%d", side, tap)
}

// LowPassID returns the control id of a tap's low-pass corner in Hz.
func LowPassID(side Side, tap int) string {
	return fmt.Sprintf("%s-lp-%d", side, tap)
}

// FilterMixID returns the control id of a tap's filter mix in percent.
func FilterMixID(side Side, tap int) string {
	return fmt.Sprintf("%s-mix-%d", side, tap)
}

func toggle(id string) control.Spec {
	return control.Spec{ID: id, Min: 0, Max: 1, Step: 1}
}

// Specs returns the full control layout of a Processor.
func Specs() []control.Spec {
	specs := []control.Spec{
		{ID: IDDelayTime, Min: MinDelayMillis, Max: MaxDelayMillis, Default: DefaultDelayMillis},
		toggle(IDTempoSync),
		{ID: IDNote, Min: 0, Max: float64(len(tempo.Notes()) - 1), Default: float64(DefaultNote), Step: 1},
		{ID: IDNumTaps, Min: 0, Max: float64(len(TapCounts) - 1), Default: 1, Step: 1},
		toggle(IDLoop),
		{ID: IDDryWet, Min: 0, Max: 100, Default: 50},
		{ID: IDFalloff, Min: 0, Max: 100, Default: 0},
		toggle(IDLinkAmps),
		toggle(IDLinkFilters),
	}

	for _, side := range []Side{Left, Right} {
		for tap := range MaxTaps {
			amp := 0.0
			if tap == 0 {
				amp = 1
			}

			specs = append(specs,
				control.Spec{ID: AmpID(side, tap), Min: 0, Max: 1, Default: amp},
				control.Spec{
					ID: HighPassID(side, tap), Min: dualband.MinCutoff, Max: dualband.MaxCutoff,
					Default: dualband.DefaultHighPass,
				},
				control.Spec{
					ID: LowPassID(side, tap), Min: dualband.MinCutoff, Max: dualband.MaxCutoff,
					Default: dualband.DefaultLowPass,
				},
				control.Spec{ID: FilterMixID(side, tap), Min: 0, Max: 100, Default: 100 * dualband.DefaultMix},
			)
		}
	}

	return specs
}
