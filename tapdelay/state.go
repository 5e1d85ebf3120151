package tapdelay

import "fmt"

// State is the crossfade phase of a channel for one block.
type State int

const (
	// Stable runs every tap at full strength.
	Stable State = iota
	// FadingOut plays the previous configuration with the repeats and the
	// loop faded 1→0. The ring is cleared at the end of the block.
	FadingOut
	// FadingIn plays the new configuration; the input enters the cleared
	// ring through a 0→1 ramp.
	FadingIn
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case FadingOut:
		return "fading-out"
	case FadingIn:
		return "fading-in"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CrossfadePolicy decides what happens to changes that arrive while a
// crossfade is in flight.
type CrossfadePolicy int

const (
	// DeferChanges completes every crossfade. A change seen during a fade
	// is picked up once the channel is back to Stable, so the delay can
	// change at most once every two blocks.
	DeferChanges CrossfadePolicy = iota
	// MuteBackToBack reacts to every change at once. A change right after
	// a FadingOut block starts another FadingOut with the wet path muted,
	// since the ring holds nothing valid to fade from.
	MuteBackToBack
)

func (p CrossfadePolicy) String() string {
	switch p {
	case DeferChanges:
		return "defer"
	case MuteBackToBack:
		return "mute"
	default:
		return fmt.Sprintf("CrossfadePolicy(%d)", int(p))
	}
}

// ParseCrossfadePolicy accepts the names returned by String.
func ParseCrossfadePolicy(s string) (CrossfadePolicy, error) {
	switch s {
	case "defer":
		return DeferChanges, nil
	case "mute":
		return MuteBackToBack, nil
	default:
		return 0, fmt.Errorf("tapdelay: unknown crossfade policy %q", s)
	}
}

// Link selects where a right-side tap reads its controls from.
type Link int

const (
	// Independent uses the channel's own controls.
	Independent Link = iota
	// MirroredFromOther uses the opposite channel's controls.
	MirroredFromOther
)

func (l Link) String() string {
	switch l {
	case Independent:
		return "independent"
	case MirroredFromOther:
		return "mirrored"
	default:
		return fmt.Sprintf("Link(%d)", int(l))
	}
}

// linkFromToggle maps a toggle control value to a Link.
func linkFromToggle(v float64) Link {
	if v >= 0.5 {
		return MirroredFromOther
	}
	return Independent
}
