package tapdelay

import (
	"math"
	"slices"
	"testing"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/internal/testutil"
)

const testBlock = 256

func newTestChannel(t *testing.T, policy CrossfadePolicy) (*Channel, *control.Store) {
	t.Helper()

	store, err := control.NewStore(Specs()...)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	ch, err := NewChannel(store, Left, ChannelConfig{Policy: policy})
	if err != nil {
		t.Fatalf("NewChannel() error = %v", err)
	}
	if err := ch.Prepare(48000, testBlock, 1024); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	return ch, store
}

func setTaps(t *testing.T, store *control.Store, id func(Side, int) string, side Side, v float64) {
	t.Helper()

	for k := range MaxTaps {
		if err := store.Set(id(side, k), v); err != nil {
			t.Fatalf("Set(%s) error = %v", id(side, k), err)
		}
	}
}

func evenPeaks(first, step, last int) []int {
	var out []int
	for i := first; i <= last; i += step {
		out = append(out, i)
	}
	return out
}

func TestNewChannelNilStore(t *testing.T) {
	if _, err := NewChannel(nil, Left, ChannelConfig{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestChannelPrepareValidation(t *testing.T) {
	ch, _ := newTestChannel(t, DeferChanges)

	tests := []struct {
		name     string
		sr       float64
		block    int
		capacity int
	}{
		{"zero rate", 0, 64, 1024},
		{"zero block", 48000, 0, 1024},
		{"capacity below block", 48000, 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ch.Prepare(tt.sr, tt.block, tt.capacity); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestChannelProcessContractPanics(t *testing.T) {
	store, err := control.NewStore(Specs()...)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := NewChannel(store, Left, ChannelConfig{})
	if err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic before Prepare")
			}
		}()
		ch.Process(make([]float64, 8), make([]float64, 8), BlockParams{DelaySamples: 4, Taps: 8})
	}()

	if err := ch.Prepare(48000, 16, 256); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic for oversized block")
			}
		}()
		ch.Process(make([]float64, 17), make([]float64, 17), BlockParams{DelaySamples: 4, Taps: 8})
	}()
}

func TestTapCountChangeImpulse(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, AmpID, Left, 1)
	setTaps(t, store, FilterMixID, Left, 0)

	params := BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.5, Falloff: 1}
	out := make([]float64, testBlock)

	ch.Process(testutil.Impulse(testBlock, 0), out, params)
	if got, want := testutil.Peaks(out, 1e-9), evenPeaks(0, 10, 70); !slices.Equal(got, want) {
		t.Fatalf("8 taps: peaks %v want %v", got, want)
	}
	for _, i := range evenPeaks(0, 10, 70) {
		if math.Abs(out[i]-0.5) > 1e-12 {
			t.Fatalf("8 taps: out[%d]=%v want 0.5", i, out[i])
		}
	}

	params.Taps = 16
	silence := make([]float64, testBlock)
	for _, want := range []State{FadingOut, FadingIn} {
		ch.Process(silence, out, params)
		if got := ch.State(); got != want {
			t.Fatalf("state %v want %v", got, want)
		}
		if peak := testutil.PeakAbs(out); peak != 0 {
			t.Fatalf("%v block not silent: peak %v", want, peak)
		}
	}

	ch.Process(testutil.Impulse(testBlock, 0), out, params)
	if ch.State() != Stable {
		t.Fatalf("state %v want stable", ch.State())
	}
	if got, want := testutil.Peaks(out, 1e-9), evenPeaks(0, 10, 150); !slices.Equal(got, want) {
		t.Fatalf("16 taps: peaks %v want %v", got, want)
	}
	for _, i := range evenPeaks(0, 10, 150) {
		if math.Abs(out[i]-0.5) > 1e-12 {
			t.Fatalf("16 taps: out[%d]=%v want 0.5", i, out[i])
		}
	}
}

func TestCrossfadeNoOvershoot(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, AmpID, Left, 1)
	setTaps(t, store, FilterMixID, Left, 0)

	// dry 0.5 plus seven taps at 0.5
	const steady = 4.0

	in := testutil.DC(1, testBlock)
	out := make([]float64, testBlock)
	params := BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.5, Falloff: 1}

	for b := range 7 {
		if b == 2 {
			params.DelaySamples = 20
		}
		ch.Process(in, out, params)
		testutil.RequireFinite(t, out)

		for i, v := range out {
			if v > steady+1e-9 || v < 0.5-1e-9 {
				t.Fatalf("block %d state %v: out[%d]=%v outside [0.5, %v]", b, ch.State(), i, v, steady)
			}
		}
		if b == 1 || b == 6 {
			testutil.RequireSliceNearlyEqual(t, out, testutil.DC(steady, testBlock), 1e-9)
		}
	}
}

func TestCrossfadeIsMonotonic(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, AmpID, Left, 1)
	setTaps(t, store, FilterMixID, Left, 0)

	in := testutil.DC(1, testBlock)
	out := make([]float64, testBlock)
	params := BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.5, Falloff: 1}
	ch.Process(in, out, params)
	ch.Process(in, out, params)

	params.DelaySamples = 12
	ch.Process(in, out, params)
	if ch.State() != FadingOut {
		t.Fatalf("state %v want fading-out", ch.State())
	}
	for i := 1; i < len(out); i++ {
		if out[i] > out[i-1]+1e-12 {
			t.Fatalf("fade-out rises at %d: %v -> %v", i, out[i-1], out[i])
		}
	}
	if math.Abs(out[len(out)-1]-0.5) > 1e-12 {
		t.Fatalf("fade-out ends at %v want dry 0.5", out[len(out)-1])
	}
}

func TestDryWetRamp(t *testing.T) {
	ch, _ := newTestChannel(t, DeferChanges)

	const n = 64
	in := testutil.DC(1, n)
	out := make([]float64, n)

	ch.Process(in, out, BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.2, Falloff: 1})
	testutil.RequireSliceNearlyEqual(t, out, testutil.DC(0.8, n), 1e-12)

	ch.Process(in, out, BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.8, Falloff: 1})
	if ch.State() != Stable {
		t.Fatalf("wet change must not crossfade, state %v", ch.State())
	}
	want := make([]float64, n)
	for i := range want {
		wet := 0.2 + 0.6*float64(i+1)/n
		want[i] = 1 - wet
	}
	testutil.RequireSliceNearlyEqual(t, out, want, 1e-12)
}

func TestStateSequence(t *testing.T) {
	tests := []struct {
		name   string
		policy CrossfadePolicy
		delays []int
		want   []State
	}{
		{
			name:   "defer",
			policy: DeferChanges,
			delays: []int{10, 20, 30, 40, 40, 40, 40},
			want:   []State{Stable, FadingOut, FadingIn, Stable, FadingOut, FadingIn, Stable},
		},
		{
			name:   "mute",
			policy: MuteBackToBack,
			delays: []int{10, 20, 30, 30, 30},
			want:   []State{Stable, FadingOut, FadingOut, FadingIn, Stable},
		},
		{
			name:   "mute restarts from fading-in",
			policy: MuteBackToBack,
			delays: []int{10, 20, 20, 30, 30, 30},
			want:   []State{Stable, FadingOut, FadingIn, FadingOut, FadingIn, Stable},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, _ := newTestChannel(t, tt.policy)
			in := make([]float64, 32)

			var got []State
			for _, d := range tt.delays {
				ch.Process(in, in, BlockParams{DelaySamples: d, Taps: 8, Wet: 0.5, Falloff: 1})
				got = append(got, ch.State())
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("states %v want %v", got, tt.want)
			}
		})
	}
}

func TestDelayAndTapChangeFoldIntoOneCrossfade(t *testing.T) {
	ch, _ := newTestChannel(t, DeferChanges)
	in := make([]float64, 32)

	ch.Process(in, in, BlockParams{DelaySamples: 10, Taps: 8})
	ch.Process(in, in, BlockParams{DelaySamples: 20, Taps: 16})
	ch.Process(in, in, BlockParams{DelaySamples: 20, Taps: 16})
	ch.Process(in, in, BlockParams{DelaySamples: 20, Taps: 16})
	if ch.State() != Stable {
		t.Fatalf("state %v want stable", ch.State())
	}
}

func TestMutedBlockIsDryOnly(t *testing.T) {
	ch, store := newTestChannel(t, MuteBackToBack)
	setTaps(t, store, AmpID, Left, 1)
	setTaps(t, store, FilterMixID, Left, 0)

	in := testutil.DC(1, testBlock)
	out := make([]float64, testBlock)
	params := BlockParams{DelaySamples: 10, Taps: 8, Wet: 0.5, Falloff: 1}

	ch.Process(in, out, params)
	params.DelaySamples = 20
	ch.Process(in, out, params)
	params.DelaySamples = 30
	ch.Process(in, out, params)

	if ch.State() != FadingOut {
		t.Fatalf("state %v want fading-out", ch.State())
	}
	testutil.RequireSliceNearlyEqual(t, out, testutil.DC(0.5, testBlock), 0)
}

func TestLoopRecirculates(t *testing.T) {
	tests := []struct {
		name    string
		falloff float64
		want    []float64 // at 80, 160, 240
	}{
		{"lossless", 1, []float64{1, 1, 1}},
		{"half per repeat", 0.5, []float64{math.Pow(0.5, 8), math.Pow(0.5, 16), math.Pow(0.5, 24)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, store := newTestChannel(t, DeferChanges)
			setTaps(t, store, FilterMixID, Left, 0)

			out := make([]float64, testBlock)
			ch.Process(testutil.Impulse(testBlock, 0), out, BlockParams{
				DelaySamples: 10, Taps: 8, Wet: 1, Falloff: tt.falloff, Loop: true,
			})

			if got, want := testutil.Peaks(out, 1e-12), []int{80, 160, 240}; !slices.Equal(got, want) {
				t.Fatalf("peaks %v want %v", got, want)
			}
			for i, idx := range []int{80, 160, 240} {
				if math.Abs(out[idx]-tt.want[i]) > 1e-12 {
					t.Fatalf("out[%d]=%v want %v", idx, out[idx], tt.want[i])
				}
			}
		})
	}
}

func TestFalloffCompoundsPerTap(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, AmpID, Left, 1)
	setTaps(t, store, FilterMixID, Left, 0)

	out := make([]float64, testBlock)
	ch.Process(testutil.Impulse(testBlock, 0), out, BlockParams{
		DelaySamples: 10, Taps: 8, Wet: 1, Falloff: 0.5,
	})

	if got, want := testutil.Peaks(out, 1e-12), evenPeaks(10, 10, 70); !slices.Equal(got, want) {
		t.Fatalf("peaks %v want %v", got, want)
	}
	for k := 1; k < 8; k++ {
		if got, want := out[10*k], math.Pow(0.5, float64(k)); math.Abs(got-want) > 1e-12 {
			t.Fatalf("tap %d: out[%d]=%v want %v", k, 10*k, got, want)
		}
	}
}

func TestTapGainRamp(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, FilterMixID, Left, 0)
	if err := store.Set(AmpID(Left, 0), 0); err != nil {
		t.Fatal(err)
	}
	if err := store.Set(AmpID(Left, 1), 1); err != nil {
		t.Fatal(err)
	}

	const n = 64
	in := testutil.DC(1, n)
	out := make([]float64, n)
	params := BlockParams{DelaySamples: 8, Taps: 8, Wet: 1, Falloff: 1}
	ch.Process(in, out, params)

	if err := store.Set(AmpID(Left, 1), 0.5); err != nil {
		t.Fatal(err)
	}
	ch.Process(in, out, params)

	want := make([]float64, n)
	for i := range want {
		want[i] = 1 - 0.5*float64(i+1)/n
	}
	testutil.RequireSliceNearlyEqual(t, out, want, 1e-12)
}

func TestProcessInPlaceMatchesSeparate(t *testing.T) {
	a, storeA := newTestChannel(t, DeferChanges)
	b, storeB := newTestChannel(t, DeferChanges)
	for _, s := range []*control.Store{storeA, storeB} {
		setTaps(t, s, AmpID, Left, 0.5)
		if err := s.Set(LowPassID(Left, 3), 2000); err != nil {
			t.Fatal(err)
		}
	}

	signal := testutil.DeterministicNoise(3, 0.5, 4*testBlock)
	inPlace := slices.Clone(signal)
	separate := make([]float64, len(signal))
	params := BlockParams{DelaySamples: 37, Taps: 16, Wet: 0.7, Falloff: 0.8, Loop: true}

	for off := 0; off < len(signal); off += testBlock {
		blk := inPlace[off : off+testBlock]
		a.Process(blk, blk, params)
		b.Process(signal[off:off+testBlock], separate[off:off+testBlock], params)
	}

	testutil.RequireSliceNearlyEqual(t, inPlace, separate, 0)
	testutil.RequireFinite(t, separate)
}

func TestChannelReset(t *testing.T) {
	ch, store := newTestChannel(t, DeferChanges)
	setTaps(t, store, AmpID, Left, 1)

	out := make([]float64, testBlock)
	ch.Process(testutil.DC(1, testBlock), out, BlockParams{DelaySamples: 10, Taps: 8, Wet: 1, Falloff: 1})
	ch.Process(testutil.DC(1, testBlock), out, BlockParams{DelaySamples: 20, Taps: 8, Wet: 1, Falloff: 1})

	ch.Reset()
	if ch.State() != Stable {
		t.Fatalf("state after reset %v", ch.State())
	}

	ch.Process(make([]float64, testBlock), out, BlockParams{DelaySamples: 20, Taps: 8, Wet: 1, Falloff: 1})
	if peak := testutil.PeakAbs(out); peak != 0 {
		t.Fatalf("reset channel still rings: peak %v", peak)
	}
	if ch.State() != Stable {
		t.Fatalf("first block after reset must be stable, got %v", ch.State())
	}
}

func TestOversizedDelayIsClamped(t *testing.T) {
	ch, _ := newTestChannel(t, DeferChanges)
	in := testutil.DeterministicNoise(1, 1, testBlock)
	out := make([]float64, testBlock)

	// 32 taps of 1000 samples do not fit into 1024; the spacing shrinks to 32.
	ch.Process(in, out, BlockParams{DelaySamples: 1000, Taps: 32, Wet: 1, Falloff: 1, Loop: true})
	testutil.RequireFinite(t, out)
}

func BenchmarkChannelProcess(b *testing.B) {
	store, err := control.NewStore(Specs()...)
	if err != nil {
		b.Fatal(err)
	}
	for k := range MaxTaps {
		if err := store.Set(AmpID(Left, k), 0.5); err != nil {
			b.Fatal(err)
		}
	}

	ch, err := NewChannel(store, Left, ChannelConfig{})
	if err != nil {
		b.Fatal(err)
	}
	if err := ch.Prepare(48000, 512, RingCapacity(48000, 512)); err != nil {
		b.Fatal(err)
	}

	buf := testutil.DeterministicNoise(1, 0.5, 512)
	params := BlockParams{DelaySamples: 4800, Taps: 16, Wet: 0.5, Falloff: 0.9, Loop: true}

	b.ReportAllocs()
	b.SetBytes(int64(len(buf) * 8))
	b.ResetTimer()

	for range b.N {
		ch.Process(buf, buf, params)
	}
}
