package response

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-tapdelay/dsp/filter/dualband"
)

func TestCurveDryIsFlat(t *testing.T) {
	cfg := Config{SampleRate: 48000, HighPass: 500, LowPass: 2000, Mix: 0, Order: 2}
	for i, db := range Curve(cfg, LogFrequencies(20, 20000, 32)) {
		if math.Abs(db) > 1e-9 {
			t.Fatalf("point %d: %v dB want 0", i, db)
		}
	}
}

func TestCurveLowPassCorner(t *testing.T) {
	tests := []struct {
		order int
		want  float64
	}{
		{1, -3.01},
		{2, -3.01},
	}

	for _, tt := range tests {
		cfg := Config{SampleRate: 48000, HighPass: 20, LowPass: 1000, Mix: 1, Order: tt.order}
		got := Curve(cfg, []float64{1000, 100, 10000})

		if math.Abs(got[0]-tt.want) > 0.05 {
			t.Fatalf("order %d: %v dB at corner want %v", tt.order, got[0], tt.want)
		}
		if got[1] < -0.1 {
			t.Fatalf("order %d: passband %v dB", tt.order, got[1])
		}
		if got[2] > -15 {
			t.Fatalf("order %d: stopband only %v dB", tt.order, got[2])
		}
	}
}

func TestCurveHalfMixFloor(t *testing.T) {
	// Deep in the stopband only the dry half remains.
	cfg := Config{SampleRate: 48000, HighPass: 20, LowPass: 100, Mix: 0.5, Order: 2}
	got := Curve(cfg, []float64{15000})[0]
	if want := 20 * math.Log10(0.5); math.Abs(got-want) > 0.05 {
		t.Fatalf("got %v dB want %v", got, want)
	}
}

func TestCurveInvalidSampleRate(t *testing.T) {
	for _, db := range Curve(Config{}, []float64{100, 1000}) {
		if db != FloorDB {
			t.Fatalf("got %v want floor", db)
		}
	}
}

func TestFFTCurveMatchesAnalytic(t *testing.T) {
	const size = 4096
	cfg := Config{SampleRate: 48000, HighPass: 200, LowPass: 5000, Mix: 1, Order: 2}

	fft, err := FFTCurve(cfg, size)
	if err != nil {
		t.Fatalf("FFTCurve() error = %v", err)
	}
	if len(fft) != size/2+1 {
		t.Fatalf("len = %d", len(fft))
	}

	for k := range fft {
		freq := BinFrequency(k, size, cfg.SampleRate)
		if freq < 500 || freq > 15000 {
			continue
		}
		want := Curve(cfg, []float64{freq})[0]
		if math.Abs(fft[k]-want) > 0.05 {
			t.Fatalf("bin %d (%.1f Hz): fft %v dB analytic %v dB", k, freq, fft[k], want)
		}
	}
}

func TestFFTCurveValidation(t *testing.T) {
	if _, err := FFTCurve(Config{SampleRate: 48000, Mix: 1}, 1); err == nil {
		t.Fatal("expected size error")
	}
	if _, err := FFTCurve(Config{Mix: 1}, 1024); err == nil {
		t.Fatal("expected sample rate error")
	}
}

func TestFromFilter(t *testing.T) {
	f := dualband.New(dualband.WithOrder(1))
	if err := f.Prepare(44100, 64); err != nil {
		t.Fatal(err)
	}
	f.SetTargets(300, 3000, 0.25)

	cfg := FromFilter(f)
	want := Config{SampleRate: 44100, HighPass: 300, LowPass: 3000, Mix: 0.25, Order: 1}
	if math.Abs(cfg.HighPass-want.HighPass) > 1e-9 || math.Abs(cfg.LowPass-want.LowPass) > 1e-9 ||
		cfg.Mix != want.Mix || cfg.Order != want.Order || cfg.SampleRate != want.SampleRate {
		t.Fatalf("got %+v want %+v", cfg, want)
	}
}

func TestLogFrequencies(t *testing.T) {
	got := LogFrequencies(20, 20000, 4)
	want := []float64{20, 200, 2000, 20000}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9*want[i] {
			t.Fatalf("point %d: %v want %v", i, got[i], want[i])
		}
	}
	if LogFrequencies(0, 10, 4) != nil {
		t.Fatal("expected nil for invalid range")
	}
}
