// Command tapdelay-info prints the display values of the tap delay: the
// tempo-synced delay times of every note value and the magnitude curve of
// a tap filter.
//
// Usage:
//
//	tapdelay-info [flags] [notes|curve ...]
//
// Without arguments it prints both tables.
//
// Examples:
//
//	tapdelay-info -bpm 96 notes
//	tapdelay-info -hp 200 -lp 4000 -mix 80 curve
//	tapdelay-info -fft 4096 -order 1 curve
//
// Flags must come before the table names.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-tapdelay/measure/response"
	"github.com/cwbudde/algo-tapdelay/tapdelay"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

type curveFlags struct {
	sampleRate float64
	highPass   float64
	lowPass    float64
	mix        float64 // percent, as on the control
	order      int
	points     int
	fft        int
}

func main() {
	bpm := flag.Float64("bpm", tempo.DefaultBPM, "tempo for the note table")
	var cf curveFlags
	flag.Float64Var(&cf.sampleRate, "rate", 48000, "sample rate in Hz")
	flag.Float64Var(&cf.highPass, "hp", 20, "high-pass corner in Hz")
	flag.Float64Var(&cf.lowPass, "lp", 20000, "low-pass corner in Hz")
	flag.Float64Var(&cf.mix, "mix", 100, "filter mix in percent")
	flag.IntVar(&cf.order, "order", 2, "filter order (1 or 2)")
	flag.IntVar(&cf.points, "points", 16, "number of log-spaced curve points")
	flag.IntVar(&cf.fft, "fft", 0, "also measure the curve from an impulse response FFT of this size")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tapdelay-info [flags] [notes|curve ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints tempo-synced delay times and tap filter curves.\n")
		fmt.Fprintf(os.Stderr, "Flags must precede the table names.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := printTables(os.Stdout, flag.Args(), *bpm, cf); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// printTables writes the named tables, separated by blank lines. No names
// selects every table.
func printTables(out io.Writer, tables []string, bpm float64, cf curveFlags) error {
	if len(tables) == 0 {
		tables = []string{"notes", "curve"}
	}
	for _, name := range tables {
		if strings.HasPrefix(name, "-") {
			return fmt.Errorf("flag %s after table names; put flags first", name)
		}
	}

	for i, name := range tables {
		if i > 0 {
			fmt.Fprintln(out)
		}

		var err error
		switch strings.ToLower(name) {
		case "notes":
			err = printNotes(out, bpm)
		case "curve":
			err = printCurve(out, cf)
		default:
			err = fmt.Errorf("unknown table %q (use notes or curve)", name)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func printNotes(out io.Writer, bpm float64) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "NOTE\tBEATS\tMS @ %g BPM\tUSED MS\t\n", bpm)
	for _, n := range tempo.Notes() {
		ms := tempo.Millis(n, bpm)
		used := min(max(ms, tapdelay.MinDelayMillis), tapdelay.MaxDelayMillis)
		fmt.Fprintf(w, "%s\t%.4g\t%.2f\t%.2f\t\n", n, n.Beats(), ms, used)
	}
	return w.Flush()
}

func printCurve(out io.Writer, cf curveFlags) error {
	cfg := response.Config{
		SampleRate: cf.sampleRate,
		HighPass:   cf.highPass,
		LowPass:    cf.lowPass,
		Mix:        cf.mix / 100,
		Order:      cf.order,
	}

	freqs := response.LogFrequencies(20, min(20000, cf.sampleRate/2), cf.points)
	if len(freqs) == 0 {
		return fmt.Errorf("invalid curve range at %g Hz with %d points", cf.sampleRate, cf.points)
	}
	analytic := response.Curve(cfg, freqs)

	var measured []float64
	if cf.fft > 0 {
		m, err := response.FFTCurve(cfg, cf.fft)
		if err != nil {
			return err
		}
		measured = m
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	if measured != nil {
		fmt.Fprintln(w, "HZ\tDB\tFFT DB\t")
	} else {
		fmt.Fprintln(w, "HZ\tDB\t")
	}

	for i, f := range freqs {
		if measured == nil {
			fmt.Fprintf(w, "%.1f\t%.2f\t\n", f, analytic[i])
			continue
		}
		bin := int(f*float64(cf.fft)/cf.sampleRate + 0.5)
		bin = min(bin, len(measured)-1)
		fmt.Fprintf(w, "%.1f\t%.2f\t%.2f\t\n", f, analytic[i], measured[bin])
	}

	return w.Flush()
}
