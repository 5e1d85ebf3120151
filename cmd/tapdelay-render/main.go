// Command tapdelay-render runs a WAV file through the stereo tap delay.
//
// Usage:
//
//	tapdelay-render [flags] -in input.wav -out output.wav
//
// Controls are set by id before rendering and may be automated over time.
//
// Examples:
//
//	tapdelay-render -in dry.wav -out wet.wav -set delay-time=180 -set left-amp-1=0.7
//	tapdelay-render -in dry.wav -out wet.wav -note 1/8D -bpm 96 -tail
//	tapdelay-render -in dry.wav -out wet.wav -automate delay-time=60@2.5 -play
//	tapdelay-render -list
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/internal/cliutil"
	"github.com/cwbudde/algo-tapdelay/tapdelay"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

type options struct {
	in, out  string
	block    int
	bits     int
	bpm      float64
	note     string
	policy   string
	order    int
	tail     bool
	maxTail  time.Duration
	play     bool
	verbose  bool
	sets     cliutil.Assignments
	schedule cliutil.Schedule
}

func main() {
	var opts options

	list := flag.Bool("list", false, "list control ids with range and default")
	flag.StringVar(&opts.in, "in", "", "input WAV file (mono or stereo PCM)")
	flag.StringVar(&opts.out, "out", "", "output WAV file")
	flag.IntVar(&opts.block, "block", 256, "processing block size in frames")
	flag.IntVar(&opts.bits, "bits", 0, "output bit depth (16, 24 or 32; default: input depth)")
	flag.Float64Var(&opts.bpm, "bpm", tempo.DefaultBPM, "host tempo used by tempo-sync")
	flag.StringVar(&opts.note, "note", "", "tempo-synced delay as a note value, e.g. 1/8D (turns tempo-sync on)")
	flag.StringVar(&opts.policy, "policy", tapdelay.DeferChanges.String(), "crossfade policy: defer or mute")
	flag.IntVar(&opts.order, "order", 2, "tap filter order (1 or 2)")
	flag.BoolVar(&opts.tail, "tail", false, "append the delay tail after the input ends")
	flag.DurationVar(&opts.maxTail, "max-tail", 10*time.Second, "tail length limit, used while the loop is on")
	flag.BoolVar(&opts.play, "play", false, "play the rendered result")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.Var(&opts.sets, "set", "set a control before rendering, id=value (repeatable)")
	flag.Var(&opts.schedule, "automate", "set a control during rendering, id=value@seconds (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tapdelay-render [flags] -in input.wav -out output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Renders a WAV file through the stereo tap delay.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  tapdelay-render -in dry.wav -out wet.wav -set delay-time=180\n")
		fmt.Fprintf(os.Stderr, "  tapdelay-render -in dry.wav -out wet.wav -automate num-taps=2@1.5 -tail\n")
		fmt.Fprintf(os.Stderr, "  tapdelay-render -list\n")
	}
	flag.Parse()

	logger := cliutil.NewLogger(os.Stderr, opts.verbose)

	if *list {
		if err := printControls(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(opts, logger); err != nil {
		logger.Error("render failed", "err", err)
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	if opts.in == "" || opts.out == "" {
		return errors.New("both -in and -out are required")
	}
	if opts.block <= 0 {
		return fmt.Errorf("block size must be > 0: %d", opts.block)
	}

	policy, err := tapdelay.ParseCrossfadePolicy(opts.policy)
	if err != nil {
		return err
	}

	cliutil.LogCPU(logger)

	src, err := readWav(opts.in)
	if err != nil {
		return err
	}
	logger.Info("loaded input",
		"path", opts.in,
		"sample_rate", src.sampleRate,
		"channels", src.channels,
		"bit_depth", src.bitDepth,
		"frames", len(src.left),
	)

	p, err := tapdelay.New(
		tapdelay.WithSampleRate(float64(src.sampleRate)),
		tapdelay.WithMaxBlockSize(opts.block),
		tapdelay.WithCrossfadePolicy(policy),
		tapdelay.WithFilterOrder(opts.order),
		tapdelay.WithTempo(tempo.Fixed(opts.bpm)),
		tapdelay.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if err := opts.sets.ApplyAll(p.Store()); err != nil {
		return err
	}
	if opts.note != "" {
		if err := applyNote(p.Store(), opts.note); err != nil {
			return err
		}
	}

	tailFrames := 0
	if opts.tail {
		tail := p.TailSeconds()
		if math.IsInf(tail, 1) || tail > opts.maxTail.Seconds() {
			tail = opts.maxTail.Seconds()
		}
		tailFrames = int(tail * float64(src.sampleRate))
	}

	out := src.extend(tailFrames)
	start := time.Now()
	if err := render(p, out, opts.block, opts.schedule); err != nil {
		return err
	}
	logger.Info("rendered",
		"frames", len(out.left),
		"tail_frames", tailFrames,
		"delay_ms", p.DelayMillis(),
		"taps", p.Taps(),
		"elapsed", time.Since(start),
	)

	bits := opts.bits
	if bits == 0 {
		bits = src.bitDepth
	}
	if err := writeWav(opts.out, out, bits); err != nil {
		return err
	}
	logger.Info("wrote output", "path", opts.out, "bit_depth", bits)

	if opts.play {
		return play(out, logger)
	}

	return nil
}

// applyNote switches the delay to tempo sync at the named note value.
func applyNote(store *control.Store, name string) error {
	note, err := tempo.ParseNote(name)
	if err != nil {
		return err
	}
	if err := store.Set(tapdelay.IDNote, float64(note)); err != nil {
		return err
	}
	return store.Set(tapdelay.IDTempoSync, 1)
}

// render processes buf in blocks of block frames. Scheduled events are
// applied before the block that contains them.
func render(p *tapdelay.Processor, buf *stereo, block int, schedule cliutil.Schedule) error {
	cursor := schedule.Cursor()
	for off := 0; off < len(buf.left); off += block {
		end := min(off+block, len(buf.left))
		if _, err := cursor.Due(p.Store(), end, buf.sampleRate); err != nil {
			return err
		}
		p.Process(buf.left[off:end], buf.right[off:end])
	}
	return nil
}

func printControls() error {
	p, err := tapdelay.New()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMIN\tMAX\tDEFAULT\tSTEP")
	for _, id := range p.Store().IDs() {
		spec, err := p.Store().Spec(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\n", spec.ID, spec.Min, spec.Max, spec.Default, spec.Step)
	}
	return w.Flush()
}
