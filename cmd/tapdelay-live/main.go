// Command tapdelay-live runs the stereo tap delay on the default duplex
// audio device.
//
// Controls can be given as flags and changed while running by typing
// id=value lines on stdin.
//
// Examples:
//
//	tapdelay-live -set delay-time=150 -set dry-wet=40
//	echo "num-taps=2" | tapdelay-live -rate 44100 -period 128
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-tapdelay/internal/cliutil"
	"github.com/cwbudde/algo-tapdelay/tapdelay"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

func main() {
	rate := flag.Int("rate", 48000, "device sample rate")
	period := flag.Int("period", 256, "device period in frames")
	bpm := flag.Float64("bpm", tempo.DefaultBPM, "tempo used by tempo-sync")
	policy := flag.String("policy", tapdelay.DeferChanges.String(), "crossfade policy: defer or mute")
	status := flag.Duration("status", 2*time.Second, "status log interval, 0 disables")
	verbose := flag.Bool("v", false, "verbose logging")
	var sets cliutil.Assignments
	flag.Var(&sets, "set", "set a control at start, id=value (repeatable)")
	flag.Parse()

	logger := cliutil.NewLogger(os.Stderr, *verbose)
	cliutil.LogCPU(logger)

	pol, err := tapdelay.ParseCrossfadePolicy(*policy)
	if err != nil {
		logger.Error("bad flag", "err", err)
		os.Exit(2)
	}

	p, err := tapdelay.New(
		tapdelay.WithSampleRate(float64(*rate)),
		tapdelay.WithMaxBlockSize(*period),
		tapdelay.WithCrossfadePolicy(pol),
		tapdelay.WithTempo(tempo.Fixed(*bpm)),
		tapdelay.WithLogger(logger),
	)
	if err != nil {
		logger.Error("init", "err", err)
		os.Exit(1)
	}
	if err := sets.ApplyAll(p.Store()); err != nil {
		logger.Error("init", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runDevice(ctx, p, uint32(*rate), uint32(*period), logger)
	})
	g.Go(func() error {
		readControls(ctx, os.Stdin, p, logger)
		return nil
	})
	if *status > 0 {
		g.Go(func() error {
			reportStatus(ctx, p, *status, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("stopped", "err", err)
		os.Exit(1)
	}
}

// readControls applies id=value lines from r until r ends or ctx is done.
// Lines starting with # are ignored.
func readControls(ctx context.Context, r io.Reader, p *tapdelay.Processor, logger *slog.Logger) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := applyLine(p, line); err != nil {
				logger.Warn("ignored control line", "line", line, "err", err)
				continue
			}
			logger.Debug("control set", "line", strings.TrimSpace(line))
		}
	}
}

func applyLine(p *tapdelay.Processor, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	a, err := cliutil.ParseAssignment(line)
	if err != nil {
		return err
	}
	return a.Apply(p.Store())
}

func reportStatus(ctx context.Context, p *tapdelay.Processor, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			logger.Info("status",
				"delay_ms", fmt.Sprintf("%.1f", p.DelayMillis()),
				"taps", p.Taps(),
				"left", p.State(tapdelay.Left).String(),
				"right", p.State(tapdelay.Right).String(),
			)
		}
	}
}
