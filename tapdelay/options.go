package tapdelay

import (
	"log/slog"

	"github.com/cwbudde/algo-tapdelay/control"
	"github.com/cwbudde/algo-tapdelay/dsp/core"
	"github.com/cwbudde/algo-tapdelay/tempo"
)

type config struct {
	proc        core.ProcessorConfig
	store       *control.Store
	tempo       tempo.Source
	policy      CrossfadePolicy
	filterOrder int
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		proc:        core.DefaultProcessorConfig(),
		tempo:       tempo.Fixed(tempo.DefaultBPM),
		policy:      DeferChanges,
		filterOrder: 2,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a Processor.
type Option func(*config)

// WithSampleRate sets the initial sample rate. Non-positive values are ignored.
func WithSampleRate(sampleRate float64) Option {
	return func(cfg *config) {
		core.ApplyProcessorOptions(&cfg.proc, core.WithSampleRate(sampleRate))
	}
}

// WithMaxBlockSize sets the largest block handed to one channel pass.
// Longer host blocks are split. Non-positive values are ignored.
func WithMaxBlockSize(n int) Option {
	return func(cfg *config) {
		core.ApplyProcessorOptions(&cfg.proc, core.WithBlockSize(n))
	}
}

// WithStore makes the processor read its controls from store, which must
// define every id of Specs. By default the processor creates its own.
func WithStore(store *control.Store) Option {
	return func(cfg *config) {
		cfg.store = store
	}
}

// WithTempo sets the host tempo used while tempo sync is on.
func WithTempo(src tempo.Source) Option {
	return func(cfg *config) {
		if src != nil {
			cfg.tempo = src
		}
	}
}

// WithCrossfadePolicy selects how changes during a crossfade are handled.
func WithCrossfadePolicy(policy CrossfadePolicy) Option {
	return func(cfg *config) {
		cfg.policy = policy
	}
}

// WithFilterOrder selects first- or second-order tap filters.
func WithFilterOrder(order int) Option {
	return func(cfg *config) {
		if order == 1 || order == 2 {
			cfg.filterOrder = order
		}
	}
}

// WithLogger sets the logger for prepare-time diagnostics. Process never
// logs.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
