package main

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math"

	"github.com/gen2brain/malgo"

	"github.com/cwbudde/algo-tapdelay/tapdelay"
)

// host adapts the interleaved float32 device buffers to the processor.
type host struct {
	p           *tapdelay.Processor
	left, right []float64
}

func newHost(p *tapdelay.Processor, frames int) *host {
	return &host{
		p:     p,
		left:  make([]float64, frames),
		right: make([]float64, frames),
	}
}

// process runs one device callback. in and out hold stereo float32 frames.
// Callbacks larger than the preallocated buffers are handled in pieces.
func (h *host) process(out, in []byte, frames int) {
	const frameSize = 8

	for done := 0; done < frames; {
		n := min(frames-done, len(h.left))
		l, r := h.left[:n], h.right[:n]

		for i := range n {
			j := (done + i) * frameSize
			if j+frameSize <= len(in) {
				l[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(in[j:])))
				r[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(in[j+4:])))
			} else {
				l[i], r[i] = 0, 0
			}
		}

		h.p.Process(l, r)

		for i := range n {
			j := (done + i) * frameSize
			binary.LittleEndian.PutUint32(out[j:], math.Float32bits(float32(l[i])))
			binary.LittleEndian.PutUint32(out[j+4:], math.Float32bits(float32(r[i])))
		}
		done += n
	}
}

// runDevice processes the default duplex device until ctx is done.
func runDevice(ctx context.Context, p *tapdelay.Processor, rate, period uint32, logger *slog.Logger) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("miniaudio", "msg", msg)
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = 2
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = 2
	cfg.SampleRate = rate
	cfg.PeriodSizeInFrames = period

	h := newHost(p, int(period))
	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, in []byte, frames uint32) {
			h.process(out, in, int(frames))
		},
	})
	if err != nil {
		return err
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return err
	}
	logger.Info("running", "sample_rate", rate, "period", period)

	<-ctx.Done()

	return device.Stop()
}
