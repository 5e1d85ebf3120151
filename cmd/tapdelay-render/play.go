package main

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

// play blocks until s has been played on the default output device.
func play(s *stereo, logger *slog.Logger) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return err
	}
	<-ready

	player := ctx.NewPlayer(bytes.NewReader(interleaveFloat32(s)))
	defer player.Close()

	logger.Info("playing", "seconds", float64(len(s.left))/float64(s.sampleRate))
	player.Play()
	for player.IsPlaying() {
		time.Sleep(50 * time.Millisecond)
	}

	return player.Err()
}

// interleaveFloat32 encodes s as little-endian float32 frames.
func interleaveFloat32(s *stereo) []byte {
	out := make([]byte, 0, 8*len(s.left))
	for i := range s.left {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.left[i])))
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(float32(s.right[i])))
	}
	return out
}
