package main

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// stereo is a de-interleaved two-channel signal.
type stereo struct {
	left, right []float64
	sampleRate  int
	channels    int // channel count of the source file
	bitDepth    int
}

// extend returns a copy of s with frames of silence appended.
func (s *stereo) extend(frames int) *stereo {
	n := len(s.left) + max(frames, 0)
	out := &stereo{
		left:       make([]float64, n),
		right:      make([]float64, n),
		sampleRate: s.sampleRate,
		channels:   s.channels,
		bitDepth:   s.bitDepth,
	}
	copy(out.left, s.left)
	copy(out.right, s.right)
	return out
}

func readWav(path string) (*stereo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return fromIntBuffer(buf, int(dec.BitDepth))
}

// fromIntBuffer scales integer PCM to [-1, 1). Mono is copied to both
// channels.
func fromIntBuffer(buf *audio.IntBuffer, bitDepth int) (*stereo, error) {
	if buf.Format == nil {
		return nil, fmt.Errorf("missing format")
	}
	channels := buf.Format.NumChannels
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}

	frames := len(buf.Data) / channels
	s := &stereo{
		left:       make([]float64, frames),
		right:      make([]float64, frames),
		sampleRate: buf.Format.SampleRate,
		channels:   channels,
		bitDepth:   bitDepth,
	}

	scale := 1 / math.Pow(2, float64(bitDepth-1))
	for i := range frames {
		s.left[i] = float64(buf.Data[i*channels]) * scale
		s.right[i] = float64(buf.Data[i*channels+channels-1]) * scale
	}

	return s, nil
}

// toIntBuffer interleaves s as stereo integer PCM, clipping to full scale.
func toIntBuffer(s *stereo, bitDepth int) *audio.IntBuffer {
	full := math.Pow(2, float64(bitDepth-1))
	peak := full - 1

	data := make([]int, 2*len(s.left))
	for i := range s.left {
		data[2*i] = int(math.Round(max(-full, min(peak, s.left[i]*full))))
		data[2*i+1] = int(math.Round(max(-full, min(peak, s.right[i]*full))))
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: s.sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

func writeWav(path string, s *stereo, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported output bit depth %d", bitDepth)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, s.sampleRate, bitDepth, 2, 1)
	if err := enc.Write(toIntBuffer(s, bitDepth)); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
