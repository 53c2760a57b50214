package music

import (
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Track is mono 16-bit PCM.
type Track struct {
	SampleRate int
	Samples    []int16
}

// FromFloat clips x to [-1,1] and quantises it. Summed layers that exceed
// full scale are clipped here, never wrapped.
func FromFloat(x []float64, sampleRate int) *Track {
	out := make([]int16, len(x))
	for i, v := range x {
		out[i] = toInt16(v)
	}
	return &Track{SampleRate: sampleRate, Samples: out}
}

func toInt16(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return math.MinInt16
	}
	return int16(v * math.MaxInt16)
}

// Floats returns the samples scaled to [-1,1].
func (t *Track) Floats() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = float64(s) / math.MaxInt16
	}
	return out
}

func (t *Track) Duration() time.Duration {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(t.Samples)) * time.Second / time.Duration(t.SampleRate)
}

// Stereo duplicates each sample into interleaved L/R.
func (t *Track) Stereo() []int16 {
	out := make([]int16, len(t.Samples)*2)
	for i, s := range t.Samples {
		out[2*i], out[2*i+1] = s, s
	}
	return out
}

// Overlay mixes top over base with per-input gains in dB. Both tracks must
// share a sample rate; the result is as long as the longer input.
func Overlay(base *Track, baseGainDB float64, top *Track, topGainDB float64) (*Track, error) {
	if base.SampleRate != top.SampleRate {
		return nil, fmt.Errorf("overlay: sample rates differ (%d vs %d)", base.SampleRate, top.SampleRate)
	}
	a := base.Floats()
	b := top.Floats()
	ga, gb := dbToGain(baseGainDB), dbToGain(topGainDB)
	for i := range a {
		a[i] *= ga
	}
	for i := range b {
		b[i] *= gb
	}
	mix := sumLayers(a, b)
	limitPeak(mix)
	return FromFloat(mix, base.SampleRate), nil
}

// WriteWAV writes the track as a mono 16-bit PCM WAV file.
func (t *Track) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}

	enc := wav.NewEncoder(f, t.SampleRate, 16, 1, 1)
	data := make([]int, len(t.Samples))
	for i, s := range t.Samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: t.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("write wav %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalise wav %s: %w", path, err)
	}
	return f.Close()
}

// ReadWAV loads a 16-bit PCM WAV file. Multi-channel input is averaged
// down to mono.
func ReadWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("read wav %s: not a valid wav file", path)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("read wav %s: unsupported bit depth %d", path, dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav %s: %w", path, err)
	}

	channels := max(1, buf.Format.NumChannels)
	frames := len(buf.Data) / channels
	out := make([]int16, frames)
	for i := range out {
		sum := 0
		for c := range channels {
			sum += buf.Data[i*channels+c]
		}
		out[i] = int16(sum / channels)
	}
	return &Track{SampleRate: int(dec.SampleRate), Samples: out}, nil
}

// sumLayers pads every layer with silence to the longest and sums them.
func sumLayers(layers ...[]float64) []float64 {
	n := 0
	for _, l := range layers {
		n = max(n, len(l))
	}
	out := make([]float64, n)
	for _, l := range layers {
		for i, v := range l {
			out[i] += v
		}
	}
	return out
}

// fit truncates or zero-pads x to exactly n samples.
func fit(x []float64, n int) []float64 {
	if len(x) >= n {
		return x[:n]
	}
	out := make([]float64, n)
	copy(out, x)
	return out
}
