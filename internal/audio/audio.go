package audio

import "time"

// Preview stream format. Rendered soundtracks use their own sample rate;
// everything that flows through Pipeline and the stream handlers is 48kHz
// interleaved stereo in 20ms frames.
const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// TrackInfo identifies a synthesized preview track.
type TrackInfo struct {
	ID    string
	Style string
	Name  string // display name (LLM-generated or deterministic)
	Seed  uint64
}

// Track is a decoded preview track ready for playback: interleaved stereo
// PCM in the stream format.
type Track struct {
	Info    TrackInfo
	Samples []int16
}

// Frames is the number of whole 20ms frames in the track.
func (t *Track) Frames() int {
	return len(t.Samples) / FrameSamples
}

// Frame returns the i-th 20ms frame.
func (t *Track) Frame(i int) []int16 {
	return t.Samples[i*FrameSamples : (i+1)*FrameSamples]
}
