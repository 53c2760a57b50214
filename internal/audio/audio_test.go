package audio

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Constants ---

func TestConstants(t *testing.T) {
	// 48kHz * 20ms = 960 samples per channel
	assert.Equal(t, FrameSize, SampleRate*int(FrameDuration/time.Millisecond)/1000)
	assert.Equal(t, FrameSize*Channels, FrameSamples)
	assert.Equal(t, FrameSamples*2, FrameBytes)
}

// --- Smoothstep ---

func TestSmoothstepBoundaries(t *testing.T) {
	tests := []struct {
		input float64
		want  float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{1.5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Smoothstep(tt.input), "Smoothstep(%v)", tt.input)
	}
}

func TestSmoothstepMonotonic(t *testing.T) {
	prev := 0.0
	for i := 1; i <= 100; i++ {
		val := Smoothstep(float64(i) / 100.0)
		assert.GreaterOrEqual(t, val, prev)
		prev = val
	}
}

func TestSmoothstepSymmetry(t *testing.T) {
	// f(0.5+d) + f(0.5-d) = 1
	for _, d := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		assert.InDelta(t, 1.0, Smoothstep(0.5+d)+Smoothstep(0.5-d), 1e-10)
	}
}

// --- CrossfadeFrames ---

func TestCrossfadeEndpoints(t *testing.T) {
	out := []int16{1000, -1000, 500, -500}
	in := []int16{2000, -2000, 1500, -1500}
	assert.Equal(t, out, CrossfadeFrames(out, in, 0))
	assert.Equal(t, in, CrossfadeFrames(out, in, 1))
}

func TestCrossfadeMidpoint(t *testing.T) {
	result := CrossfadeFrames([]int16{1000, -1000}, []int16{3000, -3000}, 0.5)
	assert.Equal(t, []int16{2000, -2000}, result)
}

func TestCrossfadeClipping(t *testing.T) {
	result := CrossfadeFrames([]int16{32767, -32768}, []int16{32767, -32768}, 0.5)
	assert.Equal(t, []int16{32767, -32768}, result)
}

// --- Byte conversion ---

func TestSamplesToBytes(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 256}
	buf := SamplesToBytes(samples)
	require.Len(t, buf, len(samples)*2)
	// 256 = 0x0100 -> bytes [0x00, 0x01]
	assert.Equal(t, []byte{0x00, 0x01}, buf[10:12])
}

func TestBytesToSamples(t *testing.T) {
	original := []int16{0, 1, -1, 32767, -32768, 12345, -6789}
	assert.Equal(t, original, BytesToSamples(SamplesToBytes(original)))
	// odd trailing byte is dropped
	assert.Equal(t, []int16{1}, BytesToSamples([]byte{1, 0, 7}))
}

// --- Pipeline ---

func testTrack(id string, frames int, value int16) *Track {
	s := make([]int16, frames*FrameSamples)
	for i := range s {
		s[i] = value
	}
	return &Track{Info: TrackInfo{ID: id, Name: id}, Samples: s}
}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 8*time.Second)
	require.NotNil(t, p)
	assert.Equal(t, 8*time.Second, p.CrossfadeDuration())
	assert.Equal(t, 0, p.QueueSize())

	track, pos, dur := p.Status()
	assert.Empty(t, track.ID)
	assert.Zero(t, pos)
	assert.Zero(t, dur)
}

func TestPipelineSetCrossfade(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 8*time.Second)
	p.SetCrossfade(2 * time.Second)
	assert.Equal(t, 2*time.Second, p.CrossfadeDuration())
	// 2s = 100 frames, capped at half of a 40-frame track
	assert.Equal(t, 20, p.crossfadeFrames(40))
	assert.Equal(t, 100, p.crossfadeFrames(1000))
}

func TestPipelineSkipNonBlocking(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 4*time.Second)
	p.Skip()
	p.Skip()
}

func TestPipelineEnqueueRespectsContext(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 0)
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < cap(p.trackCh); i++ {
		require.NoError(t, p.Enqueue(ctx, testTrack("t", 1, 0)))
	}
	cancel()
	assert.ErrorIs(t, p.Enqueue(ctx, testTrack("t", 1, 0)), context.Canceled)
}

func TestPipelinePlaysAndCrossfades(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 40*time.Millisecond) // 2 frames
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Enqueue(ctx, testTrack("a", 4, 1000)))
	require.NoError(t, p.Enqueue(ctx, testTrack("b", 4, 3000)))
	go p.Run(ctx)

	// a: 2 plain + 2 crossfaded; b: 2 remaining after the crossfade
	var firsts []int16
	timeout := time.After(5 * time.Second)
	for len(firsts) < 6 {
		select {
		case f := <-p.Frames():
			require.Len(t, f, FrameSamples)
			firsts = append(firsts, f[0])
		case <-timeout:
			t.Fatalf("got %d frames before timeout", len(firsts))
		}
	}

	assert.Equal(t, int16(1000), firsts[0])
	assert.Equal(t, int16(1000), firsts[1])
	assert.Equal(t, int16(1000), firsts[2]) // progress 0
	assert.Equal(t, int16(2000), firsts[3]) // progress 0.5
	assert.Equal(t, int16(3000), firsts[4])
	assert.Equal(t, int16(3000), firsts[5])

	track, _, _ := p.Status()
	assert.Equal(t, "b", track.ID)
}

func TestPipelineHistory(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 0)
	assert.Empty(t, p.History())

	for i := range HistorySize + 3 {
		p.setTrack(TrackInfo{ID: fmt.Sprint(i), Seed: uint64(i)}, 10)
	}
	h := p.History()
	require.Len(t, h, HistorySize)
	// the current track is not history yet
	assert.Equal(t, "11", h[0].ID)
	assert.Equal(t, "2", h[HistorySize-1].ID)

	track, _, _ := p.Status()
	assert.Equal(t, "12", track.ID)
}

func TestPipelineCrossfadeIntoShortTrack(t *testing.T) {
	p := NewPipeline(zerolog.Nop(), 80*time.Millisecond) // 4 frames
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, p.Enqueue(ctx, testTrack("long", 10, 1000)))
	require.NoError(t, p.Enqueue(ctx, testTrack("short", 2, 3000)))
	require.NoError(t, p.Enqueue(ctx, testTrack("after", 2, 500)))
	go p.Run(ctx)

	// long: 6 plain, 2 blended with all of short, then after starts clean
	var firsts []int16
	timeout := time.After(5 * time.Second)
	for len(firsts) < 10 {
		select {
		case f := <-p.Frames():
			firsts = append(firsts, f[0])
		case <-timeout:
			t.Fatalf("got %d frames before timeout", len(firsts))
		}
	}
	assert.Equal(t, int16(1000), firsts[5])
	assert.Equal(t, int16(1000), firsts[6]) // progress 0
	assert.Greater(t, firsts[7], int16(1000))
	assert.Equal(t, int16(500), firsts[8])
	assert.Equal(t, int16(500), firsts[9])
}
