package mux

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/cuteclips/internal/encode"
	"github.com/satindergrewal/cuteclips/internal/music"
	"github.com/satindergrewal/cuteclips/internal/render"
)

func ramp(sampleRate int, seconds float64) *music.Track {
	n := int(seconds * float64(sampleRate))
	t := &music.Track{SampleRate: sampleRate, Samples: make([]int16, n)}
	for i := range t.Samples {
		t.Samples[i] = int16(i % 1000)
	}
	return t
}

func writeGIF(t *testing.T, frames, fps int) string {
	t.Helper()
	seq, err := render.BuildSequence(context.Background(), render.Options{
		Width: 16, Height: 16, Duration: float64(frames) / float64(fps), FPS: fps,
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "clip.gif")
	require.NoError(t, encode.WriteGIFFile(path, seq.Frames, fps))
	return path
}

// --- Reconcile ---

func TestReconcileLoopsShortAudio(t *testing.T) {
	track := ramp(1000, 3)
	out := Reconcile(track, 10*time.Second)

	require.Len(t, out.Samples, 10000)
	assert.Equal(t, 10*time.Second, out.Duration())
	// second pass starts over from the beginning
	assert.Equal(t, track.Samples[:500], out.Samples[3000:3500])
	assert.Equal(t, track.Samples[:1000], out.Samples[9000:])
}

func TestReconcileTruncatesLongAudio(t *testing.T) {
	track := ramp(1000, 15)
	out := Reconcile(track, 10*time.Second)

	require.Len(t, out.Samples, 10000)
	assert.Equal(t, 10*time.Second, out.Duration())
	assert.Equal(t, track.Samples[:10000], out.Samples)
}

func TestReconcileExact(t *testing.T) {
	track := ramp(1000, 2)
	assert.Equal(t, track.Samples, Reconcile(track, 2*time.Second).Samples)
}

func TestReconcileEmptyBecomesSilence(t *testing.T) {
	out := Reconcile(&music.Track{SampleRate: 100}, time.Second)
	require.Len(t, out.Samples, 100)
	for _, s := range out.Samples {
		assert.Zero(t, s)
	}
}

// --- Duration probing ---

func TestGIFDuration(t *testing.T) {
	path := writeGIF(t, 20, 10)
	d, err := GIFDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, d)
}

func TestGIFDurationMissing(t *testing.T) {
	_, err := GIFDuration(filepath.Join(t.TempDir(), "nope.gif"))
	assert.Error(t, err)
}

// --- Mux degradation ---

func TestMuxWithoutFFmpegKeepsVideo(t *testing.T) {
	m := New(zerolog.Nop(), Options{FFmpegPath: "no-such-ffmpeg-xyz", FFprobePath: "no-such-ffprobe-xyz"})
	video := writeGIF(t, 5, 10)

	path, err := m.Mux(context.Background(), video, ramp(8000, 1))
	assert.True(t, errors.Is(err, ErrMuxFailed))
	assert.Equal(t, video, path)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestMuxFailingFFmpegKeepsVideo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub needs a POSIX shell")
	}
	stub := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nexit 1\n"), 0o755))

	m := New(zerolog.Nop(), Options{FFmpegPath: stub})
	video := writeGIF(t, 5, 10)

	path, err := m.Mux(context.Background(), video, ramp(8000, 1))
	assert.ErrorIs(t, err, ErrMuxFailed)
	assert.Equal(t, video, path)
	_, statErr := os.Stat(filepath.Join(filepath.Dir(video), "final_clip.mp4"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMuxNilTrack(t *testing.T) {
	m := New(zerolog.Nop(), Options{})
	video := writeGIF(t, 2, 10)
	path, err := m.Mux(context.Background(), video, nil)
	assert.ErrorIs(t, err, ErrMuxFailed)
	assert.Equal(t, video, path)
}

func TestMuxWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	m := New(zerolog.Nop(), Options{})
	video := writeGIF(t, 20, 10)

	path, err := m.Mux(context.Background(), video, ramp(44100, 0.5))
	require.NoError(t, err)
	assert.Equal(t, "final_clip.mp4", filepath.Base(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestGIFDurationAtThirtyFPS(t *testing.T) {
	path := writeGIF(t, 150, 30)
	d, err := GIFDuration(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)
}
