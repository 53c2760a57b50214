package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"CUTE_OUTPUT_DIR", "CUTE_TEMP_DIR", "CUTE_WIDTH", "CUTE_HEIGHT", "CUTE_FPS",
	"CUTE_DURATION", "CUTE_WORKERS", "CUTE_SEED", "CUTE_MUSIC_STYLE",
	"CUTE_SAMPLE_RATE", "CUTE_NARRATION_CUE", "CUTE_FFMPEG", "CUTE_FFPROBE",
	"CUTE_ENCODE_TIMEOUT", "CUTE_CRF", "DIFFUSION_API_URL", "DIFFUSION_API_KEY",
	"DIFFUSION_OUTPUT_DIR", "DIFFUSION_INFERENCE_STEPS", "DIFFUSION_GUIDANCE_SCALE",
	"OLLAMA_URL", "OLLAMA_MODEL", "CUTE_PORT", "CUTE_TRACK_DURATION",
	"CUTE_CROSSFADE_DURATION", "CUTE_BUFFER_AHEAD", "CUTE_DWELL_MIN",
	"CUTE_DWELL_MAX", "CUTE_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 1080, cfg.Width)
	assert.Equal(t, 1920, cfg.Height)
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, 15.0, cfg.Duration)
	assert.Equal(t, runtime.NumCPU(), cfg.Workers)
	assert.Equal(t, int64(0), cfg.Seed)
	assert.Equal(t, "upbeat_cute", cfg.MusicStyle)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.False(t, cfg.NarrationCue)
	assert.Equal(t, "ffmpeg", cfg.FFmpegPath)
	assert.Equal(t, "ffprobe", cfg.FFprobePath)
	assert.Equal(t, 5*time.Minute, cfg.EncodeTimeout)
	assert.Equal(t, 23, cfg.CRF)
	assert.Empty(t, cfg.DiffusionAPIURL)
	assert.Empty(t, cfg.OllamaURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 4*time.Second, cfg.CrossfadeDuration)
	assert.Equal(t, 2, cfg.BufferAhead)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUTE_OUTPUT_DIR", "/tmp/clips")
	t.Setenv("CUTE_WIDTH", "320")
	t.Setenv("CUTE_HEIGHT", "240")
	t.Setenv("CUTE_FPS", "10")
	t.Setenv("CUTE_DURATION", "5.5")
	t.Setenv("CUTE_SEED", "42")
	t.Setenv("CUTE_MUSIC_STYLE", "cozy_warm")
	t.Setenv("CUTE_NARRATION_CUE", "true")
	t.Setenv("CUTE_ENCODE_TIMEOUT", "30")
	t.Setenv("DIFFUSION_API_URL", "http://localhost:9000")
	t.Setenv("DIFFUSION_GUIDANCE_SCALE", "7.5")
	t.Setenv("CUTE_CROSSFADE_DURATION", "2")

	cfg := Load()

	assert.Equal(t, "/tmp/clips", cfg.OutputDir)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 240, cfg.Height)
	assert.Equal(t, 10, cfg.FPS)
	assert.Equal(t, 5.5, cfg.Duration)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "cozy_warm", cfg.MusicStyle)
	assert.True(t, cfg.NarrationCue)
	assert.Equal(t, 30*time.Second, cfg.EncodeTimeout)
	assert.Equal(t, "http://localhost:9000", cfg.DiffusionAPIURL)
	assert.Equal(t, 7.5, cfg.GuidanceScale)
	assert.Equal(t, 2*time.Second, cfg.CrossfadeDuration)
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CUTE_PORT", "not-a-number")
	t.Setenv("CUTE_NARRATION_CUE", "maybe")
	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.NarrationCue)
}

// --- YAML overlay ---

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cuteclips.yaml")
	data := []byte("width: 640\nheight: 360\nmusic_style: gentle_lullaby\nencode_timeout: 45s\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadFile(path, Load())
	require.NoError(t, err)

	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
	assert.Equal(t, "gentle_lullaby", cfg.MusicStyle)
	assert.Equal(t, 45*time.Second, cfg.EncodeTimeout)
	// untouched keys keep env defaults
	assert.Equal(t, 30, cfg.FPS)
	assert.Equal(t, "output", cfg.OutputDir)
}

func TestLoadFileMissing(t *testing.T) {
	base := Config{Width: 1}
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), base)
	assert.Error(t, err)
	assert.Equal(t, base, cfg)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("width: [1, 2"), 0o644))
	_, err := LoadFile(path, Config{})
	assert.Error(t, err)
}

// --- Validate ---

func TestValidate(t *testing.T) {
	clearEnv(t)
	good := Load()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Width = 0 }},
		{"negative height", func(c *Config) { c.Height = -1 }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"dwell inverted", func(c *Config) { c.DwellMin, c.DwellMax = 10, 5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := good
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
