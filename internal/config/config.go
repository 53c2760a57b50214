package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration. Built once in main and passed
// explicitly to each component.
type Config struct {
	// Output
	OutputDir string `yaml:"output_dir"`
	TempDir   string `yaml:"temp_dir"` // empty = os.TempDir()

	// Video defaults
	Width    int     `yaml:"width"`
	Height   int     `yaml:"height"`
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"` // seconds
	Workers  int     `yaml:"workers"`  // parallel frame renders
	Seed     int64   `yaml:"seed"`     // 0 = derived from the prompt

	// Music
	MusicStyle   string `yaml:"music_style"`
	SampleRate   int    `yaml:"sample_rate"`
	NarrationCue bool   `yaml:"narration_cue"` // tone placeholder when a script is given

	// External encoder
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	EncodeTimeout time.Duration `yaml:"encode_timeout"`
	CRF           int           `yaml:"crf"`

	// Diffusion backend (optional; empty URL = procedural frames only)
	DiffusionAPIURL    string  `yaml:"diffusion_api_url"`
	DiffusionAPIKey    string  `yaml:"diffusion_api_key"`
	DiffusionOutputDir string  `yaml:"diffusion_output_dir"`
	InferenceSteps     int     `yaml:"inference_steps"`
	GuidanceScale      float64 `yaml:"guidance_scale"`

	// LLM (optional)
	OllamaURL   string `yaml:"ollama_url"`
	OllamaModel string `yaml:"ollama_model"`

	// Preview server
	Port              int           `yaml:"port"`
	TrackDuration     int           `yaml:"track_duration"` // seconds
	CrossfadeDuration time.Duration `yaml:"crossfade_duration"`
	BufferAhead       int           `yaml:"buffer_ahead"`
	DwellMin          int           `yaml:"dwell_min"` // seconds per style
	DwellMax          int           `yaml:"dwell_max"`

	LogLevel string `yaml:"log_level"`
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		OutputDir: envStr("CUTE_OUTPUT_DIR", "output"),
		TempDir:   envStr("CUTE_TEMP_DIR", ""),

		Width:    envInt("CUTE_WIDTH", 1080),
		Height:   envInt("CUTE_HEIGHT", 1920),
		FPS:      envInt("CUTE_FPS", 30),
		Duration: envFloat("CUTE_DURATION", 15),
		Workers:  envInt("CUTE_WORKERS", runtime.NumCPU()),
		Seed:     int64(envInt("CUTE_SEED", 0)),

		MusicStyle:   envStr("CUTE_MUSIC_STYLE", "upbeat_cute"),
		SampleRate:   envInt("CUTE_SAMPLE_RATE", 44100),
		NarrationCue: envBool("CUTE_NARRATION_CUE", false),

		FFmpegPath:    envStr("CUTE_FFMPEG", "ffmpeg"),
		FFprobePath:   envStr("CUTE_FFPROBE", "ffprobe"),
		EncodeTimeout: time.Duration(envInt("CUTE_ENCODE_TIMEOUT", 300)) * time.Second,
		CRF:           envInt("CUTE_CRF", 23),

		DiffusionAPIURL:    envStr("DIFFUSION_API_URL", ""),
		DiffusionAPIKey:    envStr("DIFFUSION_API_KEY", ""),
		DiffusionOutputDir: envStr("DIFFUSION_OUTPUT_DIR", "/diffusion-outputs"),
		InferenceSteps:     envInt("DIFFUSION_INFERENCE_STEPS", 25),
		GuidanceScale:      envFloat("DIFFUSION_GUIDANCE_SCALE", 3.0),

		OllamaURL:   envStr("OLLAMA_URL", ""),
		OllamaModel: envStr("OLLAMA_MODEL", "qwen3:8b"),

		Port:              envInt("CUTE_PORT", 8080),
		TrackDuration:     envInt("CUTE_TRACK_DURATION", 30),
		CrossfadeDuration: time.Duration(envInt("CUTE_CROSSFADE_DURATION", 4)) * time.Second,
		BufferAhead:       envInt("CUTE_BUFFER_AHEAD", 2),
		DwellMin:          envInt("CUTE_DWELL_MIN", 120),
		DwellMax:          envInt("CUTE_DWELL_MAX", 300),

		LogLevel: envStr("CUTE_LOG_LEVEL", "info"),
	}
}

// LoadFile overlays the YAML file at path onto base. Keys absent from the
// file keep their base value.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first setting that would make a render impossible.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalid, c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("%w: fps %d", ErrInvalid, c.FPS)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration %v", ErrInvalid, c.Duration)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.SampleRate)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers %d", ErrInvalid, c.Workers)
	case c.DwellMax < c.DwellMin:
		return fmt.Errorf("%w: dwell max %d < min %d", ErrInvalid, c.DwellMax, c.DwellMin)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
