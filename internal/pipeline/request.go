package pipeline

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/cuteclips/internal/config"
	"github.com/satindergrewal/cuteclips/internal/render"
)

// ErrSynthesisDegraded marks a soundtrack built with substitutes, such as
// the default style standing in for an unknown one.
var ErrSynthesisDegraded = errors.New("synthesis degraded")

// Request is one video to produce.
type Request struct {
	Prompt        string
	Title         string // defaults to Prompt
	Script        string // narration text, optional
	Duration      float64
	FPS           int
	Width         int
	Height        int
	Style         string
	Seed          uint64 // 0 derives a seed from Prompt
	NarrationPath string // recorded voice-over, optional
}

// NewRequest fills a request for prompt with the configured defaults.
func NewRequest(cfg config.Config, prompt string) Request {
	var seed uint64
	if cfg.Seed > 0 {
		seed = uint64(cfg.Seed)
	}
	return Request{
		Prompt:   prompt,
		Duration: cfg.Duration,
		FPS:      cfg.FPS,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Style:    cfg.MusicStyle,
		Seed:     seed,
	}
}

func (r Request) validate() error {
	switch {
	case r.Width <= 0:
		return &render.RenderError{Param: "width", Value: r.Width}
	case r.Height <= 0:
		return &render.RenderError{Param: "height", Value: r.Height}
	case r.FPS <= 0:
		return &render.RenderError{Param: "fps", Value: r.FPS}
	case r.Duration < 0 || math.IsNaN(r.Duration) || math.IsInf(r.Duration, 0):
		return &render.RenderError{Param: "duration", Value: r.Duration}
	}
	return nil
}

func (r Request) seed() uint64 {
	if r.Seed != 0 {
		return r.Seed
	}
	h := fnv.New64a()
	h.Write([]byte(r.Prompt))
	return h.Sum64()
}

func (r Request) title() string {
	if r.Title != "" {
		return r.Title
	}
	if r.Prompt != "" {
		return r.Prompt
	}
	return "cute clip"
}

// Metadata is the record a caller persists next to the finished video.
type Metadata struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Prompt       string    `json:"prompt"`
	Duration     float64   `json:"duration"`
	CreatedAt    time.Time `json:"created_at"`
	Frames       int       `json:"frames"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FPS          int       `json:"fps"`
	Style        string    `json:"style"`
	Seed         uint64    `json:"seed"`
	FrameSource  string    `json:"frame_source"` // "model" or "procedural"
	Path         string    `json:"path"`
	Degradations []string  `json:"degradations,omitempty"`
}

// Result is what Run hands back. Path always names a playable file.
type Result struct {
	Path         string
	Metadata     Metadata
	Degradations []error
}

func (r *Result) degrade(stage string, err error) {
	r.Degradations = append(r.Degradations, fmt.Errorf("%s: %w", stage, err))
}

// Slug turns a title into a file-name-safe stem.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(title) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('_')
			dash = true
		}
		if b.Len() >= 40 {
			break
		}
	}
	s := strings.TrimRight(b.String(), "_")
	if s == "" {
		return "clip"
	}
	return s
}
