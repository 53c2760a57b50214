// Package audition keeps a stream of synthesized soundtrack previews
// flowing into the playback pipeline, drifting between styles over time.
package audition

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/satindergrewal/cuteclips/internal/audio"
	"github.com/satindergrewal/cuteclips/internal/music"
)

// Player is the playback side the scheduler feeds.
type Player interface {
	Enqueue(ctx context.Context, t *audio.Track) error
	QueueSize() int
	Skip()
}

// Config holds scheduler parameters.
type Config struct {
	StartingStyle music.Style
	TrackDuration int // seconds
	BufferAhead   int // tracks to pre-synthesize
	DwellMin      int // min seconds per style
	DwellMax      int // max seconds per style
	Seed          uint64
}

// Status is the current state of the scheduler.
type Status struct {
	Style          string  `json:"style"`
	Auto           bool    `json:"auto"`
	DwellRemaining float64 `json:"dwell_remaining"` // seconds
	QueueSize      int     `json:"queue_size"`
	TrackDuration  int     `json:"track_duration"`
}

// Scheduler manages style transitions and preview synthesis.
type Scheduler struct {
	logger zerolog.Logger
	player Player
	idle   time.Duration

	mu       sync.RWMutex
	cfg      Config
	style    music.Style
	auto     bool
	dwellEnd time.Time
	rng      *rand.Rand

	overrideCh chan music.Style
}

// NewScheduler creates a scheduler. An unknown starting style falls back
// to the default one.
func NewScheduler(logger zerolog.Logger, player Player, cfg Config) *Scheduler {
	if !IsValidStyle(cfg.StartingStyle) {
		cfg.StartingStyle = music.DefaultStyle
	}
	if cfg.BufferAhead < 1 {
		cfg.BufferAhead = 1
	}
	return &Scheduler{
		logger:     logger.With().Str("component", "audition").Logger(),
		player:     player,
		idle:       time.Second,
		cfg:        cfg,
		style:      cfg.StartingStyle,
		auto:       true,
		rng:        rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xa0d1)),
		overrideCh: make(chan music.Style, 1),
	}
}

// Status returns the current state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	remaining := max(time.Until(s.dwellEnd).Seconds(), 0)
	return Status{
		Style:          s.style.String(),
		Auto:           s.auto,
		DwellRemaining: remaining,
		QueueSize:      s.player.QueueSize(),
		TrackDuration:  s.cfg.TrackDuration,
	}
}

// SetStyle overrides the current style. Tracks already queued still play.
func (s *Scheduler) SetStyle(style music.Style) {
	select {
	case s.overrideCh <- style:
	default:
	}
}

// Skip skips the current track.
func (s *Scheduler) Skip() {
	s.player.Skip()
}

// SetAuto enables or disables automatic style transitions.
func (s *Scheduler) SetAuto(enabled bool) {
	s.mu.Lock()
	s.auto = enabled
	if enabled {
		s.resetDwell()
	}
	s.mu.Unlock()
}

// SetTrackDuration updates the length of future previews (seconds).
func (s *Scheduler) SetTrackDuration(seconds int) {
	s.mu.Lock()
	s.cfg.TrackDuration = seconds
	s.mu.Unlock()
	s.logger.Info().Int("seconds", seconds).Msg("track duration set")
}

// Run starts the scheduling loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.resetDwell()
	start := s.style
	s.mu.Unlock()

	s.logger.Info().Str("style", start.String()).Msg("audition started")

	for {
		if ctx.Err() != nil {
			return
		}

		select {
		case style := <-s.overrideCh:
			s.mu.Lock()
			s.style = style
			s.resetDwell()
			s.mu.Unlock()
			s.logger.Info().Str("style", style.String()).Msg("style set manually")
		default:
		}

		s.mu.RLock()
		auto := s.auto
		expired := time.Now().After(s.dwellEnd)
		s.mu.RUnlock()

		if auto && expired {
			s.transition()
		}

		if s.player.QueueSize() < s.cfg.BufferAhead {
			s.generateTrack(ctx)
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.idle):
		}
	}
}

// generateTrack synthesizes one preview in the current style and queues it.
func (s *Scheduler) generateTrack(ctx context.Context) {
	s.mu.Lock()
	style := s.style
	dur := s.cfg.TrackDuration
	seed := s.rng.Uint64()
	s.mu.Unlock()

	start := time.Now()
	track := music.NewSynthesizer(audio.SampleRate, seed).Synthesize(style.Profile(), float64(dur))

	id := uuid.NewString()
	t := &audio.Track{
		Info: audio.TrackInfo{
			ID:    id,
			Style: style.String(),
			Name:  TrackName(style, id),
			Seed:  seed,
		},
		Samples: track.Stereo(),
	}
	s.logger.Info().
		Str("name", t.Info.Name).
		Str("style", t.Info.Style).
		Dur("took", time.Since(start)).
		Msg("preview ready")

	if err := s.player.Enqueue(ctx, t); err != nil {
		s.logger.Debug().Err(err).Msg("enqueue abandoned")
	}
}

func (s *Scheduler) transition() {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := StyleGraph[s.style]
	if !ok || len(n.Adjacent) == 0 {
		s.resetDwell()
		return
	}

	next := n.Adjacent[s.rng.IntN(len(n.Adjacent))]
	s.logger.Info().Str("from", s.style.String()).Str("to", next.String()).Msg("style transition")
	s.style = next
	s.resetDwell()
}

// resetDwell sets a new random dwell timer. Must be called with mu held.
func (s *Scheduler) resetDwell() {
	spread := s.cfg.DwellMax - s.cfg.DwellMin
	if spread <= 0 {
		spread = 1
	}
	dwell := s.cfg.DwellMin + s.rng.IntN(spread)
	s.dwellEnd = time.Now().Add(time.Duration(dwell) * time.Second)
}
