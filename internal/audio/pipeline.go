package audio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Pipeline plays queued tracks at real-time rate, crossfading between
// consecutive tracks, and emits 20ms PCM frames.
type Pipeline struct {
	logger  zerolog.Logger
	trackCh chan *Track
	frameCh chan []int16
	skipCh  chan struct{}

	mu            sync.RWMutex
	crossfadeDur  time.Duration
	currentTrack  TrackInfo
	trackPosition time.Duration
	trackDuration time.Duration
	history       []TrackInfo
}

// HistorySize is how many previously played tracks History keeps.
const HistorySize = 10

// NewPipeline creates an audio pipeline with the given crossfade duration.
func NewPipeline(logger zerolog.Logger, crossfadeDuration time.Duration) *Pipeline {
	return &Pipeline{
		logger:       logger.With().Str("component", "playback").Logger(),
		trackCh:      make(chan *Track, 8),
		frameCh:      make(chan []int16, 100),
		skipCh:       make(chan struct{}, 1),
		crossfadeDur: crossfadeDuration,
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// Enqueue adds a track to the playback queue. Blocks while the queue is full.
func (p *Pipeline) Enqueue(ctx context.Context, t *Track) error {
	select {
	case p.trackCh <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueSize returns the number of tracks waiting in the queue.
func (p *Pipeline) QueueSize() int {
	return len(p.trackCh)
}

// Skip interrupts the current track.
func (p *Pipeline) Skip() {
	select {
	case p.skipCh <- struct{}{}:
	default:
	}
}

// SetCrossfade changes the crossfade length for subsequent transitions.
func (p *Pipeline) SetCrossfade(d time.Duration) {
	p.mu.Lock()
	p.crossfadeDur = d
	p.mu.Unlock()
}

func (p *Pipeline) CrossfadeDuration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.crossfadeDur
}

// Status returns current playback info.
func (p *Pipeline) Status() (track TrackInfo, position, duration time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentTrack, p.trackPosition, p.trackDuration
}

// History returns previously played tracks, most recent first. Their seeds
// reproduce the soundtrack with the music command.
func (p *Pipeline) History() []TrackInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]TrackInfo, len(p.history))
	for i, info := range p.history {
		out[len(out)-1-i] = info
	}
	return out
}

// Run starts the pipeline. Blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	var (
		t     *Track
		start int
	)
	for {
		if t == nil {
			select {
			case <-ctx.Done():
				return
			case t = <-p.trackCh:
			}
			start = 0
		}
		t, start = p.playTrack(ctx, ticker, t, start)
	}
}

// crossfadeFrames is the number of 20ms frames the crossfade spans, capped
// at half the track.
func (p *Pipeline) crossfadeFrames(totalFrames int) int {
	cf := int(p.CrossfadeDuration() / FrameDuration)
	return min(cf, totalFrames/2)
}

// playTrack plays t from startFrame. Once the fade point is reached, a
// queued track is blended in and returned with the number of its frames
// already played.
func (p *Pipeline) playTrack(ctx context.Context, ticker *time.Ticker, t *Track, startFrame int) (*Track, int) {
	total := t.Frames()
	cf := p.crossfadeFrames(total)
	fadeAt := total - cf

	p.setTrack(t.Info, total)
	p.logger.Info().Str("track", t.Info.Name).Str("style", t.Info.Style).Int("frames", total).Msg("now playing")

	var next *Track
	played := 0
	for i := startFrame; i < total; i++ {
		frame := t.Frame(i)
		if i == fadeAt && cf > 0 {
			select {
			case next = <-p.trackCh:
			default:
			}
		}
		if next != nil {
			if played >= next.Frames() {
				break
			}
			frame = CrossfadeFrames(frame, next.Frame(played), float64(played)/float64(cf))
			played++
		}
		if !p.sendFrame(ctx, ticker, frame) {
			return nil, 0
		}
		p.updatePosition(i)
	}

	if next != nil {
		p.logger.Info().Str("track", next.Info.Name).Int("frames", played).Msg("crossfaded")
	}
	return next, played
}

// sendFrame waits for the ticker then sends a frame. Returns false on skip or cancel.
func (p *Pipeline) sendFrame(ctx context.Context, ticker *time.Ticker, frame []int16) bool {
	select {
	case <-ctx.Done():
		return false
	case <-p.skipCh:
		p.logger.Info().Msg("track skipped")
		return false
	case <-ticker.C:
	}

	select {
	case p.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) setTrack(info TrackInfo, totalFrames int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentTrack.ID != "" {
		p.history = append(p.history, p.currentTrack)
		if len(p.history) > HistorySize {
			p.history = p.history[len(p.history)-HistorySize:]
		}
	}
	p.currentTrack = info
	p.trackPosition = 0
	p.trackDuration = time.Duration(totalFrames) * FrameDuration
}

func (p *Pipeline) updatePosition(frameIdx int) {
	p.mu.Lock()
	p.trackPosition = time.Duration(frameIdx) * FrameDuration
	p.mu.Unlock()
}
