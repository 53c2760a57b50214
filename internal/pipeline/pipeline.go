// Package pipeline turns a prompt into a finished short video: frames
// (model or procedural), encoding, a synthesized soundtrack and muxing.
// Only invalid requests and cancellation fail a run; every other stage
// degrades to its next-best output.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/satindergrewal/cuteclips/internal/audio"
	"github.com/satindergrewal/cuteclips/internal/config"
	"github.com/satindergrewal/cuteclips/internal/music"
	"github.com/satindergrewal/cuteclips/internal/render"
)

// FrameSource supplies ready-made frames, typically from a generative model.
type FrameSource interface {
	Frames(ctx context.Context, prompt string, duration float64, fps, width, height int) ([]*render.Frame, error)
}

// VideoEncoder writes frames to a playable file and returns its path.
type VideoEncoder interface {
	Encode(ctx context.Context, frames []*render.Frame, fps int, outputPath string) (string, error)
}

// SoundtrackMuxer attaches a track to a video. On failure it returns the
// input video path with the error.
type SoundtrackMuxer interface {
	Mux(ctx context.Context, videoPath string, track *music.Track) (string, error)
}

// Deps are the collaborators a Pipeline drives. Source may be nil.
type Deps struct {
	Source  FrameSource
	Encoder VideoEncoder
	Muxer   SoundtrackMuxer
}

type Pipeline struct {
	logger zerolog.Logger
	cfg    config.Config
	deps   Deps
	now    func() time.Time
}

func New(logger zerolog.Logger, cfg config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		logger: logger.With().Str("component", "pipeline").Logger(),
		cfg:    cfg,
		deps:   deps,
		now:    time.Now,
	}
}

// Run produces one video for req.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	seed := req.seed()
	log := p.logger.With().Str("run", id.String()[:8]).Logger()
	res := &Result{
		Metadata: Metadata{
			ID:        id,
			Title:     req.title(),
			Prompt:    req.Prompt,
			Duration:  req.Duration,
			CreatedAt: p.now().UTC(),
			Width:     req.Width,
			Height:    req.Height,
			FPS:       req.FPS,
			Seed:      seed,
		},
	}
	start := time.Now()
	log.Info().Str("prompt", req.Prompt).Float64("duration", req.Duration).Msg("run started")

	// Frames
	frames, source, err := p.frames(ctx, req, seed, res)
	if err != nil {
		return nil, err
	}
	res.Metadata.Frames = len(frames)
	res.Metadata.FrameSource = source
	log.Info().Int("frames", len(frames)).Str("source", source).Msg("frames ready")

	// Encode
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	stem := filepath.Join(p.cfg.OutputDir, Slug(res.Metadata.Title)+"_"+id.String()[:8])
	videoPath, err := p.deps.Encoder.Encode(ctx, frames, req.FPS, stem+".mp4")
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if filepath.Ext(videoPath) == ".gif" {
		res.degrade("encode", errors.New("encoded as gif"))
	}
	res.Path = videoPath

	// Soundtrack
	track := p.soundtrack(ctx, req, seed, res)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Mux
	final, err := p.deps.Muxer.Mux(ctx, videoPath, track)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		res.degrade("mux", err)
	}
	if final != "" {
		res.Path = final
	}

	res.Metadata.Path = res.Path
	if err := CheckOutput(res.Path, res.Metadata); err != nil {
		return nil, err
	}
	for _, d := range res.Degradations {
		res.Metadata.Degradations = append(res.Metadata.Degradations, d.Error())
	}
	log.Info().
		Str("path", res.Path).
		Int("degradations", len(res.Degradations)).
		Dur("took", time.Since(start)).
		Msg("run finished")
	return res, nil
}

// frames prefers the model source and falls back to procedural rendering.
func (p *Pipeline) frames(ctx context.Context, req Request, seed uint64, res *Result) ([]*render.Frame, string, error) {
	want := render.FrameCount(req.Duration, req.FPS)
	if p.deps.Source != nil {
		frames, err := p.deps.Source.Frames(ctx, req.Prompt, req.Duration, req.FPS, req.Width, req.Height)
		switch {
		case ctx.Err() != nil:
			return nil, "", ctx.Err()
		case err != nil:
			p.logger.Warn().Err(err).Msg("model frames unavailable, rendering procedurally")
			res.degrade("frames", err)
		case len(frames) == 0:
			res.degrade("frames", errors.New("model returned no frames"))
		default:
			for i, f := range frames {
				if f.Width != req.Width || f.Height != req.Height {
					frames[i] = render.FromImage(f, req.Width, req.Height)
				}
			}
			return render.Retime(frames, want), "model", nil
		}
	}

	seq, err := render.BuildSequence(ctx, render.Options{
		Width:    req.Width,
		Height:   req.Height,
		Duration: req.Duration,
		FPS:      req.FPS,
		Seed:     seed,
		Workers:  p.cfg.Workers,
	})
	if err != nil {
		return nil, "", err
	}
	return seq.Frames, "procedural", nil
}

// soundtrack synthesizes music for the clip and lays narration over it.
// It never fails; problems are recorded on res.
func (p *Pipeline) soundtrack(ctx context.Context, req Request, seed uint64, res *Result) *music.Track {
	style := music.DefaultStyle
	if req.Style != "" {
		var err error
		if style, err = music.ParseStyle(req.Style); err != nil {
			res.degrade("music", fmt.Errorf("%w: %v, using %s", ErrSynthesisDegraded, err, style))
		}
	}
	res.Metadata.Style = style.String()

	sampleRate := p.cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	length := float64(res.Metadata.Frames) / float64(req.FPS)
	track := music.NewSynthesizer(sampleRate, seed).Synthesize(style.Profile(), length)

	voice, err := p.narration(ctx, req, sampleRate)
	if err != nil {
		res.degrade("narration", err)
		return track
	}
	if voice == nil {
		return track
	}
	mixed, err := music.WithNarration(track, voice)
	if err != nil {
		res.degrade("narration", err)
		return track
	}
	return mixed
}

func (p *Pipeline) narration(ctx context.Context, req Request, sampleRate int) (*music.Track, error) {
	if req.NarrationPath != "" {
		samples, err := audio.DecodeFile(ctx, p.cfg.FFmpegPath, req.NarrationPath, sampleRate, 1)
		if err != nil {
			return nil, err
		}
		return &music.Track{SampleRate: sampleRate, Samples: samples}, nil
	}
	if p.cfg.NarrationCue && req.Script != "" {
		return music.VoiceCue(req.Script, sampleRate), nil
	}
	return nil, nil
}

// WriteMetadata stores m as JSON next to the video: clip.mp4 gets clip.json.
func WriteMetadata(m Metadata) (string, error) {
	if m.Path == "" {
		return "", errors.New("metadata has no video path")
	}
	path := m.Path[:len(m.Path)-len(filepath.Ext(m.Path))] + ".json"

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("write metadata: %w", err)
	}
	return path, nil
}
