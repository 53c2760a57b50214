package diffusion

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/satindergrewal/cuteclips/internal/render"
)

// ErrUnavailable means the worker did not answer its health probe.
var ErrUnavailable = errors.New("diffusion backend unavailable")

const (
	maxKeyframes   = 30
	promptSuffix   = ", cute animal video, adorable, soft lighting, high quality"
	negativePrompt = "blurry, low quality, distorted, scary, text, watermark"
)

// Source produces clip frames from the diffusion worker.
type Source struct {
	client         *Client
	inferenceSteps int
	guidanceScale  float64
	pollInterval   time.Duration
}

func NewSource(client *Client, inferenceSteps int, guidanceScale float64) *Source {
	return &Source{
		client:         client,
		inferenceSteps: inferenceSteps,
		guidanceScale:  guidanceScale,
		pollInterval:   3 * time.Second,
	}
}

// Keyframes is how many frames to request from the model for a clip:
// two per second, at most 30.
func Keyframes(duration float64) int {
	n := int(math.Ceil(duration * 2))
	return max(1, min(n, maxKeyframes))
}

// Frames generates a clip for prompt and retimes it to fill duration at fps.
func (s *Source) Frames(ctx context.Context, prompt string, duration float64, fps, width, height int) ([]*render.Frame, error) {
	if !s.client.Healthy(ctx) {
		return nil, ErrUnavailable
	}

	taskID, err := s.client.Generate(ctx, GenerateRequest{
		Prompt:         prompt + promptSuffix,
		NegativePrompt: negativePrompt,
		NumFrames:      Keyframes(duration),
		Width:          width,
		Height:         height,
		FPS:            fps,
		InferenceSteps: s.inferenceSteps,
		GuidanceScale:  s.guidanceScale,
		Seed:           -1,
		OutputFormat:   "gif",
	})
	if err != nil {
		return nil, err
	}
	s.client.logger.Info().Str("task", taskID).Msg("clip generation submitted")

	path, err := s.client.PollUntilDone(ctx, taskID, s.pollInterval)
	if err != nil {
		return nil, err
	}

	frames, err := LoadFrames(path, width, height)
	if err != nil {
		return nil, err
	}
	return render.Retime(frames, render.FrameCount(duration, fps)), nil
}

// LoadFrames decodes a model clip (animated GIF or a single PNG/JPEG) and
// scales every frame to width x height.
func LoadFrames(path string, width, height int) ([]*render.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open clip: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".gif") {
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, fmt.Errorf("decode gif %s: %w", path, err)
		}
		return composeGIF(g, width, height), nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return []*render.Frame{render.FromImage(img, width, height)}, nil
}

// composeGIF flattens partial GIF frames onto a running canvas.
func composeGIF(g *gif.GIF, width, height int) []*render.Frame {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	out := make([]*render.Frame, 0, len(g.Image))
	for _, img := range g.Image {
		draw.Draw(canvas, img.Bounds(), img, img.Bounds().Min, draw.Over)
		out = append(out, render.FromImage(canvas, width, height))
	}
	return out
}
