package render

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Options describes a procedural sequence to build.
type Options struct {
	Width    int
	Height   int
	Duration float64 // seconds
	FPS      int
	Seed     uint64
	Workers  int // <= 0 uses GOMAXPROCS
}

// FrameCount is max(1, round(duration*fps)).
func FrameCount(duration float64, fps int) int {
	n := int(math.Round(duration * float64(fps)))
	if n < 1 {
		return 1
	}
	return n
}

// BuildSequence renders every frame of a procedural clip. Frames render in
// parallel; each goroutine owns exactly one slot of the result.
func BuildSequence(ctx context.Context, opts Options) (*Sequence, error) {
	if err := validateRaster(opts.Width, opts.Height, opts.FPS); err != nil {
		return nil, err
	}
	if opts.Duration < 0 || math.IsNaN(opts.Duration) || math.IsInf(opts.Duration, 0) {
		return nil, &RenderError{Param: "duration", Value: opts.Duration}
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	scene := NewScene(opts.Seed)
	frames := make([]*Frame, FrameCount(opts.Duration, opts.FPS))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range frames {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := scene.Render(opts.Width, opts.Height, i, opts.FPS)
			if err != nil {
				return err
			}
			frames[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Sequence{Frames: frames, FPS: opts.FPS}, nil
}
