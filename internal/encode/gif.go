package encode

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/cuteclips/internal/render"
)

// GIFDelays spreads n frames at fps over whole centiseconds so the
// animation lasts round(n*100/fps) centiseconds. GIF cannot express less
// than one centisecond, so rates above 100 fps play slower.
func GIFDelays(n, fps int) []int {
	delays := make([]int, n)
	if fps <= 0 {
		for i := range delays {
			delays[i] = 1
		}
		return delays
	}
	prev := 0
	for i := range delays {
		next := ((i+1)*200 + fps) / (2 * fps)
		delays[i] = max(1, next-prev)
		prev = next
	}
	return delays
}

// WriteGIF encodes frames as an infinitely looping animated GIF, dithered
// onto the Plan9 palette.
func WriteGIF(w io.Writer, frames []*render.Frame, fps int) error {
	if len(frames) == 0 {
		return fmt.Errorf("gif: no frames")
	}

	paletted := make([]*image.Paletted, len(frames))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range frames {
		g.Go(func() error {
			p := image.NewPaletted(f.Bounds(), palette.Plan9)
			draw.FloydSteinberg.Draw(p, p.Bounds(), f.RGBA(), image.Point{})
			paletted[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("gif: %w", err)
	}

	return gif.EncodeAll(w, &gif.GIF{
		Image:     paletted,
		Delay:     GIFDelays(len(paletted), fps),
		LoopCount: 0,
	})
}

// WriteGIFFile writes the GIF atomically: a partial file never appears at path.
func WriteGIFFile(path string, frames []*render.Frame, fps int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gif-*")
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteGIF(tmp, frames, fps); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close gif: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename gif: %w", err)
	}
	return nil
}
