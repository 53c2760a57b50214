package render

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// FromImage scales img onto a width x height frame with bilinear sampling.
func FromImage(img image.Image, width, height int) *Frame {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	f := NewFrame(width, height)
	for y := range height {
		src := dst.Pix[y*dst.Stride:]
		out := f.Pix[y*width*3:]
		for x := range width {
			out[x*3] = src[x*4]
			out[x*3+1] = src[x*4+1]
			out[x*3+2] = src[x*4+2]
		}
	}
	return f
}

// Retime maps a clip of any length onto total playback slots. Slot i shows
// source frame i*len(src)/total, so short clips hold frames and long clips
// drop them evenly.
func Retime(src []*Frame, total int) []*Frame {
	if len(src) == 0 || total < 1 {
		return nil
	}
	out := make([]*Frame, total)
	for i := range out {
		out[i] = src[i*len(src)/total]
	}
	return out
}
