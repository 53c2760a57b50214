package render

import (
	"image"
	"image/color"
	"time"
)

// Frame is a packed 8-bit RGB raster, 3 bytes per pixel, row-major.
// It satisfies image.Image and draw.Image so encoders and scalers can
// consume it directly.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewFrame allocates a black frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

func (f *Frame) ColorModel() color.Model { return color.RGBAModel }

func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

func (f *Frame) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return color.RGBA{}
	}
	i := (y*f.Width + x) * 3
	return color.RGBA{R: f.Pix[i], G: f.Pix[i+1], B: f.Pix[i+2], A: 255}
}

func (f *Frame) Set(x, y int, c color.Color) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	f.setRGB(x, y, rgba.R, rgba.G, rgba.B)
}

// RGBA copies the frame into an opaque *image.RGBA, the layout the stdlib
// encoders have fast paths for.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j] = f.Pix[i]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+2]
		img.Pix[j+3] = 255
	}
	return img
}

func (f *Frame) setRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// blendRGB mixes (r,g,b) over the existing pixel with coverage alpha in [0,1].
func (f *Frame) blendRGB(x, y int, r, g, b uint8, alpha float64) {
	i := (y*f.Width + x) * 3
	f.Pix[i] = mix8(f.Pix[i], r, alpha)
	f.Pix[i+1] = mix8(f.Pix[i+1], g, alpha)
	f.Pix[i+2] = mix8(f.Pix[i+2], b, alpha)
}

func mix8(dst, src uint8, alpha float64) uint8 {
	return uint8(float64(dst)*(1-alpha) + float64(src)*alpha)
}

// Sequence is an ordered run of equally sized frames at a fixed rate.
// Index 0 is t=0.
type Sequence struct {
	Frames []*Frame
	FPS    int
}

// Duration is the playback length implied by frame count and rate.
func (s *Sequence) Duration() time.Duration {
	if s == nil || s.FPS <= 0 {
		return 0
	}
	return time.Duration(len(s.Frames)) * time.Second / time.Duration(s.FPS)
}
