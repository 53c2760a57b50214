package render

import "math"

// Kind selects how a layer is painted.
type Kind int

const (
	KindDisc Kind = iota
	KindPaw       // pad plus four toes
)

// Layer is the static description of one animated element. Spatial values
// are fractions of the canvas so a scene scales to any resolution.
type Layer struct {
	Name string
	Kind Kind

	Phase           float64 // radians
	OrbitRadius     float64 // fraction of min(w,h)
	AngularVelocity float64 // radians per second
	OffsetX         float64 // fraction of width from centre
	OffsetY         float64 // fraction of height from centre

	Radius     float64 // fraction of min(w,h)
	Breath     float64 // relative radius amplitude
	BreathFreq float64 // radians per second

	Hue        float64 // degrees
	HueSpeed   float64 // degrees per second
	Saturation float64 // percent
	Value      float64 // percent

	Soft bool // linear alpha falloff over the outer edge
}

// Motion is a layer's resolved state at one instant, in pixels and degrees.
type Motion struct {
	X, Y   float64
	Radius float64
	Hue    float64
}

// Drive evaluates the layer at time t seconds on a width x height canvas.
func (l Layer) Drive(t float64, width, height int) Motion {
	w, h := float64(width), float64(height)
	m := math.Min(w, h)
	angle := t*l.AngularVelocity + l.Phase

	return Motion{
		X:      w/2 + l.OffsetX*w + l.OrbitRadius*m*math.Cos(angle),
		Y:      h/2 + l.OffsetY*h + l.OrbitRadius*m*math.Sin(angle),
		Radius: l.Radius * m * (1 + l.Breath*math.Sin(t*l.BreathFreq+l.Phase)),
		Hue:    l.Hue + t*l.HueSpeed,
	}
}

// pawToes are toe centres relative to the paw centre, in paw radii.
var pawToes = [4][2]float64{
	{-0.75, -0.45},
	{-0.27, -0.85},
	{0.27, -0.85},
	{0.75, -0.45},
}

func (l Layer) paint(f *Frame, m Motion) {
	r, g, b := HSVToRGB(m.Hue, l.Saturation, l.Value)
	switch l.Kind {
	case KindPaw:
		fillDisc(f, m.X, m.Y+0.15*m.Radius, 0.6*m.Radius, r, g, b, l.Soft)
		for _, toe := range pawToes {
			fillDisc(f, m.X+toe[0]*m.Radius, m.Y+toe[1]*m.Radius, 0.33*m.Radius, r, g, b, l.Soft)
		}
	default:
		fillDisc(f, m.X, m.Y, m.Radius, r, g, b, l.Soft)
	}
}

const edgeWidth = 1.5

// fillDisc paints a filled circle sampled at pixel centres. Soft discs fade
// linearly to transparent over the outermost edgeWidth pixels.
func fillDisc(f *Frame, cx, cy, radius float64, r, g, b uint8, soft bool) {
	if radius <= 0 {
		return
	}
	x0 := max(0, int(math.Floor(cx-radius)))
	x1 := min(f.Width-1, int(math.Ceil(cx+radius)))
	y0 := max(0, int(math.Floor(cy-radius)))
	y1 := min(f.Height-1, int(math.Ceil(cy+radius)))

	inner := radius - edgeWidth
	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		for x := x0; x <= x1; x++ {
			dx := float64(x) + 0.5 - cx
			d := math.Sqrt(dx*dx + dy*dy)
			switch {
			case d > radius:
			case !soft || d <= inner:
				f.setRGB(x, y, r, g, b)
			default:
				f.blendRGB(x, y, r, g, b, (radius-d)/edgeWidth)
			}
		}
	}
}
