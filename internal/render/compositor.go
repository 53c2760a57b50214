package render

import (
	"math"
	"math/rand/v2"
)

// wave drives one background channel: value = Base + Amp*sin(y*Freq + t*Speed + Phase).
type wave struct {
	Base, Amp   float64
	Freq, Speed float64
	Phase       float64
}

func (w wave) at(y, t float64) uint8 {
	return uint8(w.Base + w.Amp*math.Sin(y*w.Freq+t*w.Speed+w.Phase))
}

// Scene is the pure configuration of a procedural animation: background
// waves plus layers in paint order.
type Scene struct {
	Seed       uint64
	Background [3]wave
	Layers     []Layer
}

// NewScene derives a scene from seed. Equal seeds give equal scenes.
func NewScene(seed uint64) *Scene {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := &Scene{Seed: seed}

	// pastel gradient, channel values stay within [105, 235]
	for c := range s.Background {
		s.Background[c] = wave{
			Base:  170,
			Amp:   55 + rng.Float64()*10,
			Freq:  2*math.Pi*(0.5+float64(c)*0.35) + rng.Float64(),
			Speed: 0.6 + float64(c)*0.25 + rng.Float64()*0.3,
			Phase: rng.Float64() * 2 * math.Pi,
		}
	}

	baseHue := rng.Float64() * 360

	s.Layers = append(s.Layers, Layer{
		Name:            "body",
		Kind:            KindDisc,
		Phase:           rng.Float64() * 2 * math.Pi,
		OrbitRadius:     0.03,
		AngularVelocity: 1.5,
		Radius:          0.18,
		Breath:          0.08,
		BreathFreq:      math.Pi,
		Hue:             baseHue,
		HueSpeed:        20,
		Saturation:      55,
		Value:           95,
		Soft:            true,
	})

	satellites := 3 + rng.IntN(3)
	spin := 0.8 + rng.Float64()*0.6
	if rng.IntN(2) == 0 {
		spin = -spin
	}
	for k := range satellites {
		s.Layers = append(s.Layers, Layer{
			Name:            "satellite",
			Kind:            KindDisc,
			Phase:           2 * math.Pi * float64(k) / float64(satellites),
			OrbitRadius:     0.3,
			AngularVelocity: spin,
			Radius:          0.05,
			Breath:          0.15,
			BreathFreq:      2 * math.Pi * 0.7,
			Hue:             baseHue + 120*float64(k)/float64(satellites),
			HueSpeed:        45,
			Saturation:      70,
			Value:           100,
			Soft:            true,
		})
	}

	particles := 8 + rng.IntN(5)
	for range particles {
		s.Layers = append(s.Layers, Layer{
			Name:            "particle",
			Kind:            KindDisc,
			Phase:           rng.Float64() * 2 * math.Pi,
			OrbitRadius:     0.02 + rng.Float64()*0.04,
			AngularVelocity: 0.5 + rng.Float64()*1.5,
			OffsetX:         rng.Float64()*0.9 - 0.45,
			OffsetY:         rng.Float64()*0.9 - 0.45,
			Radius:          0.008 + rng.Float64()*0.01,
			Breath:          0.4,
			BreathFreq:      2 * math.Pi * (0.5 + rng.Float64()),
			Hue:             rng.Float64() * 360,
			HueSpeed:        60,
			Saturation:      25,
			Value:           100,
		})
	}

	for k := range 2 {
		side := float64(2*k - 1)
		s.Layers = append(s.Layers, Layer{
			Name:            "paw",
			Kind:            KindPaw,
			Phase:           float64(k) * math.Pi,
			OrbitRadius:     0.015,
			AngularVelocity: 2.2,
			OffsetX:         side * 0.3,
			OffsetY:         0.33,
			Radius:          0.06,
			Breath:          0.05,
			BreathFreq:      2 * math.Pi,
			Hue:             baseHue + 180,
			HueSpeed:        10,
			Saturation:      40,
			Value:           80,
			Soft:            true,
		})
	}

	return s
}

// Render composites frame frameIndex of the scene at t = frameIndex/fps.
func (s *Scene) Render(width, height, frameIndex, fps int) (*Frame, error) {
	if err := validateRaster(width, height, fps); err != nil {
		return nil, err
	}
	t := float64(frameIndex) / float64(fps)
	f := NewFrame(width, height)

	s.paintBackground(f, t)
	for _, l := range s.Layers {
		l.paint(f, l.Drive(t, width, height))
	}
	return f, nil
}

func (s *Scene) paintBackground(f *Frame, t float64) {
	row := make([]uint8, f.Width*3)
	for y := range f.Height {
		ny := float64(y) / float64(f.Height)
		r := s.Background[0].at(ny, t)
		g := s.Background[1].at(ny, t)
		b := s.Background[2].at(ny, t)
		for x := 0; x < len(row); x += 3 {
			row[x], row[x+1], row[x+2] = r, g, b
		}
		copy(f.Pix[y*f.Width*3:], row)
	}
}

// RenderFrame renders a single frame of the scene seeded by seed. The result
// is byte-identical for identical arguments.
func RenderFrame(width, height, frameIndex, fps int, seed uint64) (*Frame, error) {
	return NewScene(seed).Render(width, height, frameIndex, fps)
}
