package render

import "math"

// HSVToRGB converts hue (degrees), saturation and value (percent) to 8-bit
// RGB. Hue wraps modulo 360; saturation and value clamp to [0,100]; NaN
// components read as 0. Channels are truncated, not rounded.
func HSVToRGB(h, s, v float64) (r, g, b uint8) {
	h = wrapHue(h)
	s = clampPercent(s) / 100
	v = clampPercent(v) / 100

	if s == 0 {
		c := channel(v)
		return c, c, c
	}

	sector := h / 60
	i := int(sector)
	f := sector - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch i % 6 {
	case 0:
		return channel(v), channel(t), channel(p)
	case 1:
		return channel(q), channel(v), channel(p)
	case 2:
		return channel(p), channel(v), channel(t)
	case 3:
		return channel(p), channel(q), channel(v)
	case 4:
		return channel(t), channel(p), channel(v)
	default:
		return channel(v), channel(p), channel(q)
	}
}

func wrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 { // -tiny + 360 rounds up
		h = 0
	}
	return h
}

func clampPercent(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 100:
		return 100
	}
	return x
}

func channel(x float64) uint8 {
	return uint8(x * 255)
}
