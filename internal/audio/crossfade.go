package audio

// Smoothstep returns 3t^2 - 2t^3 for t in [0,1], clamped outside.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// CrossfadeFrames blends an outgoing frame with an incoming frame at the given
// progress (0.0 = all outgoing, 1.0 = all incoming) along a smoothstep curve.
// Both frames must have the same length.
func CrossfadeFrames(outgoing, incoming []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	result := make([]int16, len(outgoing))

	for i := range outgoing {
		out := float64(outgoing[i]) * (1 - gain)
		in := float64(incoming[i]) * gain
		result[i] = clip16(out + in)
	}

	return result
}

func clip16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
