package music

import "math"

// Mood is the post-mix tonal shaping of a style.
type Mood int

const (
	Brighten Mood = iota
	Soften
	Energize
	Warm
)

func (m Mood) String() string {
	switch m {
	case Brighten:
		return "brighten"
	case Soften:
		return "soften"
	case Energize:
		return "energize"
	case Warm:
		return "warm"
	}
	return "neutral"
}

// Shaping is one filter plus a gain. A zero cutoff disables that filter.
type Shaping struct {
	HighPassHz float64
	LowPassHz  float64
	GainDB     float64
}

func (m Mood) Shaping() Shaping {
	switch m {
	case Brighten:
		return Shaping{HighPassHz: 250, GainDB: 3}
	case Soften:
		return Shaping{LowPassHz: 3000, GainDB: -3}
	case Energize:
		return Shaping{HighPassHz: 400, GainDB: 6}
	case Warm:
		return Shaping{LowPassHz: 2000, GainDB: -1}
	}
	return Shaping{}
}

// Apply shapes samples in place.
func (s Shaping) Apply(samples []float64, sampleRate int) {
	if s.HighPassHz > 0 {
		highPass(samples, s.HighPassHz, sampleRate)
	}
	if s.LowPassHz > 0 {
		lowPass(samples, s.LowPassHz, sampleRate)
	}
	if s.GainDB != 0 {
		g := dbToGain(s.GainDB)
		for i := range samples {
			samples[i] *= g
		}
	}
}

// highPass is a one-pole RC high-pass, in place.
func highPass(x []float64, cutoff float64, sampleRate int) {
	if len(x) == 0 {
		return
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	alpha := rc / (rc + dt)

	prevIn, prevOut := x[0], x[0]
	for i := 1; i < len(x); i++ {
		in := x[i]
		out := alpha * (prevOut + in - prevIn)
		x[i] = out
		prevIn, prevOut = in, out
	}
}

// lowPass is a one-pole RC low-pass, in place.
func lowPass(x []float64, cutoff float64, sampleRate int) {
	if len(x) == 0 {
		return
	}
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	alpha := dt / (rc + dt)

	for i := 1; i < len(x); i++ {
		x[i] = x[i-1] + alpha*(x[i]-x[i-1])
	}
}

func dbToGain(db float64) float64 {
	return math.Pow(10, db/20)
}

// PeakCeiling is the highest absolute sample a mix may reach before it is
// scaled down.
const PeakCeiling = 0.98

// limitPeak scales x in place so no sample exceeds PeakCeiling. Mixes
// already under the ceiling are untouched.
func limitPeak(x []float64) {
	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak <= PeakCeiling {
		return
	}
	g := PeakCeiling / peak
	for i := range x {
		x[i] *= g
	}
}
