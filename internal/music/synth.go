package music

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/satindergrewal/cuteclips/internal/audio"
)

const (
	MelodyGainDB    = -12.0
	HarmonyOffsetDB = -6.0 // per chord tone, relative to melody
	KickGainDB      = -10.0
	SnareGainDB     = -16.0

	HitProbability = 0.7

	minMelodyNote = 0.5 // seconds
	maxMelodyNote = 2.0
	minChordHold  = 1.0
	maxChordHold  = 2.0

	kickLength  = 120 * time.Millisecond
	snareLength = 100 * time.Millisecond
	kickHz      = 60.0
	snareHPHz   = 1500.0

	rampTime = 5 * time.Millisecond // attack and release of every tone
)

// ToneEvent is one sine tone in a melody line.
type ToneEvent struct {
	Frequency float64
	Duration  time.Duration
	GainDB    float64
}

// Synthesizer renders style presets into tracks. Output depends only on
// the seed, sample rate, profile and duration.
type Synthesizer struct {
	sampleRate int
	rng        *rand.Rand
}

func NewSynthesizer(sampleRate int, seed uint64) *Synthesizer {
	return &Synthesizer{
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb)),
	}
}

func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// Synthesize renders melody, harmony and rhythm for duration seconds,
// overlays them, applies the profile's mood and returns exactly
// round(duration*sampleRate) samples. The mix never clips.
func (s *Synthesizer) Synthesize(p Profile, duration float64) *Track {
	if duration <= 0 {
		return &Track{SampleRate: s.sampleRate}
	}
	n := int(math.Round(duration * float64(s.sampleRate)))

	melody := s.RenderEvents(s.Melody(p, duration))
	harmony := s.Harmony(p, duration)
	rhythm := s.Rhythm(p, duration)

	mix := fit(sumLayers(melody, harmony, rhythm), n)
	p.Mood.Shaping().Apply(mix, s.sampleRate)
	limitPeak(mix)
	return FromFloat(mix, s.sampleRate)
}

// Melody picks random scale degrees with random lengths until duration is
// covered. The last note is clamped to the remaining time.
func (s *Synthesizer) Melody(p Profile, duration float64) []ToneEvent {
	var events []ToneEvent
	for remaining := duration; remaining > 0; {
		d := minMelodyNote + s.rng.Float64()*(maxMelodyNote-minMelodyNote)
		d = math.Min(d, remaining)
		events = append(events, ToneEvent{
			Frequency: p.Scale[s.rng.IntN(len(p.Scale))],
			Duration:  seconds(d),
			GainDB:    MelodyGainDB,
		})
		remaining -= d
	}
	return events
}

// RenderEvents concatenates events into one sample buffer.
func (s *Synthesizer) RenderEvents(events []ToneEvent) []float64 {
	var out []float64
	for _, ev := range events {
		out = append(out, s.tone(ev.Frequency, ev.Duration.Seconds(), ev.GainDB)...)
	}
	return out
}

// Harmony holds random chords from the progression, voiced an octave
// below the melody.
func (s *Synthesizer) Harmony(p Profile, duration float64) []float64 {
	if len(p.Progression) == 0 {
		return nil
	}
	gain := MelodyGainDB + HarmonyOffsetDB
	var out []float64
	for remaining := duration; remaining > 0; {
		d := minChordHold + s.rng.Float64()*(maxChordHold-minChordHold)
		d = math.Min(d, remaining)
		chord := p.Progression[s.rng.IntN(len(p.Progression))]

		freqs := chord.Frequencies(p.Octave - 1)
		block := sumLayers(
			s.tone(freqs[0], d, gain),
			s.tone(freqs[1], d, gain),
			s.tone(freqs[2], d, gain),
		)
		out = append(out, block...)
		remaining -= d
	}
	return out
}

// Rhythm places a hit on each beat with probability HitProbability: kick
// on even beats, snare on odd.
func (s *Synthesizer) Rhythm(p Profile, duration float64) []float64 {
	if p.Tempo <= 0 {
		return nil
	}
	n := int(math.Round(duration * float64(s.sampleRate)))
	out := make([]float64, n)
	beat := 60 / float64(p.Tempo)
	beats := int(math.Ceil(duration / beat))

	for b := range beats {
		if s.rng.Float64() >= HitProbability {
			continue
		}
		var hit []float64
		if b%2 == 0 {
			hit = s.kick()
		} else {
			hit = s.snare()
		}
		start := int(float64(b) * beat * float64(s.sampleRate))
		for i, v := range hit {
			if start+i >= n {
				break
			}
			out[start+i] += v
		}
	}
	return out
}

func (s *Synthesizer) kick() []float64 {
	n := s.samples(kickLength.Seconds())
	amp := dbToGain(KickGainDB)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(s.sampleRate)
		out[i] = amp * math.Sin(2*math.Pi*kickHz*t) * math.Exp(-t*25)
	}
	return out
}

func (s *Synthesizer) snare() []float64 {
	n := s.samples(snareLength.Seconds())
	out := make([]float64, n)
	for i := range out {
		out[i] = s.rng.Float64()*2 - 1
	}
	highPass(out, snareHPHz, s.sampleRate)
	amp := dbToGain(SnareGainDB)
	for i := range out {
		t := float64(i) / float64(s.sampleRate)
		out[i] *= amp * math.Exp(-t*30)
	}
	return out
}

// tone renders a sine with smoothstep ramps at both ends.
func (s *Synthesizer) tone(freq, dur, gainDB float64) []float64 {
	n := s.samples(dur)
	out := make([]float64, n)
	amp := dbToGain(gainDB)
	ramp := min(s.samples(rampTime.Seconds()), n/2)
	for i := range out {
		env := 1.0
		switch {
		case ramp == 0:
		case i < ramp:
			env = audio.Smoothstep(float64(i) / float64(ramp))
		case i >= n-ramp:
			env = audio.Smoothstep(float64(n-1-i) / float64(ramp))
		}
		out[i] = amp * env * math.Sin(2*math.Pi*freq*float64(i)/float64(s.sampleRate))
	}
	return out
}

func (s *Synthesizer) samples(sec float64) int {
	return int(math.Round(sec * float64(s.sampleRate)))
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
