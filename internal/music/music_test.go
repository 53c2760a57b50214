package music

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Chord-tone derivation ---

func TestIntervals(t *testing.T) {
	tests := []struct {
		root                string
		major, minor, fifth string
	}{
		{"C", "E", "D#", "G"},
		{"G", "B", "A#", "D"},
		{"A", "C#", "C", "E"},
		{"B", "D#", "D", "F#"},
		{"F#", "A#", "A", "C#"},
		{"Bb", "D", "C#", "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.major, MajorThird(tt.root), "major third of %s", tt.root)
		assert.Equal(t, tt.minor, MinorThird(tt.root), "minor third of %s", tt.root)
		assert.Equal(t, tt.fifth, PerfectFifth(tt.root), "fifth of %s", tt.root)
	}
}

func TestTransposeUnknown(t *testing.T) {
	assert.Empty(t, MajorThird("H"))
	assert.Equal(t, "A#", Transpose("C", -2))
	assert.Equal(t, "C", Transpose("C", 24))
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		symbol string
		root   string
		minor  bool
		tones  [3]string
	}{
		{"C", "C", false, [3]string{"C", "E", "G"}},
		{"Am", "A", true, [3]string{"A", "C", "E"}},
		{"Dm", "D", true, [3]string{"D", "F", "A"}},
		{"Bb", "A#", false, [3]string{"A#", "D", "F"}},
		{"F#min", "F#", true, [3]string{"F#", "A", "C#"}},
		{"Cmaj", "C", false, [3]string{"C", "E", "G"}},
		{"Cmaj7", "C", false, [3]string{"C", "E", "G"}},
		{"C7", "C", false, [3]string{"C", "E", "G"}},
		{"G7", "G", false, [3]string{"G", "B", "D"}},
		{"CM7", "C", false, [3]string{"C", "E", "G"}},
		{"Cdim", "C", false, [3]string{"C", "E", "G"}},
		{"Em7", "E", true, [3]string{"E", "G", "B"}},
	}
	for _, tt := range tests {
		c, err := ParseChord(tt.symbol)
		require.NoError(t, err, tt.symbol)
		assert.Equal(t, tt.root, c.Root, tt.symbol)
		assert.Equal(t, tt.minor, c.Minor, tt.symbol)
		assert.Equal(t, tt.tones, c.Tones(), tt.symbol)
	}

	for _, bad := range []string{"", "H", "xm"} {
		_, err := ParseChord(bad)
		assert.Error(t, err, bad)
	}
}

func TestFrequency(t *testing.T) {
	a4, err := Frequency("A", 4)
	require.NoError(t, err)
	assert.InDelta(t, 440, a4, 1e-9)

	c5, err := Frequency("C", 5)
	require.NoError(t, err)
	assert.InDelta(t, 523.25, c5, 0.01)

	_, err = Frequency("X", 4)
	assert.Error(t, err)
}

func TestChordFrequenciesAscend(t *testing.T) {
	f := MustChord("G").Frequencies(4)
	assert.Less(t, f[0], f[1])
	assert.Less(t, f[1], f[2])
	// D above G4 lives in octave 5
	d5, _ := Frequency("D", 5)
	assert.InDelta(t, d5, f[2], 1e-9)
}

// --- Styles ---

func TestParseStyle(t *testing.T) {
	for _, s := range Styles() {
		got, err := ParseStyle(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	got, err := ParseStyle("Gentle Lullaby")
	require.NoError(t, err)
	assert.Equal(t, GentleLullaby, got)

	got, err = ParseStyle("death_metal")
	assert.True(t, errors.Is(err, ErrUnknownStyle))
	assert.Equal(t, DefaultStyle, got)
}

func TestProfilesComplete(t *testing.T) {
	for _, s := range Styles() {
		p := s.Profile()
		assert.Equal(t, s, p.Style)
		assert.Positive(t, p.Tempo, s.String())
		assert.NotEmpty(t, p.Progression, s.String())
		for i := 1; i < len(p.Scale); i++ {
			assert.Greater(t, p.Scale[i], p.Scale[i-1], "%s scale ascends", s)
		}
	}
}

func TestProfileIsolation(t *testing.T) {
	p := UpbeatCute.Profile()
	p.Progression[0] = MustChord("B")
	assert.Equal(t, "C", UpbeatCute.Profile().Progression[0].Root)
}

// --- Synthesis ---

func TestSynthesizeLength(t *testing.T) {
	s := NewSynthesizer(8000, 1)
	track := s.Synthesize(UpbeatCute.Profile(), 3)
	assert.Len(t, track.Samples, 24000)
	assert.Equal(t, 3*time.Second, track.Duration())
}

func TestSynthesizeZeroDuration(t *testing.T) {
	track := NewSynthesizer(8000, 1).Synthesize(CozyWarm.Profile(), 0)
	assert.Empty(t, track.Samples)
	assert.Equal(t, 8000, track.SampleRate)
}

func TestSynthesizeDeterministic(t *testing.T) {
	a := NewSynthesizer(8000, 99).Synthesize(PlayfulBounce.Profile(), 2)
	b := NewSynthesizer(8000, 99).Synthesize(PlayfulBounce.Profile(), 2)
	c := NewSynthesizer(8000, 100).Synthesize(PlayfulBounce.Profile(), 2)
	assert.Equal(t, a.Samples, b.Samples)
	assert.NotEqual(t, a.Samples, c.Samples)
}

func TestSynthesizeNotSilent(t *testing.T) {
	for _, style := range Styles() {
		track := NewSynthesizer(8000, 5).Synthesize(style.Profile(), 2)
		peak := 0
		for _, v := range track.Samples {
			peak = max(peak, int(math.Abs(float64(v))))
		}
		assert.Greater(t, peak, 1000, style.String())
	}
}

func TestMelodyCoversDuration(t *testing.T) {
	s := NewSynthesizer(8000, 7)
	events := s.Melody(GentleLullaby.Profile(), 10)
	var total time.Duration
	for i, ev := range events {
		total += ev.Duration
		if i < len(events)-1 {
			assert.GreaterOrEqual(t, ev.Duration, 500*time.Millisecond)
		}
		assert.LessOrEqual(t, ev.Duration, 2*time.Second)
		assert.Contains(t, GentleLullaby.Profile().Scale, ev.Frequency)
	}
	assert.InDelta(t, 10*time.Second, total, float64(time.Millisecond))
}

func TestRhythmBeatsOnGrid(t *testing.T) {
	s := NewSynthesizer(8000, 11)
	p := UpbeatCute.Profile() // 120 BPM, beat every 4000 samples
	out := s.Rhythm(p, 4)
	require.Len(t, out, 32000)
	// nothing sounds between the end of a hit and the next beat
	for b := 0; b < 8; b++ {
		quiet := out[b*4000+1200 : (b+1)*4000]
		for _, v := range quiet {
			require.Zero(t, v)
		}
	}
}

func TestToneRamps(t *testing.T) {
	s := NewSynthesizer(8000, 1)
	tone := s.tone(440, 0.5, 0)
	require.Len(t, tone, 4000)
	assert.Zero(t, tone[0])
	assert.InDelta(t, 0, tone[len(tone)-1], 1e-12)
}

// --- Mixing ---

func TestFromFloatClips(t *testing.T) {
	track := FromFloat([]float64{0, 0.5, 1.7, -3, math.NaN()}, 100)
	assert.Equal(t, []int16{0, 16383, 32767, -32768, 0}, track.Samples)
}

func TestSumLayersPads(t *testing.T) {
	out := sumLayers([]float64{1, 1}, []float64{1, 1, 1, 1}, nil)
	assert.Equal(t, []float64{2, 2, 1, 1}, out)
}

func TestOverlay(t *testing.T) {
	a := &Track{SampleRate: 10, Samples: []int16{10000, 10000}}
	b := &Track{SampleRate: 10, Samples: []int16{10000, 10000, 10000}}
	out, err := Overlay(a, 0, b, 0)
	require.NoError(t, err)
	assert.Len(t, out.Samples, 3)
	assert.InDelta(t, 20000, out.Samples[0], 1)
	assert.InDelta(t, 10000, out.Samples[2], 1)

	_, err = Overlay(a, 0, &Track{SampleRate: 11}, 0)
	assert.Error(t, err)
}

func TestLimitPeak(t *testing.T) {
	quiet := []float64{0.2, -0.5}
	limitPeak(quiet)
	assert.Equal(t, []float64{0.2, -0.5}, quiet)

	loud := []float64{0.49, -1.96}
	limitPeak(loud)
	assert.InDelta(t, 0.245, loud[0], 1e-9)
	assert.InDelta(t, -PeakCeiling, loud[1], 1e-9)
}

func TestSynthesizeNeverClips(t *testing.T) {
	for _, style := range Styles() {
		for seed := uint64(1); seed <= 3; seed++ {
			track := NewSynthesizer(22050, seed).Synthesize(style.Profile(), 20)
			for i, v := range track.Samples {
				if v == math.MaxInt16 || v == math.MinInt16 {
					t.Fatalf("%s seed %d clips at sample %d", style, seed, i)
				}
			}
		}
	}
}

func TestOverlayNeverClips(t *testing.T) {
	a := &Track{SampleRate: 10, Samples: []int16{30000, -30000}}
	out, err := Overlay(a, 0, a, 0)
	require.NoError(t, err)
	for _, v := range out.Samples {
		assert.Less(t, math.Abs(float64(v)), float64(math.MaxInt16))
	}
	assert.InDelta(t, PeakCeiling*math.MaxInt16, out.Samples[0], 2)
}

func TestMoodShaping(t *testing.T) {
	// DC passes a low-pass and is removed by a high-pass
	dc := func() []float64 {
		x := make([]float64, 4000)
		for i := range x {
			x[i] = 0.5
		}
		return x
	}

	lp := dc()
	Shaping{LowPassHz: 2000}.Apply(lp, 8000)
	assert.InDelta(t, 0.5, lp[len(lp)-1], 1e-6)

	hp := dc()
	Shaping{HighPassHz: 400}.Apply(hp, 8000)
	assert.InDelta(t, 0, hp[len(hp)-1], 1e-6)

	g := []float64{0.1}
	Shaping{GainDB: 6}.Apply(g, 8000)
	assert.InDelta(t, 0.1995, g[0], 1e-3)

	for _, m := range []Mood{Brighten, Soften, Energize, Warm} {
		sh := m.Shaping()
		assert.True(t, sh.HighPassHz > 0 || sh.LowPassHz > 0, m.String())
	}
}

// --- Narration ---

func TestVoiceCue(t *testing.T) {
	cue := VoiceCue("once upon a time", 8000)
	assert.Equal(t, 800*time.Millisecond, cue.Duration())
	assert.Empty(t, VoiceCue("   ", 8000).Samples)
}

func TestWithNarration(t *testing.T) {
	music := NewSynthesizer(8000, 2).Synthesize(UpbeatCute.Profile(), 1)
	voice := VoiceCue("hi there", 8000)
	out, err := WithNarration(music, voice)
	require.NoError(t, err)
	assert.Len(t, out.Samples, len(music.Samples))
}

// --- WAV ---

func TestWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.wav")
	track := NewSynthesizer(22050, 3).Synthesize(CozyWarm.Profile(), 1.5)
	require.NoError(t, track.WriteWAV(path))

	got, err := ReadWAV(path)
	require.NoError(t, err)
	assert.Equal(t, 22050, got.SampleRate)
	assert.Equal(t, track.Samples, got.Samples)
}

func TestReadWAVInvalid(t *testing.T) {
	_, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
