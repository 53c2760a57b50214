package music

import (
	"fmt"
	"math"
	"strings"
)

// chromatic is the 12-tone scale in sharp spelling, index 0 = C.
var chromatic = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flats = map[string]string{
	"Db": "C#", "Eb": "D#", "Gb": "F#", "Ab": "G#", "Bb": "A#",
	"Cb": "B", "Fb": "E", "E#": "F", "B#": "C",
}

// NoteIndex returns the chromatic index of a note name. Flats and the
// enharmonic oddities (E#, Cb, ...) are normalised to sharps.
func NoteIndex(note string) (int, error) {
	if s, ok := flats[note]; ok {
		note = s
	}
	for i, n := range chromatic {
		if n == note {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown note %q", note)
}

// Transpose moves note up by semitones, wrapping modulo 12. Unknown notes
// yield "".
func Transpose(note string, semitones int) string {
	i, err := NoteIndex(note)
	if err != nil {
		return ""
	}
	return chromatic[((i+semitones)%12+12)%12]
}

func MajorThird(root string) string   { return Transpose(root, 4) }
func MinorThird(root string) string   { return Transpose(root, 3) }
func PerfectFifth(root string) string { return Transpose(root, 7) }

// Frequency returns the equal-tempered pitch of note in octave, A4 = 440 Hz.
func Frequency(note string, octave int) (float64, error) {
	i, err := NoteIndex(note)
	if err != nil {
		return 0, err
	}
	semitonesFromA4 := (octave-4)*12 + i - 9
	return 440 * math.Pow(2, float64(semitonesFromA4)/12), nil
}

// Chord is a triad named by its symbol, e.g. "C", "Am", "Bbmin".
type Chord struct {
	Symbol string
	Root   string
	Minor  bool
}

// ParseChord reads a chord symbol. The chord is minor when the quality
// suffix starts with "m" (but not "maj"); every other suffix, including
// sevenths and "dim", is voiced as a major triad.
func ParseChord(symbol string) (Chord, error) {
	if symbol == "" {
		return Chord{}, fmt.Errorf("empty chord symbol")
	}
	rootLen := 1
	if len(symbol) > 1 && (symbol[1] == '#' || symbol[1] == 'b') {
		rootLen = 2
	}
	root, quality := symbol[:rootLen], symbol[rootLen:]

	idx, err := NoteIndex(root)
	if err != nil {
		return Chord{}, fmt.Errorf("chord %q: %w", symbol, err)
	}

	c := Chord{Symbol: symbol, Root: chromatic[idx]}
	c.Minor = strings.HasPrefix(quality, "m") && !strings.HasPrefix(quality, "maj")
	return c, nil
}

// MustChord is ParseChord for static tables.
func MustChord(symbol string) Chord {
	c, err := ParseChord(symbol)
	if err != nil {
		panic(err)
	}
	return c
}

// Tones returns root, third and fifth.
func (c Chord) Tones() [3]string {
	third := MajorThird(c.Root)
	if c.Minor {
		third = MinorThird(c.Root)
	}
	return [3]string{c.Root, third, PerfectFifth(c.Root)}
}

// Frequencies voices the triad in closed position starting at octave.
// Tones that wrap past B move up an octave.
func (c Chord) Frequencies(octave int) [3]float64 {
	var out [3]float64
	rootIdx, _ := NoteIndex(c.Root)
	for i, n := range c.Tones() {
		idx, _ := NoteIndex(n)
		oct := octave
		if idx < rootIdx {
			oct++
		}
		out[i], _ = Frequency(n, oct)
	}
	return out
}

var (
	majorSteps = [7]int{0, 2, 4, 5, 7, 9, 11}
	minorSteps = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// Scale returns the seven degree frequencies of key starting at octave.
func Scale(key string, minor bool, octave int) ([7]float64, error) {
	var out [7]float64
	root, err := NoteIndex(key)
	if err != nil {
		return out, err
	}
	steps := majorSteps
	if minor {
		steps = minorSteps
	}
	for i, s := range steps {
		semis := (octave-4)*12 + root + s - 9
		out[i] = 440 * math.Pow(2, float64(semis)/12)
	}
	return out, nil
}
