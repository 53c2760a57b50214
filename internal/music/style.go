package music

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownStyle is returned by ParseStyle for names outside the preset set.
var ErrUnknownStyle = errors.New("unknown music style")

// Style is a closed set of soundtrack presets.
type Style int

const (
	UpbeatCute Style = iota
	GentleLullaby
	PlayfulBounce
	CozyWarm
)

// DefaultStyle is used when a requested style cannot be honoured.
const DefaultStyle = UpbeatCute

var styleNames = [...]string{
	UpbeatCute:    "upbeat_cute",
	GentleLullaby: "gentle_lullaby",
	PlayfulBounce: "playful_bounce",
	CozyWarm:      "cozy_warm",
}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// ParseStyle accepts a style name case-insensitively, with spaces or dashes
// standing in for underscores.
func ParseStyle(name string) (Style, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for i, n := range styleNames {
		if n == norm {
			return Style(i), nil
		}
	}
	return DefaultStyle, fmt.Errorf("%w: %q", ErrUnknownStyle, name)
}

// Styles lists every preset in declaration order.
func Styles() []Style {
	out := make([]Style, len(styleNames))
	for i := range out {
		out[i] = Style(i)
	}
	return out
}

// Profile is the static musical description of a style.
type Profile struct {
	Style       Style
	Tempo       int // BPM
	Key         string
	Minor       bool
	Octave      int // melody octave; harmony sits one below
	Scale       [7]float64
	Progression []Chord
	Mood        Mood
}

var profiles = map[Style]Profile{
	UpbeatCute:    newProfile(UpbeatCute, 120, "C", false, 5, Brighten, "C", "G", "Am", "F"),
	GentleLullaby: newProfile(GentleLullaby, 72, "F", false, 4, Soften, "F", "Dm", "Bb", "C"),
	PlayfulBounce: newProfile(PlayfulBounce, 140, "G", false, 5, Energize, "G", "D", "Em", "C"),
	CozyWarm:      newProfile(CozyWarm, 90, "A", true, 4, Warm, "Am", "F", "C", "G"),
}

func newProfile(s Style, tempo int, key string, minor bool, octave int, mood Mood, chords ...string) Profile {
	scale, err := Scale(key, minor, octave)
	if err != nil {
		panic(err)
	}
	p := Profile{Style: s, Tempo: tempo, Key: key, Minor: minor, Octave: octave, Scale: scale, Mood: mood}
	for _, c := range chords {
		p.Progression = append(p.Progression, MustChord(c))
	}
	return p
}

// Profile returns the preset for s, or the default preset for an
// out-of-range value.
func (s Style) Profile() Profile {
	p, ok := profiles[s]
	if !ok {
		p = profiles[DefaultStyle]
	}
	p.Progression = slices.Clone(p.Progression)
	return p
}
