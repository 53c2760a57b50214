package music

import (
	"strings"
	"time"
)

// Narration placeholder: one 800 Hz beep span per word, 200 ms each.
const (
	CueFrequency = 800.0
	CuePerWord   = 200 * time.Millisecond
	cueGainDB    = -20.0

	MusicUnderVoiceDB = -15.0
	VoiceGainDB       = 5.0
)

// VoiceCue renders a tone standing in for spoken narration of script. An
// empty script yields an empty track.
func VoiceCue(script string, sampleRate int) *Track {
	words := len(strings.Fields(script))
	if words == 0 {
		return &Track{SampleRate: sampleRate}
	}
	s := &Synthesizer{sampleRate: sampleRate}
	d := time.Duration(words) * CuePerWord
	return FromFloat(s.tone(CueFrequency, d.Seconds(), cueGainDB), sampleRate)
}

// WithNarration ducks music under voice.
func WithNarration(music, voice *Track) (*Track, error) {
	return Overlay(music, MusicUnderVoiceDB, voice, VoiceGainDB)
}
