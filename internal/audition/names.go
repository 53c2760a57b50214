package audition

import "github.com/satindergrewal/cuteclips/internal/music"

// styleAdjectives gives each style a pool of descriptors for track names.
var styleAdjectives = map[music.Style][]string{
	music.UpbeatCute:    {"sunny", "bubbly", "sparkly", "cheery", "bright"},
	music.GentleLullaby: {"sleepy", "drowsy", "hushed", "moonlit", "soft"},
	music.PlayfulBounce: {"bouncy", "zippy", "wiggly", "hoppy", "giggly"},
	music.CozyWarm:      {"snug", "fireside", "fuzzy", "toasty", "mellow"},
}

var nouns = []string{"paws", "whiskers", "puddles", "naps", "tails", "feathers", "burrows", "snoots"}

// TrackName builds a display name from style and track ID. The first
// characters of the ID pick the words, so the name is stable per track.
func TrackName(style music.Style, trackID string) string {
	if trackID == "" {
		return ""
	}

	adjs := styleAdjectives[style]
	if len(adjs) == 0 {
		return style.String() + " session"
	}

	var h int
	for i := 0; i < len(trackID) && i < 8; i++ {
		h = h*31 + int(trackID[i])
	}
	if h < 0 {
		h = -h
	}
	return adjs[h%len(adjs)] + " " + nouns[(h/len(adjs))%len(nouns)]
}
