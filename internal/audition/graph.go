package audition

import "github.com/satindergrewal/cuteclips/internal/music"

// Node is a style in the transition graph.
type Node struct {
	Style    music.Style
	Adjacent []music.Style
}

// StyleGraph maps each soundtrack style to the styles it may drift into.
// Transitions only follow edges, so the preview never jumps from a
// lullaby straight into the bounciest preset.
var StyleGraph = map[music.Style]*Node{
	music.UpbeatCute: {
		Style:    music.UpbeatCute,
		Adjacent: []music.Style{music.PlayfulBounce, music.CozyWarm},
	},
	music.PlayfulBounce: {
		Style:    music.PlayfulBounce,
		Adjacent: []music.Style{music.UpbeatCute},
	},
	music.CozyWarm: {
		Style:    music.CozyWarm,
		Adjacent: []music.Style{music.UpbeatCute, music.GentleLullaby},
	},
	music.GentleLullaby: {
		Style:    music.GentleLullaby,
		Adjacent: []music.Style{music.CozyWarm},
	},
}

// IsValidStyle checks if a style exists in the graph.
func IsValidStyle(s music.Style) bool {
	_, ok := StyleGraph[s]
	return ok
}
