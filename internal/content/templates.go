package content

// Categories an idea can be drawn from.
const (
	CuteAnimals         = "cute_animals"
	FunnyPets           = "funny_pets"
	HeartwarmingStories = "heartwarming_stories"
)

// template is a phrase with {name} placeholders and the values each
// placeholder may take.
type template struct {
	text string
	vars map[string][]string
}

type category struct {
	name   string
	style  string // music.Style name
	idea   template
	script template
}

var categories = []category{
	{
		name:  CuteAnimals,
		style: "upbeat_cute",
		idea: template{
			text: "A {animal} {action} in the {setting}",
			vars: map[string][]string{
				"animal":  {"tiny puppy", "fluffy kitten", "baby bunny", "sleepy duckling", "baby panda"},
				"action":  {"playing", "sleeping", "eating", "exploring"},
				"setting": {"garden", "living room", "park", "beach"},
			},
		},
		script: narrative,
	},
	{
		name:  FunnyPets,
		style: "playful_bounce",
		idea: template{
			text: "A {animal} {funny_action} while its owner is {owner_action}",
			vars: map[string][]string{
				"animal":       {"cat", "dog", "hamster", "parrot"},
				"funny_action": {"dances", "sings", "talks back", "dresses up"},
				"owner_action": {"cooking", "working", "exercising"},
			},
		},
		script: template{
			text: "Nobody told this {animal} it was a normal day. While everyone else was {owner_action}, it decided to {funny_action}. Honestly? Iconic.",
			vars: map[string][]string{
				"animal":       {"silly cat", "goofy dog", "cheeky hamster"},
				"owner_action": {"busy", "on a call", "making dinner"},
				"funny_action": {"put on a show", "steal the spotlight", "start a dance party"},
			},
		},
	},
	{
		name:  HeartwarmingStories,
		style: "cozy_warm",
		idea: template{
			text: "A {animal} {kind_act} a {friend}",
			vars: map[string][]string{
				"animal":   {"gentle golden retriever", "old cat", "baby goat"},
				"kind_act": {"cuddling", "sharing a blanket with", "looking after"},
				"friend":   {"newborn kitten", "lost duckling", "shy puppy"},
			},
		},
		script: narrative,
	},
}

var narrative = template{
	text: "Once upon a time, there was a {animal} who loved to {action}. Every day, the {animal} would {daily_routine}.",
	vars: map[string][]string{
		"animal":        {"little puppy", "curious kitten", "brave bunny"},
		"action":        {"explore", "play", "learn", "help others"},
		"daily_routine": {"wake up early", "go on adventures", "nap in the sun"},
	},
}

const signOff = "Don't forget to like and share!"

var baseTags = []string{"animals", "cute", "viral"}

// Categories lists the known idea categories.
func Categories() []string {
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = c.name
	}
	return out
}

func lookup(name string) (category, bool) {
	for _, c := range categories {
		if c.name == name {
			return c, true
		}
	}
	return category{}, false
}
