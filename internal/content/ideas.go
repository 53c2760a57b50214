// Package content supplies video ideas: a prompt for the frame source, a
// title, a narration script and a soundtrack style.
package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Idea is one video to produce.
type Idea struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Prompt      string    `json:"prompt"`
	Script      string    `json:"script"`
	Style       string    `json:"style"`
	Duration    float64   `json:"duration"`
	Tags        []string  `json:"tags"`
	Refined     bool      `json:"refined"`
	CreatedAt   time.Time `json:"created_at"`
}

// Refiner rewrites a template title and script. On error the drafts are kept.
type Refiner interface {
	Refine(ctx context.Context, category, title, script string) (string, string, error)
}

// Generator fills category templates from a seeded generator, so a seed
// always yields the same titles, prompts and scripts.
type Generator struct {
	logger   zerolog.Logger
	duration float64
	refiner  Refiner
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(logger zerolog.Logger, seed uint64, duration float64) *Generator {
	return &Generator{
		logger:   logger.With().Str("component", "content").Logger(),
		duration: duration,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

// SetRefiner attaches an optional LLM writer.
func (g *Generator) SetRefiner(r Refiner) {
	g.refiner = r
}

// Generate returns count ideas for category. Unknown categories get
// fallback ideas. A count below one yields none.
func (g *Generator) Generate(ctx context.Context, count int, category string) []Idea {
	count = max(count, 0)
	cat, ok := lookup(category)
	if !ok {
		g.logger.Warn().Str("category", category).Msg("unknown category, using fallback ideas")
		return Fallback(count, category, g.duration, g.now())
	}

	ideas := make([]Idea, 0, count)
	for range count {
		idea := g.fromTemplate(cat)
		if g.refiner != nil {
			title, script, err := g.refiner.Refine(ctx, cat.name, idea.Title, idea.Script)
			if err != nil {
				g.logger.Warn().Err(err).Str("title", idea.Title).Msg("keeping template idea")
			} else {
				idea.Title, idea.Script, idea.Refined = title, script, true
			}
		}
		ideas = append(ideas, idea)
	}
	g.logger.Info().Int("count", len(ideas)).Str("category", cat.name).Msg("ideas generated")
	return ideas
}

func (g *Generator) fromTemplate(cat category) Idea {
	g.mu.Lock()
	title := g.fill(cat.idea)
	script := g.fill(cat.script)
	g.mu.Unlock()

	return Idea{
		ID:          uuid.New(),
		Title:       title,
		Description: fmt.Sprintf("A delightful video featuring %s. Perfect for animal lovers!", lowerFirst(title)),
		Category:    cat.name,
		Prompt:      lowerFirst(title),
		Script:      script + " " + signOff,
		Style:       cat.style,
		Duration:    g.duration,
		Tags:        append([]string{cat.name}, baseTags...),
		CreatedAt:   g.now(),
	}
}

// fill substitutes every placeholder in t. Placeholders are drawn in sorted
// order so the draw sequence does not depend on map iteration. Caller
// holds g.mu.
func (g *Generator) fill(t template) string {
	names := make([]string, 0, len(t.vars))
	for name := range t.vars {
		names = append(names, name)
	}
	slices.Sort(names)

	out := t.text
	for _, name := range names {
		values := t.vars[name]
		out = strings.ReplaceAll(out, "{"+name+"}", values[g.rng.IntN(len(values))])
	}
	return out
}

// Fallback returns generic ideas for category, used when templates cannot
// serve it.
func Fallback(count int, category string, duration float64, now time.Time) []Idea {
	label := strings.ReplaceAll(category, "_", " ")
	if label == "" {
		label = "cute animals"
	}
	ideas := make([]Idea, max(count, 0))
	for i := range ideas {
		ideas[i] = Idea{
			ID:          uuid.New(),
			Title:       fmt.Sprintf("Adorable %s Moment #%d", titleCase(label), i+1),
			Description: fmt.Sprintf("A heartwarming video showcasing the cutest %s moments!", label),
			Category:    category,
			Prompt:      "a cute " + label + " moment",
			Script:      fmt.Sprintf("Watch this amazing %s video! %s", label, signOff),
			Style:       "upbeat_cute",
			Duration:    duration,
			Tags:        append([]string{category}, baseTags...),
			CreatedAt:   now,
		}
	}
	return ideas
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
