package ollama

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrUnusable is returned when the model answered with something that
// cannot be used as a title or script.
var ErrUnusable = errors.New("unusable llm output")

// WriteBudget bounds a single refinement round trip.
const WriteBudget = 15 * time.Second

var (
	titleOptions  = Options{Temperature: 0.9, MaxTokens: 32}
	scriptOptions = Options{Temperature: 0.8, MaxTokens: 160}
)

// IdeaWriter rewrites template ideas into punchier titles and narration
// scripts. Any failure is reported so the caller can keep its template.
type IdeaWriter struct {
	client *Client
	budget time.Duration

	mu        sync.Mutex
	lastTitle map[string]string // category -> last title written
}

func NewIdeaWriter(client *Client) *IdeaWriter {
	return &IdeaWriter{
		client:    client,
		budget:    WriteBudget,
		lastTitle: make(map[string]string),
	}
}

const titleSystemPrompt = `You write titles for short vertical videos of cute animals.

Given a category and a draft title, output ONE title of 3-10 words.

Rules:
- Warm, playful, family friendly
- Keep the animal and the action from the draft
- No hashtags, no emoji, no quotes, no numbering
- Must differ from any previous title you are shown

Output ONLY the title text.

/no_think`

const scriptSystemPrompt = `You write voice-over scripts for 15 second videos of cute animals.

Given a title and a draft script, output a script of 2-4 short sentences (under 45 words).

Rules:
- Simple spoken English, gentle and upbeat
- End with exactly: Don't forget to like and share!
- No stage directions, no speaker labels, no emoji, no quotes

Output ONLY the script text.

/no_think`

// Refine rewrites title and script for category. On error the inputs
// should be used unchanged.
func (w *IdeaWriter) Refine(ctx context.Context, category, title, script string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, w.budget)
	defer cancel()

	w.mu.Lock()
	last := w.lastTitle[category]
	w.mu.Unlock()

	prompt := fmt.Sprintf("Category: %s\nDraft title: %s", category, title)
	if last != "" {
		prompt += fmt.Sprintf("\nPrevious title (do NOT repeat this): %s", last)
	}
	newTitle, err := w.client.Generate(ctx, titleSystemPrompt, prompt, titleOptions)
	if err != nil {
		return title, script, fmt.Errorf("title: %w", err)
	}
	newTitle = cleanOutput(newTitle)
	if n := len(strings.Fields(newTitle)); n < 2 || n > 14 || len(newTitle) > 100 {
		return title, script, fmt.Errorf("title %q: %w", newTitle, ErrUnusable)
	}

	newScript, err := w.client.Generate(ctx, scriptSystemPrompt,
		fmt.Sprintf("Title: %s\nDraft script: %s", newTitle, script), scriptOptions)
	if err != nil {
		return title, script, fmt.Errorf("script: %w", err)
	}
	newScript = cleanOutput(newScript)
	if len(newScript) < 15 || len(newScript) > 500 {
		return title, script, fmt.Errorf("script %q: %w", newScript, ErrUnusable)
	}

	w.mu.Lock()
	w.lastTitle[category] = newTitle
	w.mu.Unlock()

	w.client.logger.Debug().Str("category", category).Str("title", newTitle).Msg("idea refined")
	return newTitle, newScript, nil
}

// cleanOutput strips common LLM artifacts.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)

	// qwen thinking leakage
	if idx := strings.Index(s, "</think>"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("</think>"):])
	}

	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	prefixes := []string{
		"here's a title:",
		"here is a title:",
		"here's the script:",
		"here is the script:",
		"title:",
		"script:",
	}
	lower := strings.ToLower(s)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}

	return strings.TrimSpace(s)
}
