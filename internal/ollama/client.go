package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrModelMissing means Ollama answered but the configured model is not
// pulled.
var ErrModelMissing = errors.New("ollama model not pulled")

// Client talks to a local Ollama API for title and script writing.
type Client struct {
	logger     zerolog.Logger
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates an Ollama client.
func NewClient(logger zerolog.Logger, baseURL, model string) *Client {
	return &Client{
		logger:  logger.With().Str("component", "ollama").Logger(),
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // first call loads the model
		},
	}
}

// Options tune a single generation. Zero fields use Ollama's defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

func (o Options) values() map[string]any {
	v := map[string]any{"top_p": 0.95, "repeat_penalty": 1.1}
	if o.Temperature > 0 {
		v["temperature"] = o.Temperature
	}
	if o.MaxTokens > 0 {
		v["num_predict"] = o.MaxTokens
	}
	return v
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// sameModel treats "name" and "name:latest" as one model.
func sameModel(a, b string) bool {
	norm := func(s string) string {
		if !strings.Contains(s, ":") {
			s += ":latest"
		}
		return s
	}
	return norm(a) == norm(b)
}

// HasModel lists local models and reports whether the configured one is
// among them.
func (c *Client) HasModel(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("ollama tags: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ollama tags: status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false, fmt.Errorf("ollama tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, c.model) {
			return true, nil
		}
	}
	return false, nil
}

// Available reports whether Ollama is reachable and the model is pulled.
func (c *Client) Available(ctx context.Context) bool {
	ok, err := c.HasModel(ctx)
	if err == nil && !ok {
		c.logger.Debug().Str("model", c.model).Msg("model not pulled")
	}
	return ok
}

// Generate sends a prompt with a system message and returns the trimmed
// response.
func (c *Client) Generate(ctx context.Context, system, prompt string, opts Options) (string, error) {
	jsonBody, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		System:  system,
		Options: opts.values(),
	})
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrModelMissing, c.model)
	case resp.StatusCode != http.StatusOK:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama: %s", result.Error)
	}
	return strings.TrimSpace(result.Response), nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// WaitForReady polls Ollama until the model is available or ctx expires.
// Ollama is optional, so callers treat false as "write from templates".
func (c *Client) WaitForReady(ctx context.Context, interval time.Duration) bool {
	if c.Available(ctx) {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if c.Available(ctx) {
				c.logger.Info().Str("model", c.model).Msg("ollama ready")
				return true
			}
		}
	}
}
