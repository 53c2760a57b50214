package diffusion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to a video diffusion worker's task API. The worker accepts a
// prompt via /release_task, is polled via /query_result, and publishes the
// finished clip either on a shared volume or over HTTP.
type Client struct {
	logger    zerolog.Logger
	apiURL    string
	apiKey    string
	outputDir string // shared volume mount point
	http      *http.Client
}

// NewClient creates a diffusion API client.
func NewClient(logger zerolog.Logger, apiURL, apiKey, outputDir string) *Client {
	return &Client{
		logger:    logger.With().Str("component", "diffusion").Logger(),
		apiURL:    apiURL,
		apiKey:    apiKey,
		outputDir: outputDir,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// GenerateRequest contains parameters for clip generation.
type GenerateRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	NumFrames      int     `json:"num_frames"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	FPS            int     `json:"fps"`
	InferenceSteps int     `json:"inference_steps"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Seed           int64   `json:"seed"` // -1 = worker picks
	OutputFormat   string  `json:"output_format"`
}

type releaseResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data []taskResult `json:"data"`
	Code int          `json:"code"`
}

type taskResult struct {
	TaskID string `json:"task_id"`
	Status int    `json:"status"` // 0=running, 1=success, 2=failed
	Result string `json:"result"` // JSON string with file info
}

type resultItem struct {
	File   string `json:"file"`
	Status int    `json:"status"`
}

// Healthy performs one health probe.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// WaitForHealthy blocks until the API responds to health checks or ctx ends.
func (c *Client) WaitForHealthy(ctx context.Context, interval time.Duration) error {
	c.logger.Info().Str("url", c.apiURL).Msg("waiting for diffusion API")
	for {
		if c.Healthy(ctx) {
			c.logger.Info().Msg("diffusion API is healthy")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Generate submits a generation task and returns the task ID.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.post(ctx, "/release_task", body)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	var result releaseResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result.Code != 200 {
		return "", fmt.Errorf("API error (code %d): %s", result.Code, result.Error)
	}

	return result.Data.TaskID, nil
}

// PollUntilDone polls for task completion, returning the local clip path.
func (c *Client) PollUntilDone(ctx context.Context, taskID string, interval time.Duration) (string, error) {
	reqBody, _ := json.Marshal(map[string][]string{
		"task_id_list": {taskID},
	})

	wait := func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
			return nil
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		resp, err := c.post(ctx, "/query_result", reqBody)
		if err != nil {
			c.logger.Debug().Err(err).Str("task", taskID).Msg("poll failed, retrying")
			if err := wait(); err != nil {
				return "", err
			}
			continue
		}

		var result queryResp
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			c.logger.Debug().Err(err).Str("task", taskID).Msg("poll decode failed, retrying")
			if err := wait(); err != nil {
				return "", err
			}
			continue
		}

		if len(result.Data) > 0 {
			task := result.Data[0]
			switch task.Status {
			case 1:
				return c.extractPath(ctx, task.Result)
			case 2:
				return "", fmt.Errorf("generation failed for task %s", taskID)
			}
		}

		if err := wait(); err != nil {
			return "", err
		}
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.http.Do(req)
}

// extractPath parses the result JSON and returns a local file path.
func (c *Client) extractPath(ctx context.Context, resultJSON string) (string, error) {
	var items []resultItem
	if err := json.Unmarshal([]byte(resultJSON), &items); err != nil {
		return "", fmt.Errorf("parse result items: %w", err)
	}

	if len(items) == 0 || items[0].File == "" {
		return "", fmt.Errorf("no clip in result")
	}

	fileRef := items[0].File

	// Shared volume first: references look like "/v1/media?path=outputs/task_x/0.gif"
	if u, err := url.Parse(fileRef); err == nil {
		if relPath := u.Query().Get("path"); relPath != "" {
			localPath := filepath.Join(c.outputDir, relPath)
			if _, err := os.Stat(localPath); err == nil {
				return localPath, nil
			}
		}
	}

	return c.download(ctx, fileRef)
}

// download fetches the clip from the API and saves it to a temp file that
// keeps the reference's extension.
func (c *Client) download(ctx context.Context, fileRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+fileRef, nil)
	if err != nil {
		return "", fmt.Errorf("download clip: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download clip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download clip: status %d", resp.StatusCode)
	}

	ext := ".gif"
	if u, err := url.Parse(fileRef); err == nil {
		if p := u.Query().Get("path"); p != "" && filepath.Ext(p) != "" {
			ext = filepath.Ext(p)
		} else if e := filepath.Ext(u.Path); e != "" {
			ext = e
		}
	}

	tmpFile, err := os.CreateTemp("", "cuteclips-model-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("write clip: %w", err)
	}

	return tmpFile.Name(), tmpFile.Close()
}
