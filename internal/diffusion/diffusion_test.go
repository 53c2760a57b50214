package diffusion

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyGIF(t *testing.T, frames int) []byte {
	t.Helper()
	pal := color.Palette{color.Black, color.White}
	g := &gif.GIF{}
	for i := range frames {
		img := image.NewPaletted(image.Rect(0, 0, 8, 8), pal)
		img.SetColorIndex(i%8, 0, 1)
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

// fakeWorker emulates the task API: the first query reports running, the
// next one success.
func fakeWorker(t *testing.T, clip []byte, healthy bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/release_task", func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Prompt, "a cute puppy")
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": map[string]string{"task_id": "task-1"}})
	})
	mux.HandleFunc("/query_result", func(w http.ResponseWriter, r *http.Request) {
		status := 0
		if polls.Add(1) > 1 {
			status = 1
		}
		result, _ := json.Marshal([]resultItem{{File: "/v1/media?path=outputs/task-1/0.gif", Status: 1}})
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": []taskResult{{TaskID: "task-1", Status: status, Result: string(result)}},
		})
	})
	mux.HandleFunc("/v1/media", func(w http.ResponseWriter, r *http.Request) {
		w.Write(clip)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestKeyframes(t *testing.T) {
	assert.Equal(t, 1, Keyframes(0))
	assert.Equal(t, 10, Keyframes(5))
	assert.Equal(t, 3, Keyframes(1.2))
	assert.Equal(t, 30, Keyframes(60))
}

func TestSourceFramesOverHTTP(t *testing.T) {
	srv, polls := fakeWorker(t, tinyGIF(t, 4), true)
	client := NewClient(zerolog.Nop(), srv.URL, "secret", t.TempDir())
	src := NewSource(client, 20, 7.5)
	src.pollInterval = 10 * time.Millisecond

	frames, err := src.Frames(context.Background(), "a cute puppy", 2, 10, 32, 24)
	require.NoError(t, err)
	require.Len(t, frames, 20)
	for _, f := range frames {
		assert.Equal(t, 32, f.Width)
		assert.Equal(t, 24, f.Height)
	}
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestSourceUnhealthy(t *testing.T) {
	srv, _ := fakeWorker(t, nil, false)
	src := NewSource(NewClient(zerolog.Nop(), srv.URL, "", ""), 20, 7.5)

	_, err := src.Frames(context.Background(), "x", 1, 10, 8, 8)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestExtractPathPrefersSharedVolume(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "outputs", "task-9", "0.gif")
	require.NoError(t, os.MkdirAll(filepath.Dir(local), 0o755))
	require.NoError(t, os.WriteFile(local, []byte("gif"), 0o644))

	c := NewClient(zerolog.Nop(), "http://127.0.0.1:1", "", dir)
	path, err := c.extractPath(context.Background(), `[{"file":"/v1/media?path=outputs/task-9/0.gif"}]`)
	require.NoError(t, err)
	assert.Equal(t, local, path)
}

func TestExtractPathEmpty(t *testing.T) {
	c := NewClient(zerolog.Nop(), "http://127.0.0.1:1", "", "")
	_, err := c.extractPath(context.Background(), `[]`)
	assert.Error(t, err)
	_, err = c.extractPath(context.Background(), `not json`)
	assert.Error(t, err)
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 500, "error": "out of memory"})
	}))
	defer srv.Close()

	_, err := NewClient(zerolog.Nop(), srv.URL, "", "").Generate(context.Background(), GenerateRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestPollFailedTask(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": []taskResult{{TaskID: "t", Status: 2}}})
	}))
	defer srv.Close()

	_, err := NewClient(zerolog.Nop(), srv.URL, "", "").PollUntilDone(context.Background(), "t", time.Millisecond)
	assert.Error(t, err)
}

func TestPollHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": []taskResult{{TaskID: "t", Status: 0}}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(zerolog.Nop(), srv.URL, "", "").PollUntilDone(ctx, "t", 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoadFramesStill(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	frames, err := LoadFrames(path, 10, 5)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 10, frames[0].Width)
}

func TestLoadFramesGIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.gif")
	require.NoError(t, os.WriteFile(path, tinyGIF(t, 3), 0o644))

	frames, err := LoadFrames(path, 16, 16)
	require.NoError(t, err)
	assert.Len(t, frames, 3)
}
