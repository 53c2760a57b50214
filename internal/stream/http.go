package stream

import (
	"context"
	"io"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/cuteclips/internal/audio"
)

// HTTPHandler serves a chunked MP3 stream. Each connection spawns an
// ffmpeg process that encodes PCM to MP3 in real time.
type HTTPHandler struct {
	logger      zerolog.Logger
	broadcaster *Broadcaster
	ffmpeg      string
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(logger zerolog.Logger, b *Broadcaster, ffmpegPath string) *HTTPHandler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &HTTPHandler{
		logger:      logger.With().Str("component", "http-stream").Logger(),
		broadcaster: b,
		ffmpeg:      ffmpegPath,
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := exec.CommandContext(ctx, h.ffmpeg,
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.logger.Error().Err(err).Msg("stdin pipe")
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.logger.Error().Err(err).Msg("stdout pipe")
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := cmd.Start(); err != nil {
		h.logger.Error().Err(err).Msg("ffmpeg start")
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "cuteclips preview")

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	h.logger.Info().Int("listeners", h.broadcaster.ListenerCount()).Msg("listener connected")
	defer h.logger.Info().Msg("listener disconnected")

	go func() {
		defer stdin.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Done():
				return
			case frame, ok := <-listener.C:
				if !ok {
					return
				}
				if _, err := stdin.Write(audio.SamplesToBytes(frame)); err != nil {
					return
				}
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.logger.Warn().Err(err).Msg("ffmpeg read")
			}
			break
		}
	}

	cancel()
	cmd.Wait()
}
