package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/cuteclips/internal/render"
)

// Options configures an Encoder.
type Options struct {
	FFmpegPath string        // name or path; resolved once with exec.LookPath
	TempDir    string        // parent for scratch frame dirs; empty = os.TempDir()
	Timeout    time.Duration // per ffmpeg invocation; 0 = none
	CRF        int
}

// Encoder writes frame sequences to MP4 through ffmpeg, falling back to an
// animated GIF when ffmpeg is missing or fails.
type Encoder struct {
	logger  zerolog.Logger
	ffmpeg  string // empty when unavailable
	tempDir string
	timeout time.Duration
	crf     int
}

// New probes for ffmpeg once. A missing binary is not an error; every
// Encode call will go straight to GIF.
func New(logger zerolog.Logger, opts Options) *Encoder {
	e := &Encoder{
		logger:  logger.With().Str("component", "encode").Logger(),
		tempDir: opts.TempDir,
		timeout: opts.Timeout,
		crf:     opts.CRF,
	}
	if e.crf <= 0 {
		e.crf = 23
	}

	name := opts.FFmpegPath
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		e.logger.Warn().Str("ffmpeg", name).Err(err).Msg("ffmpeg not found, videos will be GIF")
		return e
	}
	e.ffmpeg = path
	return e
}

// Available reports whether the MP4 path can be attempted.
func (e *Encoder) Available() bool {
	return e.ffmpeg != ""
}

// Encode writes frames at fps next to outputPath and returns the file it
// produced: outputPath's stem with .mp4, or .gif after a fallback. The GIF
// strategy is tried at most once. Cancelling ctx aborts without fallback.
func (e *Encoder) Encode(ctx context.Context, frames []*render.Frame, fps int, outputPath string) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("encode: no frames")
	}
	if fps <= 0 {
		return "", &render.RenderError{Param: "fps", Value: fps}
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("encode: output dir: %w", err)
	}
	stem := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))

	primary := ErrEncoderUnavailable
	if e.Available() {
		out := stem + ".mp4"
		start := time.Now()
		err := e.encodeMP4(ctx, frames, fps, out)
		if err == nil {
			e.logger.Info().
				Str("path", out).
				Int("frames", len(frames)).
				Dur("took", time.Since(start)).
				Msg("mp4 encoded")
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		primary = err
	}

	e.logger.Warn().Err(primary).Msg("falling back to GIF")
	out := stem + ".gif"
	if err := WriteGIFFile(out, frames, fps); err != nil {
		return "", &Error{Primary: primary, Fallback: err}
	}
	e.logger.Info().Str("path", out).Int("frames", len(frames)).Msg("gif encoded")
	return out, nil
}

func (e *Encoder) encodeMP4(ctx context.Context, frames []*render.Frame, fps int, out string) error {
	dir, err := os.MkdirTemp(e.tempDir, "cuteclips-frames-*")
	if err != nil {
		return fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := writePNGs(ctx, dir, frames); err != nil {
		return err
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, e.ffmpeg,
		"-y",
		"-loglevel", "error",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(dir, "frame_%05d.png"),
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-crf", strconv.Itoa(e.crf),
		"-movflags", "+faststart",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Run(); err != nil {
		os.Remove(out)
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
		}
		return &EncodeFailed{ExitCode: code, Stderr: tail(stderr.String(), 512), Err: err}
	}
	return nil
}

func writePNGs(ctx context.Context, dir string, frames []*render.Frame) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range frames {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame_%05d.png", i)))
			if err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			if err := enc.Encode(file, f.RGBA()); err != nil {
				file.Close()
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			return file.Close()
		})
	}
	return g.Wait()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
