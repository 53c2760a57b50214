package mux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/gif"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/cuteclips/internal/music"
)

// ErrMuxFailed wraps every reason a soundtrack could not be attached. The
// video path returned alongside it is still valid.
var ErrMuxFailed = errors.New("mux failed")

// Options configures a Muxer.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	TempDir     string
	Timeout     time.Duration
}

// Muxer attaches a synthesized soundtrack to an encoded video.
type Muxer struct {
	logger  zerolog.Logger
	ffmpeg  string
	ffprobe string
	tempDir string
	timeout time.Duration
}

// New resolves ffmpeg and ffprobe once. Missing binaries are logged, not
// fatal: Mux then degrades to returning the silent video.
func New(logger zerolog.Logger, opts Options) *Muxer {
	m := &Muxer{
		logger:  logger.With().Str("component", "mux").Logger(),
		tempDir: opts.TempDir,
		timeout: opts.Timeout,
	}
	m.ffmpeg = m.resolve(opts.FFmpegPath, "ffmpeg")
	m.ffprobe = m.resolve(opts.FFprobePath, "ffprobe")
	return m
}

func (m *Muxer) resolve(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	path, err := exec.LookPath(name)
	if err != nil {
		m.logger.Warn().Str("binary", name).Err(err).Msg("not found")
		return ""
	}
	return path
}

// Reconcile fits track to exactly target: longer audio is truncated,
// shorter audio loops from its start. An empty track becomes silence.
func Reconcile(track *music.Track, target time.Duration) *music.Track {
	n := int(target.Seconds()*float64(track.SampleRate) + 0.5)
	out := &music.Track{SampleRate: track.SampleRate, Samples: make([]int16, n)}
	src := track.Samples
	if len(src) == 0 {
		return out
	}
	for off := 0; off < n; off += len(src) {
		copy(out.Samples[off:], src)
	}
	return out
}

// VideoDuration returns the playback length of an encoded video. GIFs are
// measured from their frame delays; anything else goes through ffprobe.
func (m *Muxer) VideoDuration(ctx context.Context, path string) (time.Duration, error) {
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		return GIFDuration(path)
	}
	if m.ffprobe == "" {
		return 0, fmt.Errorf("ffprobe unavailable")
	}
	cmd := exec.CommandContext(ctx, m.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration %q: %w", path, out, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// GIFDuration sums the frame delays of an animated GIF.
func GIFDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	g, err := gif.DecodeAll(f)
	if err != nil {
		return 0, fmt.Errorf("decode gif %s: %w", path, err)
	}
	var total time.Duration
	for _, d := range g.Delay {
		total += time.Duration(d) * 10 * time.Millisecond
	}
	return total, nil
}

// Mux reconciles track to the video's length and writes final_<name>.mp4
// next to videoPath. On any failure it returns videoPath itself together
// with an error wrapping ErrMuxFailed.
func (m *Muxer) Mux(ctx context.Context, videoPath string, track *music.Track) (string, error) {
	out, err := m.mux(ctx, videoPath, track)
	if err != nil {
		m.logger.Warn().Err(err).Str("video", videoPath).Msg("keeping silent video")
		return videoPath, fmt.Errorf("%w: %v", ErrMuxFailed, err)
	}
	return out, nil
}

func (m *Muxer) mux(ctx context.Context, videoPath string, track *music.Track) (string, error) {
	if m.ffmpeg == "" {
		return "", fmt.Errorf("ffmpeg unavailable")
	}
	if track == nil || track.SampleRate <= 0 {
		return "", fmt.Errorf("no soundtrack")
	}

	videoDur, err := m.VideoDuration(ctx, videoPath)
	if err != nil {
		return "", err
	}
	fitted := Reconcile(track, videoDur)

	wavFile, err := os.CreateTemp(m.tempDir, "cuteclips-audio-*.wav")
	if err != nil {
		return "", fmt.Errorf("scratch wav: %w", err)
	}
	wavPath := wavFile.Name()
	wavFile.Close()
	defer os.Remove(wavPath)

	if err := fitted.WriteWAV(wavPath); err != nil {
		return "", err
	}

	dir, name := filepath.Split(videoPath)
	out := filepath.Join(dir, "final_"+strings.TrimSuffix(name, filepath.Ext(name))+".mp4")

	videoCodec := []string{"-c:v", "copy"}
	if strings.EqualFold(filepath.Ext(videoPath), ".gif") {
		videoCodec = []string{
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		}
	}

	args := []string{"-y", "-loglevel", "error", "-i", videoPath, "-i", wavPath}
	args = append(args, videoCodec...)
	args = append(args,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		out,
	)

	runCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(runCtx, m.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	m.logger.Info().
		Str("path", out).
		Dur("video", videoDur).
		Dur("audio", track.Duration()).
		Msg("soundtrack attached")
	return out, nil
}
