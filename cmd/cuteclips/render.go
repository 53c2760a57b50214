package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuteclips/internal/content"
	"github.com/satindergrewal/cuteclips/internal/diffusion"
	"github.com/satindergrewal/cuteclips/internal/encode"
	"github.com/satindergrewal/cuteclips/internal/mux"
	"github.com/satindergrewal/cuteclips/internal/pipeline"
)

var renderFlags struct {
	title     string
	script    string
	category  string
	duration  float64
	fps       int
	width     int
	height    int
	style     string
	seed      uint64
	narration string
	noModel   bool
}

var renderCmd = &cobra.Command{
	Use:   "render [prompt]",
	Short: "Render one video with a synthesized soundtrack",
	Long: `Render one short video and attach a synthesized soundtrack.

Frames come from the diffusion backend when DIFFUSION_API_URL is set and
it answers, otherwise they are rendered procedurally. Without ffmpeg the
video is written as an animated GIF with no audio.

With no prompt, an idea is drawn from --category and its title, script and
style are used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.title, "title", "", "video title (default: prompt)")
	f.StringVar(&renderFlags.script, "script", "", "narration script")
	f.StringVar(&renderFlags.category, "category", content.CuteAnimals, "idea category when no prompt is given")
	f.Float64Var(&renderFlags.duration, "duration", 0, "seconds (default $CUTE_DURATION)")
	f.IntVar(&renderFlags.fps, "fps", 0, "frames per second (default $CUTE_FPS)")
	f.IntVar(&renderFlags.width, "width", 0, "frame width (default $CUTE_WIDTH)")
	f.IntVar(&renderFlags.height, "height", 0, "frame height (default $CUTE_HEIGHT)")
	f.StringVar(&renderFlags.style, "style", "", "music style (default $CUTE_MUSIC_STYLE)")
	f.Uint64Var(&renderFlags.seed, "seed", 0, "visual and music seed (default: derived from prompt)")
	f.StringVar(&renderFlags.narration, "narration", "", "voice-over audio file to mix in")
	f.BoolVar(&renderFlags.noModel, "no-model", false, "skip the diffusion backend")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	var req pipeline.Request
	if len(args) == 1 {
		req = pipeline.NewRequest(cfg, strings.TrimSpace(args[0]))
	} else {
		gen := content.NewGenerator(logger, uint64(time.Now().UnixNano()), cfg.Duration)
		attachWriter(ctx, gen)
		idea := gen.Generate(ctx, 1, renderFlags.category)[0]
		req = pipeline.NewRequest(cfg, idea.Prompt)
		req.Title = idea.Title
		req.Script = idea.Script
		req.Style = idea.Style
	}

	if flags.Changed("title") {
		req.Title = renderFlags.title
	}
	if flags.Changed("script") {
		req.Script = renderFlags.script
	}
	if flags.Changed("duration") {
		req.Duration = renderFlags.duration
	}
	if flags.Changed("fps") {
		req.FPS = renderFlags.fps
	}
	if flags.Changed("width") {
		req.Width = renderFlags.width
	}
	if flags.Changed("height") {
		req.Height = renderFlags.height
	}
	if flags.Changed("style") {
		req.Style = renderFlags.style
	}
	if flags.Changed("seed") {
		req.Seed = renderFlags.seed
	}
	req.NarrationPath = renderFlags.narration

	deps := pipeline.Deps{
		Encoder: encode.New(logger, encode.Options{
			FFmpegPath: cfg.FFmpegPath,
			TempDir:    cfg.TempDir,
			Timeout:    cfg.EncodeTimeout,
			CRF:        cfg.CRF,
		}),
		Muxer: mux.New(logger, mux.Options{
			FFmpegPath:  cfg.FFmpegPath,
			FFprobePath: cfg.FFprobePath,
			TempDir:     cfg.TempDir,
			Timeout:     cfg.EncodeTimeout,
		}),
	}
	if cfg.DiffusionAPIURL != "" && !renderFlags.noModel {
		client := diffusion.NewClient(logger, cfg.DiffusionAPIURL, cfg.DiffusionAPIKey, cfg.DiffusionOutputDir)
		deps.Source = diffusion.NewSource(client, cfg.InferenceSteps, cfg.GuidanceScale)
	}

	res, err := pipeline.New(logger, cfg, deps).Run(ctx, req)
	if err != nil {
		return err
	}
	for _, d := range res.Degradations {
		logger.Warn().Err(d).Msg("degraded")
	}

	metaPath, err := pipeline.WriteMetadata(res.Metadata)
	if err != nil {
		logger.Warn().Err(err).Msg("metadata not written")
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	if metaPath != "" {
		logger.Info().Str("metadata", metaPath).Msg("done")
	}
	return nil
}

// attachWriter hooks the LLM idea writer into gen when Ollama is configured
// and reachable.
func attachWriter(ctx context.Context, gen *content.Generator) {
	if cfg.OllamaURL == "" {
		return
	}
	client := newOllama()
	readyCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if !client.WaitForReady(readyCtx, 2*time.Second) {
		logger.Info().Msg("ollama not available, using template ideas")
		return
	}
	gen.SetRefiner(newIdeaWriter(client))
}
