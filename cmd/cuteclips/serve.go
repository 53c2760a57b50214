package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuteclips/internal/audio"
	"github.com/satindergrewal/cuteclips/internal/audition"
	"github.com/satindergrewal/cuteclips/internal/music"
	"github.com/satindergrewal/cuteclips/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Stream an endless preview of the soundtrack styles",
	Long: `Serve a live preview of the soundtrack synthesizer.

  GET  /stream       MP3 over chunked HTTP (needs ffmpeg)
  POST /offer        WebRTC SDP offer, answered with an Opus track and a
                     "status" data channel for track changes and commands
  GET  /api/status   current style, track and listener counts
  POST /api/style    {"style": "cozy_warm"}
  POST /api/skip     skip the current track`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	start, err := music.ParseStyle(cfg.MusicStyle)
	if err != nil {
		logger.Warn().Err(err).Str("using", start.String()).Msg("unknown starting style")
	}

	player := audio.NewPipeline(logger, cfg.CrossfadeDuration)
	go player.Run(ctx)

	broadcaster := stream.NewBroadcaster()
	go broadcaster.Run(ctx, player.Frames())

	sched := audition.NewScheduler(logger, player, audition.Config{
		StartingStyle: start,
		TrackDuration: cfg.TrackDuration,
		BufferAhead:   cfg.BufferAhead,
		DwellMin:      cfg.DwellMin,
		DwellMax:      cfg.DwellMax,
		Seed:          uint64(time.Now().UnixNano()),
	})
	go sched.Run(ctx)

	rtc := stream.NewWebRTCHandler(logger, broadcaster, sched, player)

	mux := http.NewServeMux()
	mux.Handle("/stream", stream.NewHTTPHandler(logger, broadcaster, cfg.FFmpegPath))
	mux.Handle("/offer", rtc)
	stream.NewAPI(logger, sched, player, broadcaster).Register(mux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		rtc.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// open streams never finish on their own
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	logger.Info().Str("addr", server.Addr).Str("style", start.String()).Msg("preview live")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
