// Command cuteclips renders short procedural cute-animal videos with a
// synthesized soundtrack, and can serve a live preview of the music.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuteclips/internal/config"
)

var (
	configPath string
	logLevel   string

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:          "cuteclips",
	Short:        "Procedural cute-animal video and soundtrack generator",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if configPath == "" {
			configPath = os.Getenv("CUTE_CONFIG")
		}
		if configPath != "" {
			var err error
			if cfg, err = config.LoadFile(configPath, cfg); err != nil {
				return err
			}
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger = newLogger(cfg.LogLevel)
		return cfg.Validate()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $CUTE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default $CUTE_LOG_LEVEL)")
	rootCmd.AddCommand(renderCmd, musicCmd, ideasCmd, serveCmd)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "[WARN] .env: %v\n", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
