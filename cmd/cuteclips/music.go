package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuteclips/internal/music"
)

var musicFlags struct {
	style    string
	duration float64
	seed     uint64
	out      string
	script   string
	list     bool
}

var musicCmd = &cobra.Command{
	Use:   "music",
	Short: "Synthesize a soundtrack to a WAV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if musicFlags.list {
			return listStyles(cmd)
		}

		name := cfg.MusicStyle
		if cmd.Flags().Changed("style") {
			name = musicFlags.style
		}
		style, err := music.ParseStyle(name)
		if err != nil {
			logger.Warn().Err(err).Str("using", style.String()).Msg("unknown style")
		}
		duration := cfg.Duration
		if cmd.Flags().Changed("duration") {
			duration = musicFlags.duration
		}
		seed := musicFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}

		track := music.NewSynthesizer(cfg.SampleRate, seed).Synthesize(style.Profile(), duration)
		if musicFlags.script != "" {
			if track, err = music.WithNarration(track, music.VoiceCue(musicFlags.script, cfg.SampleRate)); err != nil {
				return err
			}
		}
		if err := track.WriteWAV(musicFlags.out); err != nil {
			return err
		}
		logger.Info().
			Str("style", style.String()).
			Uint64("seed", seed).
			Dur("duration", track.Duration()).
			Msg("soundtrack written")
		fmt.Fprintln(cmd.OutOrStdout(), musicFlags.out)
		return nil
	},
}

func init() {
	f := musicCmd.Flags()
	f.StringVar(&musicFlags.style, "style", "", "music style (default $CUTE_MUSIC_STYLE)")
	f.Float64Var(&musicFlags.duration, "duration", 0, "seconds (default $CUTE_DURATION)")
	f.Uint64Var(&musicFlags.seed, "seed", 0, "synthesis seed (default: time based)")
	f.StringVarP(&musicFlags.out, "out", "o", "soundtrack.wav", "output WAV path")
	f.StringVar(&musicFlags.script, "script", "", "lay a narration cue for this script over the music")
	f.BoolVar(&musicFlags.list, "list", false, "list styles and exit")
}

func listStyles(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STYLE\tKEY\tBPM\tMOOD\tPROGRESSION")
	for _, s := range music.Styles() {
		p := s.Profile()
		key := p.Key
		if p.Minor {
			key += " minor"
		}
		chords := make([]string, len(p.Progression))
		for i, c := range p.Progression {
			chords[i] = c.Symbol
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s, key, p.Tempo, p.Mood, strings.Join(chords, " "))
	}
	return w.Flush()
}
