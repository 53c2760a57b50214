package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/cuteclips/internal/content"
	"github.com/satindergrewal/cuteclips/internal/ollama"
)

var ideasFlags struct {
	count    int
	category string
	seed     uint64
}

var ideasCmd = &cobra.Command{
	Use:   "ideas",
	Short: "Print video ideas as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ideasFlags.count < 0 {
			return fmt.Errorf("--count must not be negative, got %d", ideasFlags.count)
		}
		seed := ideasFlags.seed
		if !cmd.Flags().Changed("seed") {
			seed = uint64(time.Now().UnixNano())
		}
		gen := content.NewGenerator(logger, seed, cfg.Duration)
		attachWriter(cmd.Context(), gen)

		ideas := gen.Generate(cmd.Context(), ideasFlags.count, ideasFlags.category)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ideas)
	},
}

func init() {
	f := ideasCmd.Flags()
	f.IntVarP(&ideasFlags.count, "count", "n", 3, "number of ideas")
	f.StringVar(&ideasFlags.category, "category", content.CuteAnimals, "one of cute_animals, funny_pets, heartwarming_stories")
	f.Uint64Var(&ideasFlags.seed, "seed", 0, "template seed (default: time based)")
}

func newOllama() *ollama.Client {
	return ollama.NewClient(logger, cfg.OllamaURL, cfg.OllamaModel)
}

func newIdeaWriter(c *ollama.Client) *ollama.IdeaWriter {
	return ollama.NewIdeaWriter(c)
}
