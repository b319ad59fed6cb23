package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"inkcast/internal/config"
	"inkcast/internal/logging"
	"inkcast/internal/pipeline"
	"inkcast/internal/ports/adapters/anthropic"
	"inkcast/internal/ports/adapters/deepgram"
	"inkcast/internal/ports/adapters/ffmpeg"
	"inkcast/internal/ports/adapters/ytdlp"
	"inkcast/internal/store"
)

// buildPipeline assembles the real pipeline from config, flags, and
// environment.
func buildPipeline(cmd *cobra.Command) (*pipeline.Pipeline, config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	workDir, _ := cmd.Flags().GetString("workdir")
	cookies, _ := cmd.Flags().GetString("cookies")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	if workDir != "" {
		cfg.Pipeline.WorkDir = workDir
	}
	if f := cmd.Flags().Lookup("embed"); f != nil && f.Changed {
		embed, _ := cmd.Flags().GetBool("embed")
		cfg.Pipeline.EmbedImages = embed
	}
	if err := cfg.Validate(); err != nil {
		return nil, config.Config{}, fmt.Errorf("config: %w", err)
	}

	log := logging.New(os.Stderr, verbose)
	st := store.New(cfg.Pipeline.WorkDir)

	llm := anthropic.New(cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, anthropic.Models{
		Classify: cfg.Anthropic.ClassifyModel,
		Essay:    cfg.Anthropic.EssayModel,
		Patch:    cfg.Anthropic.PatchModel,
		Score:    cfg.Anthropic.ScoreModel,
	})
	fetcher := ytdlp.New(cfg.Tools.YtdlpPath, cookies)

	p := pipeline.New(cfg, st, log, pipeline.Ports{
		Fetcher:    fetcher,
		Captions:   fetcher,
		Media:      ffmpeg.New(cfg.Tools.FFmpegPath),
		Diarizer:   deepgram.New(cfg.Deepgram.APIKey, cfg.Deepgram.Model, cfg.Deepgram.BaseURL),
		Namer:      llm,
		Sponsors:   llm,
		Essayist:   llm,
		Classifier: llm,
		Patcher:    llm,
		Scorer:     llm,
		ScoreModel: cfg.Anthropic.ScoreModel,
	})
	return p, cfg, nil
}
