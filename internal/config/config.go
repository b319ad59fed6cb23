// Package config loads the inkcast TOML configuration and applies documented
// defaults. API keys come from the environment so they never live in the
// config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Pipeline holds stage tuning knobs. Every numeric threshold the pipeline
// uses is configurable here; the defaults are the calibrated values.
type Pipeline struct {
	WorkDir               string   `toml:"work_dir"`
	SampleIntervalSeconds int      `toml:"sample_interval_seconds"`
	HammingThreshold      int      `toml:"hamming_threshold"`
	MinFrameValue         int      `toml:"min_frame_value"`
	SkipCategories        []string `toml:"skip_categories"`
	SponsorPaddingSeconds int      `toml:"sponsor_padding_seconds"`
	ContextWindowSeconds  int      `toml:"context_window_seconds"`
	CitationBatchSize     int      `toml:"citation_batch_size"`
	ClassifyConcurrency   int      `toml:"classify_concurrency"`
	ScoreConcurrency      int      `toml:"score_concurrency"`
	EmbedImages           bool     `toml:"embed_images"`
}

// Retry configures the shared backoff policy for external calls.
type Retry struct {
	MaxAttempts     int `toml:"max_attempts"`
	BaseDelaySecond int `toml:"base_delay_seconds"`
	MaxDelaySeconds int `toml:"max_delay_seconds"`
}

// Anthropic configures the vision/prose generation provider.
type Anthropic struct {
	APIKey        string `toml:"-"`
	BaseURL       string `toml:"base_url"`
	ClassifyModel string `toml:"classify_model"`
	EssayModel    string `toml:"essay_model"`
	PatchModel    string `toml:"patch_model"`
	ScoreModel    string `toml:"score_model"`
}

// Deepgram configures the transcription/diarization provider.
type Deepgram struct {
	APIKey  string `toml:"-"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Tools locates the external binaries the adapters shell out to.
type Tools struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	YtdlpPath  string `toml:"ytdlp_path"`
}

type Config struct {
	Pipeline  Pipeline  `toml:"pipeline"`
	Retry     Retry     `toml:"retry"`
	Anthropic Anthropic `toml:"anthropic"`
	Deepgram  Deepgram  `toml:"deepgram"`
	Tools     Tools     `toml:"tools"`
}

// Default returns the configuration with all documented defaults applied.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			WorkDir:               "runs",
			SampleIntervalSeconds: 5,
			HammingThreshold:      8,
			MinFrameValue:         3,
			SkipCategories:        []string{"talking_head", "transition", "advertisement"},
			SponsorPaddingSeconds: 5,
			ContextWindowSeconds:  15,
			CitationBatchSize:     5,
			ClassifyConcurrency:   4,
			ScoreConcurrency:      5,
			EmbedImages:           true,
		},
		Retry: Retry{
			MaxAttempts:     5,
			BaseDelaySecond: 1,
			MaxDelaySeconds: 30,
		},
		Anthropic: Anthropic{
			BaseURL:       "https://api.anthropic.com",
			ClassifyModel: "claude-haiku-4-5-20251001",
			EssayModel:    "claude-sonnet-4-5-20250929",
			PatchModel:    "claude-sonnet-4-5-20250929",
			ScoreModel:    "claude-sonnet-4-5-20250929",
		},
		Deepgram: Deepgram{
			BaseURL: "https://api.deepgram.com",
			Model:   "nova-3",
		},
		Tools: Tools{
			FFmpegPath: "ffmpeg",
			YtdlpPath:  "yt-dlp",
		},
	}
}

// Load reads a TOML config file on top of the defaults. An empty path skips
// the file and returns the defaults; a path that does not exist is an error.
// Environment variables supply the API keys.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s: %w", path, err)
			}
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Deepgram.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	return cfg, nil
}

// Validate rejects values the pipeline cannot operate with.
func (c Config) Validate() error {
	p := c.Pipeline
	if p.WorkDir == "" {
		return errors.New("pipeline.work_dir is empty")
	}
	if p.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("pipeline.sample_interval_seconds must be > 0, got %d", p.SampleIntervalSeconds)
	}
	if p.HammingThreshold < 0 || p.HammingThreshold > 64 {
		return fmt.Errorf("pipeline.hamming_threshold must be in [0,64], got %d", p.HammingThreshold)
	}
	if p.MinFrameValue < 0 || p.MinFrameValue > 5 {
		return fmt.Errorf("pipeline.min_frame_value must be in [0,5], got %d", p.MinFrameValue)
	}
	if p.CitationBatchSize <= 0 {
		return fmt.Errorf("pipeline.citation_batch_size must be > 0, got %d", p.CitationBatchSize)
	}
	if p.ClassifyConcurrency <= 0 || p.ScoreConcurrency <= 0 {
		return errors.New("pipeline concurrency limits must be > 0")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelaySecond <= 0 {
		return fmt.Errorf("retry.base_delay_seconds must be > 0, got %d", c.Retry.BaseDelaySecond)
	}
	if c.Retry.MaxDelaySeconds < c.Retry.BaseDelaySecond {
		return errors.New("retry.max_delay_seconds must be >= retry.base_delay_seconds")
	}
	return nil
}

// RetryBase returns the configured base backoff delay.
func (c Config) RetryBase() time.Duration {
	return time.Duration(c.Retry.BaseDelaySecond) * time.Second
}

// RetryMax returns the configured backoff cap.
func (c Config) RetryMax() time.Duration {
	return time.Duration(c.Retry.MaxDelaySeconds) * time.Second
}
