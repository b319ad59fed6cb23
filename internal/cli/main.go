// Package cli wires the command tree for the inkcast binary. Every command
// is resumable: pointing it at the same video continues from whatever
// artifacts already exist.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"inkcast/internal/media"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := &cobra.Command{
		Use:           "inkcast",
		Short:         "Turn spoken-word video into an illustrated essay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	root.PersistentFlags().String("config", "", "Path to TOML config file")
	root.PersistentFlags().String("workdir", "", "Work directory for run artifacts")
	root.PersistentFlags().String("cookies", "", "Cookies file for restricted videos")
	root.PersistentFlags().BoolP("verbose", "v", false, "Debug logging")

	root.AddCommand(runCmd())
	for _, sc := range stageCmds() {
		root.AddCommand(sc)
	}
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <url>",
		Short: "Run the whole pipeline: fetch through score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, args[0], "")
		},
	}
	cmd.Flags().Bool("force", false, "Rerun the final stage even if its outputs exist")
	cmd.Flags().Bool("embed", true, "Embed images in the final essay as base64 data URIs")
	return cmd
}

func stageCmds() []*cobra.Command {
	descriptions := map[string]string{
		"fetch":      "Download the video and its metadata",
		"transcript": "Produce the timestamped transcript",
		"sponsors":   "Detect sponsor segments and clean the transcript",
		"essay":      "Write the essay in the speaker's voice",
		"frames":     "Sample, deduplicate, classify, and filter video frames",
		"place":      "Place kept frames into the essay",
		"annotate":   "Number figures and weave in citations",
		"score":      "Grade the final essay against the transcript",
	}
	names := []string{"fetch", "transcript", "sponsors", "essay", "frames", "place", "annotate", "score"}

	out := make([]*cobra.Command, 0, len(names))
	for _, name := range names {
		cmd := &cobra.Command{
			Use:   name + " <url>",
			Short: descriptions[name],
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runStage(cmd, args[0], cmd.Name())
			},
		}
		cmd.Flags().Bool("force", false, "Rerun this stage even if its outputs exist")
		if name == "annotate" {
			cmd.Flags().Bool("embed", true, "Embed images in the final essay as base64 data URIs")
		}
		out = append(out, cmd)
	}
	return out
}

func runStage(cmd *cobra.Command, url, stageName string) error {
	videoID, err := media.ExtractID(url)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	p, _, err := buildPipeline(cmd)
	if err != nil {
		return err
	}
	if stageName == "" {
		stageName = p.FinalStage()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return p.Run(ctx, videoID, stageName, force)
}
