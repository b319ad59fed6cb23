package pipeline

import (
	"context"
	"os"

	"inkcast/internal/retry"
	"inkcast/internal/store"
)

// runEssay distills the speaker's voice into a style profile, then writes the
// essay in that voice. The profile is its own artifact so a run that crashed
// between the two calls resumes without repeating the first.
func (p *Pipeline) runEssay(ctx context.Context, it item) error {
	raw, err := os.ReadFile(it.path("transcript_clean.txt"))
	if err != nil {
		return err
	}
	text := string(raw)

	profilePath := it.path("style_profile.txt")
	var profile string
	if store.OutputValid(profilePath) {
		b, err := os.ReadFile(profilePath)
		if err != nil {
			return err
		}
		profile = string(b)
	} else {
		err = retry.Do(ctx, p.policy, "style profile", func(ctx context.Context) error {
			var err error
			profile, err = p.ports.Essayist.StyleProfile(ctx, text)
			return err
		})
		if err != nil {
			return err
		}
		if err := store.WriteFile(profilePath, []byte(profile)); err != nil {
			return err
		}
	}

	var essay string
	err = retry.Do(ctx, p.policy, "write essay", func(ctx context.Context) error {
		var err error
		essay, err = p.ports.Essayist.WriteEssay(ctx, text, profile)
		return err
	})
	if err != nil {
		return err
	}
	p.log.Info("essay written", "video", it.id, "bytes", len(essay))
	return store.WriteFile(it.path("essay.md"), []byte(essay))
}
