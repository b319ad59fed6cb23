package pipeline

import (
	"context"
	"os"

	"inkcast/internal/domain/transcript"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// sponsorsFile is the sponsors.json shape. Ranges is never null so an
// empty detection still produces a valid, skippable artifact.
type sponsorsFile struct {
	Ranges []types.SponsorRange `json:"ranges"`
}

// runSponsors detects promotional spans and writes both the range list and
// the cleaned transcript with those paragraphs removed.
func (p *Pipeline) runSponsors(ctx context.Context, it item) error {
	raw, err := os.ReadFile(it.path("transcript.txt"))
	if err != nil {
		return err
	}
	text := string(raw)

	var ranges []types.SponsorRange
	err = retry.Do(ctx, p.policy, "detect sponsors", func(ctx context.Context) error {
		var err error
		ranges, err = p.ports.Sponsors.DetectSponsors(ctx, text)
		return err
	})
	if err != nil {
		return err
	}
	if ranges == nil {
		ranges = []types.SponsorRange{}
	}
	p.log.Info("sponsor detection finished", "video", it.id, "ranges", len(ranges))

	if err := store.WriteJSON(it.path("sponsors.json"), sponsorsFile{Ranges: ranges}); err != nil {
		return err
	}
	clean := transcript.StripRanges(text, ranges)
	return store.WriteFile(it.path("transcript_clean.txt"), []byte(clean))
}

// readSponsors loads the detected ranges for downstream stages.
func (p *Pipeline) readSponsors(it item) ([]types.SponsorRange, error) {
	var f sponsorsFile
	if err := store.ReadJSON(it.path("sponsors.json"), &f); err != nil {
		return nil, err
	}
	return f.Ranges, nil
}
