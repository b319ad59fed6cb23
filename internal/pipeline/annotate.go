package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"inkcast/internal/domain/essaydoc"
	"inkcast/internal/faults"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// citationsFile records which citation patches landed and which were rejected
// by the exact-match check.
type citationsFile struct {
	Applied  []types.CitationPatch `json:"applied"`
	Rejected []types.CitationPatch `json:"rejected"`
	Figures  []types.Figure        `json:"figures"`
	Uncited  []int                 `json:"uncited"`
}

// runAnnotate numbers the placed figures, weaves citation references into the
// prose in small batches, and emits the final essay. Each batch sees the
// document as updated by the previous batch, so find_text stays anchored.
func (p *Pipeline) runAnnotate(ctx context.Context, it item) error {
	raw, err := os.ReadFile(it.path("essay_with_images.md"))
	if err != nil {
		return err
	}

	text, figures := essaydoc.NumberFigures(string(raw))
	applied := []types.CitationPatch{}
	rejected := []types.CitationPatch{}

	for _, batch := range essaydoc.Batches(figures, p.cfg.Pipeline.CitationBatchSize) {
		var patches []types.CitationPatch
		err := retry.Do(ctx, p.policy, "citation patches", func(ctx context.Context) error {
			var err error
			patches, err = p.ports.Patcher.CitationPatches(ctx, text, batch)
			return err
		})
		if err != nil {
			return err
		}
		for _, patch := range patches {
			updated, err := essaydoc.ApplyCitation(text, patch)
			if err != nil {
				if !errors.Is(err, faults.ErrValidation) {
					return err
				}
				p.log.Warn("rejected citation patch", "figure", patch.Figure, "error", err)
				rejected = append(rejected, patch)
				continue
			}
			text = updated
			applied = append(applied, patch)
		}
	}
	uncited := []int{}
	for _, fig := range figures {
		if essaydoc.CountFigureRefs(text, fig.Number) == 0 {
			uncited = append(uncited, fig.Number)
		}
	}
	if len(uncited) > 0 {
		p.log.Warn("figures never referenced in prose", "video", it.id, "figures", uncited)
	}
	p.log.Info("annotated essay", "video", it.id,
		"figures", len(figures), "applied", len(applied), "rejected", len(rejected))

	if p.cfg.Pipeline.EmbedImages && len(figures) > 0 {
		text = essaydoc.EmbedImages(text, it.path(filepath.Join("frames", "kept")))
	}

	if err := store.WriteFile(it.path("essay_final.md"), []byte(text)); err != nil {
		return err
	}
	if figures == nil {
		figures = []types.Figure{}
	}
	return store.WriteJSON(it.path("citations.json"), citationsFile{
		Applied:  applied,
		Rejected: rejected,
		Figures:  figures,
		Uncited:  uncited,
	})
}
