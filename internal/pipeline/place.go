package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"inkcast/internal/domain/essaydoc"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// placementsFile records what the placement pass did, applied and rejected
// both, so a rerun or a human can audit it.
type placementsFile struct {
	Applied  []types.PlacementPatch `json:"applied"`
	Rejected []types.PlacementPatch `json:"rejected"`
}

// runPlace asks for placement patches against the indexed essay and applies
// them locally. The essay text itself never round-trips through the model;
// only patch records do.
func (p *Pipeline) runPlace(ctx context.Context, it item) error {
	raw, err := os.ReadFile(it.path("essay.md"))
	if err != nil {
		return err
	}
	doc := essaydoc.Split(string(raw))

	candidates, err := p.keptFrames(it)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		p.log.Info("no frames survived filtering, essay passes through", "video", it.id)
		if err := store.CopyFile(it.path("essay.md"), it.path("essay_with_images.md")); err != nil {
			return err
		}
		return store.WriteJSON(it.path("placements.json"), placementsFile{
			Applied:  []types.PlacementPatch{},
			Rejected: []types.PlacementPatch{},
		})
	}

	var patches []types.PlacementPatch
	err = retry.Do(ctx, p.policy, "placement patches", func(ctx context.Context) error {
		var err error
		patches, err = p.ports.Patcher.PlacementPatches(ctx, doc.Indexed(), candidates)
		return err
	})
	if err != nil {
		return err
	}

	// Patches name frames; the document needs image paths relative to the
	// essay file.
	for i := range patches {
		patches[i].Image = filepath.Join("frames", "kept", filepath.Base(patches[i].Image))
	}

	text, rejected := doc.ApplyPlacements(patches)
	applied := make([]types.PlacementPatch, 0, len(patches))
	for _, patch := range patches {
		if !containsPatch(rejected, patch) {
			applied = append(applied, patch)
		}
	}
	for _, r := range rejected {
		p.log.Warn("rejected out-of-range placement",
			"paragraph", r.Paragraph, "image", r.Image, "paragraphs", doc.Len())
	}
	p.log.Info("placed images", "video", it.id,
		"applied", len(applied), "rejected", len(rejected))

	if err := store.WriteFile(it.path("essay_with_images.md"), []byte(text)); err != nil {
		return err
	}
	if rejected == nil {
		rejected = []types.PlacementPatch{}
	}
	return store.WriteJSON(it.path("placements.json"), placementsFile{
		Applied:  applied,
		Rejected: rejected,
	})
}

// keptFrames loads the filtered frame records, pointing paths at the kept
// copies.
func (p *Pipeline) keptFrames(it item) ([]types.Frame, error) {
	var cf classificationsFile
	if err := store.ReadJSON(it.path(filepath.Join("frames", "classifications.json")), &cf); err != nil {
		return nil, err
	}
	keep := make(map[string]bool, len(cf.Kept))
	for _, name := range cf.Kept {
		keep[name] = true
	}
	out := make([]types.Frame, 0, len(cf.Kept))
	for _, f := range cf.Classified {
		if !keep[f.Name] {
			continue
		}
		f.Path = it.path(filepath.Join("frames", "kept", f.Name))
		out = append(out, f)
	}
	return out, nil
}

func containsPatch(list []types.PlacementPatch, p types.PlacementPatch) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}
