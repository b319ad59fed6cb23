package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"inkcast/internal/faults"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

var _ ports.PatchGenerator = (*Client)(nil)

const placementSystem = `You place images into an essay. The essay paragraphs
are numbered [0], [1], ... and those numbers are fixed. For each image worth
using, pick the paragraph whose content it illustrates. Not every image needs
a home; skip ones that fit nowhere. Never place two images after the same
paragraph unless both clearly belong there.
Respond with only a JSON object:
{"placements": [{"paragraph": N, "image": "<file name>", "alt_text": "..."}]}`

// PlacementPatches asks where the candidate frames belong in the indexed
// essay. The response is returned in model order; the caller validates
// indices against the real document.
func (c *Client) PlacementPatches(ctx context.Context, indexedDoc string, candidates []types.Frame) ([]types.PlacementPatch, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("Images:\n")
	for _, f := range candidates {
		fmt.Fprintf(&b, "- %s (%s at %s, value %d): %s\n",
			f.Name, f.Category, f.Timestamp, f.Value, f.Description)
	}
	b.WriteString("\nEssay:\n")
	b.WriteString(indexedDoc)

	text, err := c.complete(ctx, "place", c.models.Patch, placementSystem,
		[]contentBlock{textBlock(b.String())}, 4096)
	if err != nil {
		return nil, err
	}
	clean, err := extractJSONObject(text)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "place", "parse placements", err)
	}
	var out struct {
		Placements []types.PlacementPatch `json:"placements"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "place", "parse placements", err)
	}

	known := make(map[string]bool, len(candidates))
	for _, f := range candidates {
		known[f.Name] = true
	}
	patches := make([]types.PlacementPatch, 0, len(out.Placements))
	for _, p := range out.Placements {
		if !known[p.Image] {
			continue
		}
		patches = append(patches, p)
	}
	return patches, nil
}

const citationSystem = `You weave figure references into essay prose. For each
figure, find one sentence in the essay that the figure supports and rewrite it
to mention the figure naturally, e.g. "... (see Figure 3)" or "as Figure 3
shows, ...". find_text must be copied verbatim from the essay and must occur
exactly once; replace_text is the rewritten sentence. Skip figures with no
natural home.
Respond with only a JSON object:
{"citations": [{"figure": N, "find_text": "...", "replace_text": "..."}]}`

// CitationPatches proposes find/replace edits referencing the given figures.
// Figures are sent in small batches so find_text stays anchored to the
// current document text.
func (c *Client) CitationPatches(ctx context.Context, document string, batch []types.Figure) ([]types.CitationPatch, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("Figures:\n")
	for _, f := range batch {
		fmt.Fprintf(&b, "- Figure %d: %s\n", f.Number, f.AltText)
	}
	b.WriteString("\nEssay:\n")
	b.WriteString(document)

	text, err := c.complete(ctx, "annotate", c.models.Patch, citationSystem,
		[]contentBlock{textBlock(b.String())}, 4096)
	if err != nil {
		return nil, err
	}
	clean, err := extractJSONObject(text)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "annotate", "parse citations", err)
	}
	var out struct {
		Citations []types.CitationPatch `json:"citations"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "annotate", "parse citations", err)
	}

	patches := make([]types.CitationPatch, 0, len(out.Citations))
	for _, p := range out.Citations {
		if strings.TrimSpace(p.FindText) == "" || strings.TrimSpace(p.ReplaceText) == "" {
			continue
		}
		patches = append(patches, p)
	}
	return patches, nil
}
