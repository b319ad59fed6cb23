// Package essaydoc applies position-addressed patches to a markdown essay.
// The essay is never re-emitted through a generator: images and citations are
// inserted locally against stable paragraph indices and exact text matches,
// so document length never hits any external call's output limit.
package essaydoc

import (
	"fmt"
	"strings"

	"inkcast/internal/faults"
	"inkcast/internal/types"
)

// Document is an ordered sequence of paragraph units. Indices are assigned
// once at construction and never renumbered, even as insertions happen, so a
// patch issued against an index mid-batch can never go stale.
type Document struct {
	paras []string
}

// Split breaks markdown text into paragraph units on blank lines.
func Split(text string) *Document {
	var paras []string
	for _, p := range strings.Split(strings.TrimSpace(text), "\n\n") {
		p = strings.TrimRight(p, "\n ")
		if strings.TrimSpace(p) == "" {
			continue
		}
		paras = append(paras, p)
	}
	return &Document{paras: paras}
}

// Len returns the paragraph count.
func (d *Document) Len() int { return len(d.paras) }

// Paragraph returns the unit at a stable index.
func (d *Document) Paragraph(i int) string { return d.paras[i] }

// Indexed renders the paragraphs with their stable indices for a placement
// prompt, one "[N] text" block per paragraph.
func (d *Document) Indexed() string {
	var b strings.Builder
	for i, p := range d.paras {
		fmt.Fprintf(&b, "[%d] %s\n\n", i, p)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ApplyPlacements inserts image lines in a single deterministic pass over the
// original paragraph sequence. Each patch inserts after its target paragraph;
// patches sharing a target apply in the order received. Out-of-range patches
// are reported back, never applied, and never abort the pass.
func (d *Document) ApplyPlacements(patches []types.PlacementPatch) (string, []types.PlacementPatch) {
	byPara := make(map[int][]types.PlacementPatch)
	var rejected []types.PlacementPatch
	for _, p := range patches {
		if p.Paragraph < 0 || p.Paragraph >= len(d.paras) {
			rejected = append(rejected, p)
			continue
		}
		byPara[p.Paragraph] = append(byPara[p.Paragraph], p)
	}

	var out []string
	for i, para := range d.paras {
		out = append(out, para)
		for _, p := range byPara[i] {
			out = append(out, fmt.Sprintf("![%s](%s)", p.AltText, p.Image))
		}
	}
	return strings.Join(out, "\n\n") + "\n", rejected
}

// ApplyCitation replaces a patch's FindText with its ReplaceText. The match
// must be exact and unique at apply time; zero or multiple occurrences reject
// the patch (the document is returned unchanged) rather than risk touching
// unrelated prose.
func ApplyCitation(text string, patch types.CitationPatch) (string, error) {
	find := patch.FindText
	if strings.TrimSpace(find) == "" {
		return text, faults.Wrap(faults.ErrValidation, "annotate",
			fmt.Sprintf("figure %d: empty find_text", patch.Figure), nil)
	}
	switch n := strings.Count(text, find); n {
	case 1:
		return strings.Replace(text, find, patch.ReplaceText, 1), nil
	case 0:
		return text, faults.Wrap(faults.ErrValidation, "annotate",
			fmt.Sprintf("figure %d: find_text not found", patch.Figure), nil)
	default:
		return text, faults.Wrap(faults.ErrValidation, "annotate",
			fmt.Sprintf("figure %d: find_text matches %d times", patch.Figure, n), nil)
	}
}

// Batches splits figures into fixed-size groups to bound per-call context.
func Batches(figures []types.Figure, size int) [][]types.Figure {
	if size <= 0 {
		size = 1
	}
	var out [][]types.Figure
	for start := 0; start < len(figures); start += size {
		end := start + size
		if end > len(figures) {
			end = len(figures)
		}
		out = append(out, figures[start:end])
	}
	return out
}
