package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"inkcast/internal/faults"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

var _ ports.EssayScorer = (*Client)(nil)

var dimensionRubrics = map[string]string{
	"faithfulness":    "Can every claim in the essay be traced back to the transcript? 1: majority of claims have no transcript basis. 7: nearly all claims traceable, minor gaps. 10: every claim directly supported.",
	"proportionality": "Does the essay allocate space proportionally to how much airtime each topic received? 1: major topics omitted or minor topics dominate. 10: essay space mirrors transcript airtime.",
	"embellishment":   "Does the essay add analysis, conclusions, or interpretive framing not present in the transcript? 1: heavy editorializing throughout. 10: zero added analysis, purely reports what was said.",
	"hallucination":   "Does the essay contain fabricated facts, names, numbers, or specifics not in the transcript? Only flag claims with NO transcript basis; do not fact-check against world knowledge. 10: every specific is in the transcript.",
	"tone":            "Does the essay sound like the speaker, or has it been over-formalized? 1: completely different voice. 10: reads as if the speaker wrote it themselves.",
}

const scoreSystem = `You are a strict quality judge comparing an essay against
its source transcript, on one dimension at a time. Score 1-10 where 10 is
flawless on that dimension.
Respond with only a JSON object: {"score": N, "rationale": "2-3 sentences"}.`

// ScoreDimension grades the essay on one quality dimension against its
// source transcript.
func (c *Client) ScoreDimension(ctx context.Context, transcript, essay, dimension string) (types.DimensionScore, error) {
	rubric, ok := dimensionRubrics[dimension]
	if !ok {
		return types.DimensionScore{}, faults.Wrap(faults.ErrValidation, "score", "dimension",
			fmt.Errorf("unknown dimension %q", dimension))
	}

	prompt := fmt.Sprintf("Dimension: %s\n%s\n\nTranscript:\n%s\n\nEssay:\n%s",
		dimension, rubric, transcript, essay)

	text, err := c.complete(ctx, "score", c.models.Score, scoreSystem,
		[]contentBlock{textBlock(prompt)}, 1024)
	if err != nil {
		return types.DimensionScore{}, err
	}
	clean, err := extractJSONObject(text)
	if err != nil {
		return types.DimensionScore{}, faults.Wrap(faults.ErrValidation, "score", "parse verdict", err)
	}
	var out types.DimensionScore
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return types.DimensionScore{}, faults.Wrap(faults.ErrValidation, "score", "parse verdict", err)
	}
	if out.Score < 1 || out.Score > 10 {
		return types.DimensionScore{}, faults.Wrap(faults.ErrValidation, "score", "verdict",
			fmt.Errorf("score %d out of range", out.Score))
	}
	return out, nil
}
