package anthropic

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inkcast/internal/faults"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

var _ ports.FrameClassifier = (*Client)(nil)

const classifySystem = `You label single video frames for an illustrated essay.
Categories:
- slide: presentation slide with text or bullets
- chart: graph, plot, or data visualization
- code: source code or terminal output
- diagram: architecture, flow, or concept drawing
- key_moment: a visually meaningful moment tied to the discussion
- talking_head: a person talking to camera with nothing else of note
- transition: cuts, logos, blank or blurred filler
- advertisement: sponsor reads, product shots, promo overlays
- other: none of the above
Value is 0-5: how much the frame would help a reader of the essay.
Respond with only a JSON object: {"category": "...", "value": N, "description": "one sentence"}.`

var validCategories = map[string]bool{
	types.CategorySlide:       true,
	types.CategoryChart:       true,
	types.CategoryCode:        true,
	types.CategoryDiagram:     true,
	types.CategoryKeyMoment:   true,
	types.CategoryTalkingHead: true,
	types.CategoryTransition:  true,
	types.CategoryAd:          true,
	types.CategoryOther:       true,
}

// ClassifyFrame sends one frame image with nearby transcript text and returns
// its category and value. A response naming an unknown category is a
// validation error; the caller drops the frame and keeps going.
func (c *Client) ClassifyFrame(ctx context.Context, imagePath, transcriptContext, timestamp string) (types.Classification, error) {
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return types.Classification{}, faults.Wrap(faults.ErrMissingInput, "frames", "read frame", err)
	}

	prompt := fmt.Sprintf("Frame at %s.", timestamp)
	if strings.TrimSpace(transcriptContext) != "" {
		prompt += "\nWhat the speaker is saying around this moment:\n" + transcriptContext
	}

	blocks := []contentBlock{
		{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: mediaTypeFor(imagePath),
				Data:      base64.StdEncoding.EncodeToString(raw),
			},
		},
		textBlock(prompt),
	}

	text, err := c.complete(ctx, "frames", c.models.Classify, classifySystem, blocks, 512)
	if err != nil {
		return types.Classification{}, err
	}

	clean, err := extractJSONObject(text)
	if err != nil {
		return types.Classification{}, faults.Wrap(faults.ErrValidation, "frames", "classify", err)
	}
	var out types.Classification
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return types.Classification{}, faults.Wrap(faults.ErrValidation, "frames", "classify", err)
	}
	out.Category = strings.ToLower(strings.TrimSpace(out.Category))
	if !validCategories[out.Category] {
		return types.Classification{}, faults.Wrap(faults.ErrValidation, "frames", "classify",
			fmt.Errorf("unknown category %q", out.Category))
	}
	if out.Value < 0 {
		out.Value = 0
	}
	if out.Value > 5 {
		out.Value = 5
	}
	return out, nil
}

func mediaTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
