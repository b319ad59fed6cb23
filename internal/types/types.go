package types

import "time"

// Item identifies one source video and owns a directory of stage artifacts.
// Immutable once created.
type Item struct {
	ID        string    `json:"video_id"`
	URL       string    `json:"url"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker int     `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// SponsorRange marks a promotional span of the transcript in seconds.
type SponsorRange struct {
	Start  int    `json:"start_seconds"`
	End    int    `json:"end_seconds"`
	Reason string `json:"reason,omitempty"`
}

// Frame categories assigned by classification.
const (
	CategorySlide        = "slide"
	CategoryChart        = "chart"
	CategoryCode         = "code"
	CategoryDiagram      = "diagram"
	CategoryKeyMoment    = "key_moment"
	CategoryTalkingHead  = "talking_head"
	CategoryTransition   = "transition"
	CategoryAd           = "advertisement"
	CategoryOther        = "other"
	CategoryUnclassified = "unknown"
)

// Frame is one sampled still. Seconds is derived from the sample index and
// interval; PHash is a 64-bit perceptual fingerprint. Category and Value are
// filled in by classification and never mutated after filtering.
type Frame struct {
	Name        string `json:"frame"`
	Path        string `json:"file"`
	Seconds     int    `json:"seconds"`
	Timestamp   string `json:"timestamp"`
	PHash       uint64 `json:"-"`
	Category    string `json:"category,omitempty"`
	Value       int    `json:"value,omitempty"`
	Description string `json:"description,omitempty"`
}

// Classification is the result of one vision call for one frame.
type Classification struct {
	Category    string `json:"category"`
	Value       int    `json:"value"`
	Description string `json:"description"`
}

// PlacementPatch proposes inserting an image after the paragraph with the
// given stable index. Indices are assigned once and never renumbered.
type PlacementPatch struct {
	Paragraph int    `json:"paragraph"`
	Image     string `json:"image"`
	AltText   string `json:"alt_text"`
}

// CitationPatch weaves a figure reference into prose via exact find/replace.
// FindText must match the document exactly once at apply time.
type CitationPatch struct {
	Figure      int    `json:"figure"`
	FindText    string `json:"find_text"`
	ReplaceText string `json:"replace_text"`
}

// Figure is an image placed in the document, numbered in document order.
type Figure struct {
	Number  int    `json:"number"`
	AltText string `json:"alt_text"`
	Source  string `json:"source"`
}

// VideoMetadata is what the media fetcher learns about the source.
type VideoMetadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Channel     string `json:"channel"`
	Uploader    string `json:"uploader"`
	Duration    int    `json:"duration"`
}

// DimensionScore is one LLM-as-judge verdict for a single quality dimension.
type DimensionScore struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

// ScoreReport aggregates the per-dimension essay quality scores.
type ScoreReport struct {
	Overall    float64                   `json:"overall_score"`
	Dimensions map[string]DimensionScore `json:"dimensions"`
	Model      string                    `json:"model"`
}
