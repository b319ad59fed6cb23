// Package ports declares the narrow contracts the pipeline needs from its
// external collaborators. The core depends only on these interfaces; adapters
// live in ports/adapters.
package ports

import (
	"context"

	"inkcast/internal/types"
)

// MediaFetcher acquires the source video and its metadata.
type MediaFetcher interface {
	Download(ctx context.Context, videoID, destDir string) (string, error)
	Metadata(ctx context.Context, videoID string) (types.VideoMetadata, error)
}

// CaptionFetcher retrieves the published captions as timestamped transcript
// text, without downloading the video.
type CaptionFetcher interface {
	FetchCaptions(ctx context.Context, videoID string) (string, error)
}

// MediaTool shells out for local audio/frame extraction.
type MediaTool interface {
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	SampleFrames(ctx context.Context, videoPath, outDir string, intervalSeconds int) ([]string, error)
}

// Diarizer transcribes audio with speaker labels.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]types.Segment, error)
}

// SpeakerNamer maps numeric speaker ids to real names using video metadata
// and conversational context.
type SpeakerNamer interface {
	NameSpeakers(ctx context.Context, segments []types.Segment, meta types.VideoMetadata) (map[int]string, error)
}

// SponsorDetector finds promotional spans in a timestamped transcript.
type SponsorDetector interface {
	DetectSponsors(ctx context.Context, transcript string) ([]types.SponsorRange, error)
}

// EssayWriter turns a transcript into prose in the speaker's voice.
type EssayWriter interface {
	StyleProfile(ctx context.Context, transcript string) (string, error)
	WriteEssay(ctx context.Context, transcript, styleProfile string) (string, error)
}

// FrameClassifier assigns a category and informational value to one frame,
// given nearby transcript text as context.
type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, imagePath, transcriptContext, timestamp string) (types.Classification, error)
}

// PatchGenerator proposes structural edits as patch records, never a
// rewritten document.
type PatchGenerator interface {
	PlacementPatches(ctx context.Context, indexedDoc string, candidates []types.Frame) ([]types.PlacementPatch, error)
	CitationPatches(ctx context.Context, document string, batch []types.Figure) ([]types.CitationPatch, error)
}

// EssayScorer judges one quality dimension of the essay against its source.
type EssayScorer interface {
	ScoreDimension(ctx context.Context, transcript, essay, dimension string) (types.DimensionScore, error)
}
