package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inkcast/internal/domain/transcript"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// runTranscript produces transcript.txt. Published captions are the cheap
// path; when the video has none, the stage pulls in the fetch chain, extracts
// audio, and falls back to diarized transcription with resolved speaker
// names.
func (p *Pipeline) runTranscript(ctx context.Context, it item) error {
	var captions string
	err := retry.Do(ctx, p.policy, "fetch captions", func(ctx context.Context) error {
		var err error
		captions, err = p.ports.Captions.FetchCaptions(ctx, it.id)
		return err
	})
	if err == nil && strings.TrimSpace(captions) != "" {
		p.log.Info("using published captions", "video", it.id)
		return store.WriteFile(it.path("transcript.txt"), []byte(captions))
	}
	if err != nil {
		p.log.Warn("captions unavailable, falling back to diarization",
			"video", it.id, "error", err)
	}

	if err := p.ensure(ctx, it, "fetch"); err != nil {
		return err
	}
	videoPath, err := store.FindVideo(it.dir)
	if err != nil {
		return err
	}

	audioPath := it.path("audio.mp3")
	if !store.OutputValid(audioPath) {
		if err := p.ports.Media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
			return err
		}
	}

	var segments []types.Segment
	err = retry.Do(ctx, p.policy, "diarize", func(ctx context.Context) error {
		var err error
		segments, err = p.ports.Diarizer.Diarize(ctx, audioPath)
		return err
	})
	if err != nil {
		return err
	}

	var names map[int]string
	if transcript.UniqueSpeakers(segments) > 1 {
		var meta types.VideoMetadata
		if err := store.ReadJSON(it.path("metadata.json"), &meta); err != nil {
			return err
		}
		err = retry.Do(ctx, p.policy, "name speakers", func(ctx context.Context) error {
			var err error
			names, err = p.ports.Namer.NameSpeakers(ctx, segments, meta)
			return err
		})
		if err != nil {
			p.log.Warn("speaker naming failed, using numeric labels",
				"video", it.id, "error", err)
			names = numericNames(segments)
		}
	}

	text := transcript.FormatDiarized(segments, names)
	if strings.TrimSpace(text) == "" {
		return errors.New("diarization produced an empty transcript")
	}
	p.log.Info("diarized transcript ready", "video", it.id,
		"speakers", transcript.Speakers(text))
	return store.WriteFile(it.path("transcript.txt"), []byte(text))
}

func numericNames(segments []types.Segment) map[int]string {
	names := make(map[int]string)
	for _, s := range segments {
		if _, ok := names[s.Speaker]; !ok {
			names[s.Speaker] = fmt.Sprintf("Speaker %d", s.Speaker)
		}
	}
	return names
}
