package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"inkcast/internal/domain/transcript"
	"inkcast/internal/faults"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

var (
	_ ports.SponsorDetector = (*Client)(nil)
	_ ports.EssayWriter     = (*Client)(nil)
	_ ports.SpeakerNamer    = (*Client)(nil)
)

const sponsorSystem = `You find sponsored segments in a timestamped transcript.
A sponsored segment is a paid promotion: sponsor reads, discount codes,
"this video is brought to you by", affiliate plugs, channel merch pitches.
Mentions of products as part of the actual discussion do not count.
Respond with only a JSON object:
{"sponsors": [{"start_seconds": N, "end_seconds": N, "reason": "..."}]}
Use an empty list when there are none.`

// DetectSponsors returns promotional time ranges found in the transcript,
// sorted by start. An empty transcript yields no ranges without an API call.
func (c *Client) DetectSponsors(ctx context.Context, transcriptText string) ([]types.SponsorRange, error) {
	if strings.TrimSpace(transcriptText) == "" {
		return nil, nil
	}
	text, err := c.complete(ctx, "sponsors", c.models.Essay, sponsorSystem,
		[]contentBlock{textBlock(transcriptText)}, 2048)
	if err != nil {
		return nil, err
	}
	clean, err := extractJSONObject(text)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "sponsors", "parse response", err)
	}
	var out struct {
		Sponsors []types.SponsorRange `json:"sponsors"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "sponsors", "parse response", err)
	}
	ranges := out.Sponsors[:0]
	for _, r := range out.Sponsors {
		if r.End > r.Start && r.Start >= 0 {
			ranges = append(ranges, r)
		}
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
	return ranges, nil
}

const styleSystem = `You analyze how a speaker talks. From the transcript,
describe their voice in a compact profile a ghostwriter could follow:
vocabulary level, sentence rhythm, favorite constructions, tone, how they
build arguments, recurring verbal habits worth keeping and tics worth
dropping. Plain prose, no headings, at most 300 words.`

// StyleProfile distills the speaker's voice from the transcript so the essay
// can be written in it.
func (c *Client) StyleProfile(ctx context.Context, transcriptText string) (string, error) {
	return c.complete(ctx, "essay", c.models.Essay, styleSystem,
		[]contentBlock{textBlock(transcriptText)}, 1024)
}

const essaySystem = `You turn a spoken-word transcript into a polished written
essay in the speaker's own voice. Keep every substantive idea and argument;
drop filler, greetings, asides to the audience, and housekeeping. Restructure
freely for written flow. Write in markdown: a # title, then paragraphs
separated by blank lines. No timestamps, no speaker labels, no meta-commentary
about the video or the conversion.`

const essayMultiSystem = essaySystem + `
The transcript has multiple speakers. Write the essay from the host's
perspective, weaving in the guest's points as reported insight with
attribution where it matters.`

// WriteEssay produces the essay markdown. A diarized transcript switches to
// the multi-speaker framing.
func (c *Client) WriteEssay(ctx context.Context, transcriptText, styleProfile string) (string, error) {
	system := essaySystem
	if transcript.IsMultiSpeaker(transcriptText) {
		system = essayMultiSystem
	}
	if strings.TrimSpace(styleProfile) != "" {
		system += "\n\nVoice profile to write in:\n" + styleProfile
	}
	return c.complete(ctx, "essay", c.models.Essay, system,
		[]contentBlock{textBlock(transcriptText)}, 32000)
}

const namerSystem = `You identify who the numbered speakers in a diarized
transcript are, using the video title, description, and what the speakers say.
Respond with only a JSON object mapping speaker numbers to short real names,
e.g. {"speakers": {"0": "Lex Fridman", "1": "Guest Name"}}. If a speaker
cannot be identified, use a role like "Host" or "Guest".`

// NameSpeakers resolves diarization speaker ids to display names. Only the
// opening portion of the transcript is sent; introductions happen early.
func (c *Client) NameSpeakers(ctx context.Context, segments []types.Segment, meta types.VideoMetadata) (map[int]string, error) {
	sample := transcript.FormatDiarized(segments, fallbackNames(segments))
	sample = truncate(sample, 8000)

	prompt := fmt.Sprintf("Title: %s\nChannel: %s\nDescription: %s\n\nTranscript opening:\n%s",
		meta.Title, meta.Channel, truncate(meta.Description, 2000), sample)

	text, err := c.complete(ctx, "transcript", c.models.Essay, namerSystem,
		[]contentBlock{textBlock(prompt)}, 512)
	if err != nil {
		return nil, err
	}
	clean, err := extractJSONObject(text)
	if err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "transcript", "name speakers", err)
	}
	var out struct {
		Speakers map[string]string `json:"speakers"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, faults.Wrap(faults.ErrValidation, "transcript", "name speakers", err)
	}

	names := make(map[int]string, len(out.Speakers))
	for k, v := range out.Speakers {
		id, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || strings.TrimSpace(v) == "" {
			continue
		}
		names[id] = strings.TrimSpace(v)
	}
	if len(names) == 0 {
		return fallbackNames(segments), nil
	}
	return names, nil
}

func fallbackNames(segments []types.Segment) map[int]string {
	names := make(map[int]string)
	for _, s := range segments {
		if _, ok := names[s.Speaker]; !ok {
			names[s.Speaker] = fmt.Sprintf("Speaker %d", s.Speaker)
		}
	}
	return names
}
