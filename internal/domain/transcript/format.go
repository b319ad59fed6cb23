package transcript

import (
	"fmt"
	"strings"

	"inkcast/internal/types"
)

// FormatDiarized renders diarized utterances as transcript text, grouping
// consecutive utterances by the same speaker into one block. With speaker
// names the blocks carry "**Name** [MM:SS]" headers; without, the output
// matches the plain "[MM:SS] text" caption format.
func FormatDiarized(segments []types.Segment, speakerNames map[int]string) string {
	if len(segments) == 0 {
		return ""
	}

	var blocks []string
	currentSpeaker := -1
	var texts []string
	var start float64

	flush := func() {
		if len(texts) == 0 {
			return
		}
		ts := FormatTimestamp(int(start))
		text := strings.Join(texts, " ")
		if speakerNames != nil {
			name, ok := speakerNames[currentSpeaker]
			if !ok {
				name = fmt.Sprintf("Speaker %d", currentSpeaker)
			}
			blocks = append(blocks, fmt.Sprintf("**%s** [%s]\n%s", name, ts, text))
		} else {
			blocks = append(blocks, fmt.Sprintf("[%s] %s", ts, text))
		}
		texts = nil
	}

	for _, seg := range segments {
		if seg.Speaker != currentSpeaker {
			flush()
			currentSpeaker = seg.Speaker
			start = seg.Start
		}
		texts = append(texts, seg.Text)
	}
	flush()

	return strings.Join(blocks, "\n\n")
}

// UniqueSpeakers counts distinct speaker ids in the utterance list.
func UniqueSpeakers(segments []types.Segment) int {
	seen := make(map[int]struct{})
	for _, s := range segments {
		seen[s.Speaker] = struct{}{}
	}
	return len(seen)
}
