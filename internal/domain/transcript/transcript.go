// Package transcript parses and slices the timestamped transcript format
// shared by the transcript, sponsors, essay, and frames stages.
//
// Single-speaker transcripts are "[MM:SS] text" paragraphs separated by blank
// lines. Diarized transcripts prefix each paragraph with a bold speaker name:
// "**Name** [MM:SS]" followed by the text.
package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"inkcast/internal/types"
)

// Entry is one timestamped line of transcript text.
type Entry struct {
	Seconds int
	Text    string
}

var (
	lineRE    = regexp.MustCompile(`\[(\d+):(\d{2})\]\s*(.*)`)
	speakerRE = regexp.MustCompile(`(?m)^\*\*([^*]+)\*\*\s*\[`)
)

// Parse extracts (seconds, text) entries from a timestamped transcript.
// Lines without a timestamp are ignored.
func Parse(text string) []Entry {
	var out []Entry
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		out = append(out, Entry{Seconds: mins*60 + secs, Text: m[3]})
	}
	return out
}

// Context returns the transcript text within ±window seconds of a timestamp,
// joined with spaces. Empty when nothing is nearby.
func Context(entries []Entry, seconds, window int) string {
	var parts []string
	for _, e := range entries {
		d := e.Seconds - seconds
		if d < 0 {
			d = -d
		}
		if d <= window {
			parts = append(parts, e.Text)
		}
	}
	return strings.Join(parts, " ")
}

// StripRanges removes transcript paragraphs whose leading timestamp falls
// inside any of the given ranges. Paragraphs without a timestamp are kept.
func StripRanges(text string, ranges []types.SponsorRange) string {
	if len(ranges) == 0 {
		return text
	}
	var kept []string
	for _, para := range strings.Split(text, "\n\n") {
		m := lineRE.FindStringSubmatch(para)
		if m == nil {
			kept = append(kept, para)
			continue
		}
		mins, _ := strconv.Atoi(m[1])
		secs, _ := strconv.Atoi(m[2])
		at := mins*60 + secs
		inRange := false
		for _, r := range ranges {
			if r.Start <= at && at <= r.End {
				inRange = true
				break
			}
		}
		if !inRange {
			kept = append(kept, para)
		}
	}
	return strings.Join(kept, "\n\n")
}

// InSponsorRange reports whether a timestamp falls inside any sponsor range,
// widened by padding seconds on both sides.
func InSponsorRange(seconds int, ranges []types.SponsorRange, padding int) bool {
	for _, r := range ranges {
		if r.Start-padding <= seconds && seconds <= r.End+padding {
			return true
		}
	}
	return false
}

// IsMultiSpeaker detects diarized transcripts by their speaker markers.
func IsMultiSpeaker(text string) bool {
	return speakerRE.MatchString(text)
}

// Speakers lists unique speaker names in order of first appearance.
func Speakers(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range speakerRE.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// FormatTimestamp renders seconds as MM:SS. Hours spill into minutes, which
// matches the transcript line format.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
