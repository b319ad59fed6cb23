// Package ytdlp shells out to yt-dlp for video download, metadata, and
// caption acquisition.
package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"inkcast/internal/domain/transcript"
	"inkcast/internal/faults"
	"inkcast/internal/media"
	"inkcast/internal/ports"
	"inkcast/internal/types"
)

type Adapter struct {
	bin     string
	cookies string
}

var (
	_ ports.MediaFetcher   = (*Adapter)(nil)
	_ ports.CaptionFetcher = (*Adapter)(nil)
)

// New builds the adapter. cookiesPath is optional and passed through to
// yt-dlp for age/region-restricted videos.
func New(binPath, cookiesPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath, cookies: cookiesPath}
}

func (a *Adapter) baseArgs(extra ...string) []string {
	args := append([]string{}, extra...)
	if a.cookies != "" {
		args = append(args, "--cookies", a.cookies)
	}
	return args
}

// Download fetches the video into destDir as video.<ext>, letting yt-dlp
// pick the container, and returns the actual file path.
func (a *Adapter) Download(ctx context.Context, videoID, destDir string) (string, error) {
	args := a.baseArgs(
		"-o", filepath.Join(destDir, "video.%(ext)s"),
		media.WatchURL(videoID),
	)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", faults.Wrap(faults.ErrTransient, "fetch", "yt-dlp download",
			fmt.Errorf("%w\n%s", err, string(b)))
	}
	matches, err := filepath.Glob(filepath.Join(destDir, "video.*"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") {
			return m, nil
		}
	}
	return "", fmt.Errorf("download finished but no video file in %s", destDir)
}

// Metadata fetches title/description/channel without downloading media.
func (a *Adapter) Metadata(ctx context.Context, videoID string) (types.VideoMetadata, error) {
	args := a.baseArgs(
		"--dump-json", "--skip-download",
		media.WatchURL(videoID),
	)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	out, err := cmd.Output()
	if err != nil {
		return types.VideoMetadata{}, faults.Wrap(faults.ErrTransient, "fetch", "yt-dlp metadata", err)
	}
	var raw struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Channel     string  `json:"channel"`
		Uploader    string  `json:"uploader"`
		Duration    float64 `json:"duration"`
	}
	if err := json.Unmarshal(out, &raw); err != nil {
		return types.VideoMetadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return types.VideoMetadata{
		Title:       raw.Title,
		Description: raw.Description,
		Channel:     raw.Channel,
		Uploader:    raw.Uploader,
		Duration:    int(raw.Duration),
	}, nil
}

// FetchCaptions downloads the published subtitles in JSON3 format and renders
// them as timestamped transcript paragraphs.
func (a *Adapter) FetchCaptions(ctx context.Context, videoID string) (string, error) {
	tmp, err := os.MkdirTemp("", "inkcast-subs-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	args := a.baseArgs(
		"--write-auto-subs", "--write-subs",
		"--sub-langs", "en.*",
		"--sub-format", "json3",
		"--skip-download",
		"-o", filepath.Join(tmp, "subs"),
		media.WatchURL(videoID),
	)
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", faults.Wrap(faults.ErrTransient, "transcript", "yt-dlp captions",
			fmt.Errorf("%w\n%s", err, string(b)))
	}

	matches, err := filepath.Glob(filepath.Join(tmp, "*.json3"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("yt-dlp produced no subtitle file\n%s", string(b))
	}
	sort.Strings(matches)
	raw, err := os.ReadFile(matches[0])
	if err != nil {
		return "", err
	}
	return ParseJSON3(raw)
}

// json3Event mirrors the caption event shape YouTube serves.
type json3Event struct {
	AAppend  int `json:"aAppend,omitempty"`
	TStartMs int `json:"tStartMs"`
	Segs     []struct {
		UTF8 string `json:"utf8"`
	} `json:"segs"`
}

const paragraphSpanMs = 30000

// ParseJSON3 converts a JSON3 subtitle payload into clean timestamped text.
// Rolling "aAppend" duplicates are filtered out; events are grouped into
// ~30 second "[MM:SS] text" paragraphs.
func ParseJSON3(raw []byte) (string, error) {
	var payload struct {
		Events []json3Event `json:"events"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("parse json3 captions: %w", err)
	}

	type timedText struct {
		startMs int
		text    string
	}
	var segments []timedText
	for _, e := range payload.Events {
		if e.AAppend != 0 {
			continue
		}
		var sb strings.Builder
		for _, s := range e.Segs {
			sb.WriteString(s.UTF8)
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		segments = append(segments, timedText{startMs: e.TStartMs, text: text})
	}

	var paragraphs []string
	var current []string
	paraStart := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		ts := transcript.FormatTimestamp(paraStart / 1000)
		paragraphs = append(paragraphs, fmt.Sprintf("[%s] %s", ts, strings.Join(current, " ")))
		current = nil
	}
	for _, seg := range segments {
		if len(current) == 0 {
			paraStart = seg.startMs
		}
		current = append(current, seg.text)
		if seg.startMs-paraStart >= paragraphSpanMs {
			flush()
		}
	}
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}
