package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"inkcast/internal/ports"
)

type Adapter struct {
	ffmpeg string
}

var _ ports.MediaTool = (*Adapter)(nil)

func New(ffmpegPath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Adapter{ffmpeg: ffmpegPath}
}

// ExtractAudio pulls an MP3 track out of the video for the diarization
// provider.
func (a *Adapter) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		outPath,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// SampleFrames writes one high-quality JPEG per interval to outDir, named
// frame_0001.jpg onward, and returns the sorted frame paths.
func (a *Adapter) SampleFrames(ctx context.Context, videoPath, outDir string, intervalSeconds int) ([]string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%d", intervalSeconds),
		"-q:v", "2",
		filepath.Join(outDir, "frame_%04d.jpg"),
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg sample frames: %w\n%s", err, string(b))
	}
	matches, err := filepath.Glob(filepath.Join(outDir, "frame_*.jpg"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
