package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkcast/internal/config"
	"inkcast/internal/faults"
	"inkcast/internal/logging"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

const testEssay = "# The Argument\n\nFirst the market shifted.\n\nThen the data confirmed it.\n\nFinally everyone adjusted."

// fakePorts implements every port with canned, countable behavior.
type fakePorts struct {
	mu    sync.Mutex
	calls map[string]int

	captionsErr error
	essayErr    error
	noCitations bool
}

func newFakePorts() *fakePorts {
	return &fakePorts{calls: make(map[string]int)}
}

func (f *fakePorts) count(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakePorts) got(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakePorts) Download(ctx context.Context, videoID, destDir string) (string, error) {
	f.count("download")
	p := filepath.Join(destDir, "video.mp4")
	return p, os.WriteFile(p, []byte("not really a video"), 0o644)
}

func (f *fakePorts) Metadata(ctx context.Context, videoID string) (types.VideoMetadata, error) {
	f.count("metadata")
	return types.VideoMetadata{Title: "Test Talk", Channel: "testchan", Duration: 60}, nil
}

func (f *fakePorts) FetchCaptions(ctx context.Context, videoID string) (string, error) {
	f.count("captions")
	if f.captionsErr != nil {
		return "", f.captionsErr
	}
	return "[00:00] welcome to the talk\n\n[00:30] the market shifted and the data confirmed it", nil
}

func (f *fakePorts) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	f.count("extract_audio")
	return os.WriteFile(outPath, []byte("mp3"), 0o644)
}

func (f *fakePorts) SampleFrames(ctx context.Context, videoPath, outDir string, interval int) ([]string, error) {
	f.count("sample_frames")
	var out []string
	for i, stripe := range []int{4, 4, 16} {
		p := filepath.Join(outDir, names(i))
		writeTestJPEG(p, stripe)
		out = append(out, p)
	}
	return out, nil
}

func names(i int) string {
	return []string{"frame_0001.jpg", "frame_0002.jpg", "frame_0003.jpg"}[i]
}

func (f *fakePorts) Diarize(ctx context.Context, audioPath string) ([]types.Segment, error) {
	f.count("diarize")
	return []types.Segment{
		{Start: 0, End: 5, Speaker: 0, Text: "welcome to the talk"},
		{Start: 5, End: 10, Speaker: 1, Text: "glad to be here"},
	}, nil
}

func (f *fakePorts) NameSpeakers(ctx context.Context, segs []types.Segment, meta types.VideoMetadata) (map[int]string, error) {
	f.count("name_speakers")
	return map[int]string{0: "Host", 1: "Guest"}, nil
}

func (f *fakePorts) DetectSponsors(ctx context.Context, transcript string) ([]types.SponsorRange, error) {
	f.count("sponsors")
	return nil, nil
}

func (f *fakePorts) StyleProfile(ctx context.Context, transcript string) (string, error) {
	f.count("style_profile")
	return "terse, declarative", nil
}

func (f *fakePorts) WriteEssay(ctx context.Context, transcript, profile string) (string, error) {
	f.count("write_essay")
	if f.essayErr != nil {
		return "", f.essayErr
	}
	return testEssay, nil
}

func (f *fakePorts) ClassifyFrame(ctx context.Context, imagePath, tctx, ts string) (types.Classification, error) {
	f.count("classify")
	return types.Classification{Category: types.CategoryChart, Value: 5, Description: "a chart"}, nil
}

func (f *fakePorts) PlacementPatches(ctx context.Context, indexed string, cands []types.Frame) ([]types.PlacementPatch, error) {
	f.count("placements")
	return []types.PlacementPatch{
		{Paragraph: 1, Image: cands[0].Name, AltText: "the shift chart"},
	}, nil
}

func (f *fakePorts) CitationPatches(ctx context.Context, document string, batch []types.Figure) ([]types.CitationPatch, error) {
	f.count("citations")
	if f.noCitations {
		return nil, nil
	}
	return []types.CitationPatch{
		{Figure: 1, FindText: "Then the data confirmed it.", ReplaceText: "Then the data confirmed it, as Figure 1 shows."},
		{Figure: 1, FindText: "text that is not in the essay", ReplaceText: "x"},
	}, nil
}

func (f *fakePorts) ScoreDimension(ctx context.Context, transcript, essay, dim string) (types.DimensionScore, error) {
	f.count("score")
	return types.DimensionScore{Score: 8, Rationale: "solid"}, nil
}

// writeTestJPEG renders a striped pattern so frames decode like real stills.
func writeTestJPEG(path string, stripe int) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/stripe)%2 == 0 {
				img.Set(x, y, color.Gray{Y: 255})
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		panic(err)
	}
}

func newTestPipeline(t *testing.T, f *fakePorts) (*Pipeline, string) {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline.WorkDir = t.TempDir()
	cfg.Pipeline.ClassifyConcurrency = 2
	cfg.Pipeline.ScoreConcurrency = 2
	cfg.Retry.MaxAttempts = 1

	st := store.New(cfg.Pipeline.WorkDir)
	log := logging.New(io.Discard, false)
	p := New(cfg, st, log, Ports{
		Fetcher:    f,
		Captions:   f,
		Media:      f,
		Diarizer:   f,
		Namer:      f,
		Sponsors:   f,
		Essayist:   f,
		Classifier: f,
		Patcher:    f,
		Scorer:     f,
		ScoreModel: "test-model",
	})
	return p, cfg.Pipeline.WorkDir
}

func TestRun_FullPipeline(t *testing.T) {
	f := newFakePorts()
	p, workDir := newTestPipeline(t, f)
	require.NoError(t, p.Run(context.Background(), "dQw4w9WgXcQ", "score", false))

	dir := filepath.Join(workDir, "dQw4w9WgXcQ")
	for _, name := range []string{
		"item.json", "metadata.json", "transcript.txt", "sponsors.json",
		"transcript_clean.txt", "style_profile.txt", "essay.md",
		filepath.Join("frames", "classifications.json"),
		"essay_with_images.md", "placements.json",
		"essay_final.md", "citations.json", "score.json",
	} {
		assert.True(t, store.OutputValid(filepath.Join(dir, name)), "missing artifact %s", name)
	}

	final, err := os.ReadFile(filepath.Join(dir, "essay_final.md"))
	require.NoError(t, err)
	assert.Contains(t, string(final), "*Figure 1: the shift chart*")
	assert.Contains(t, string(final), "as Figure 1 shows")
	assert.Contains(t, string(final), "data:image/jpeg;base64,", "images should be embedded")

	var report types.ScoreReport
	require.NoError(t, store.ReadJSON(filepath.Join(dir, "score.json"), &report))
	assert.InDelta(t, 8.0, report.Overall, 0.001)
	assert.Len(t, report.Dimensions, 5)
	assert.Equal(t, "test-model", report.Model)

	var cf citationsFile
	require.NoError(t, store.ReadJSON(filepath.Join(dir, "citations.json"), &cf))
	assert.Len(t, cf.Applied, 1)
	assert.Len(t, cf.Rejected, 1, "the unmatched find_text must be rejected, not applied")
	assert.Empty(t, cf.Uncited, "figure 1 is cited in prose")
}

func TestRun_UncitedFiguresRecorded(t *testing.T) {
	f := newFakePorts()
	f.noCitations = true
	p, workDir := newTestPipeline(t, f)
	require.NoError(t, p.Run(context.Background(), "dQw4w9WgXcQ", "annotate", false))

	var cf citationsFile
	path := filepath.Join(workDir, "dQw4w9WgXcQ", "citations.json")
	require.NoError(t, store.ReadJSON(path, &cf))
	assert.Empty(t, cf.Applied)
	assert.Equal(t, []int{1}, cf.Uncited, "a figure no patch references must be flagged")
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	f := newFakePorts()
	p, workDir := newTestPipeline(t, f)
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "score", false))

	before := map[string]int{}
	f.mu.Lock()
	for k, v := range f.calls {
		before[k] = v
	}
	f.mu.Unlock()

	finalPath := filepath.Join(workDir, "dQw4w9WgXcQ", "essay_final.md")
	wantFinal, err := os.ReadFile(finalPath)
	require.NoError(t, err)

	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "score", false))

	f.mu.Lock()
	defer f.mu.Unlock()
	for op, n := range f.calls {
		assert.Equal(t, before[op], n, "operation %s ran again on a completed item", op)
	}
	gotFinal, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, wantFinal, gotFinal)
}

func TestRun_ForceRerunsOnlyRequestedStage(t *testing.T) {
	f := newFakePorts()
	p, _ := newTestPipeline(t, f)
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "essay", false))

	captionsBefore := f.got("captions")
	sponsorsBefore := f.got("sponsors")
	styleBefore := f.got("style_profile")
	essayBefore := f.got("write_essay")

	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "essay", true))

	assert.Equal(t, captionsBefore, f.got("captions"), "dependency reran under force")
	assert.Equal(t, sponsorsBefore, f.got("sponsors"), "dependency reran under force")
	assert.Equal(t, styleBefore+1, f.got("style_profile"), "forced stage kept a stale output")
	assert.Equal(t, essayBefore+1, f.got("write_essay"))
}

func TestRun_ForceFetchRedownloads(t *testing.T) {
	f := newFakePorts()
	p, workDir := newTestPipeline(t, f)
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "fetch", false))
	require.Equal(t, 1, f.got("download"))
	require.Equal(t, 1, f.got("metadata"))

	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "fetch", true))
	assert.Equal(t, 2, f.got("download"), "force must re-download the video")
	assert.Equal(t, 2, f.got("metadata"), "force must re-fetch metadata")

	dir := filepath.Join(workDir, "dQw4w9WgXcQ")
	if _, err := store.FindVideo(dir); err != nil {
		t.Fatalf("video missing after forced fetch: %v", err)
	}
	assert.True(t, store.OutputValid(filepath.Join(dir, "metadata.json")))
}

func TestRun_FailureLeavesUpstreamArtifacts(t *testing.T) {
	f := newFakePorts()
	f.essayErr = faults.Wrap(faults.ErrPermanent, "essay", "write", errors.New("model refused"))
	p, workDir := newTestPipeline(t, f)
	ctx := context.Background()

	err := p.Run(ctx, "dQw4w9WgXcQ", "score", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage essay")

	dir := filepath.Join(workDir, "dQw4w9WgXcQ")
	assert.True(t, store.OutputValid(filepath.Join(dir, "transcript_clean.txt")))
	assert.False(t, store.OutputValid(filepath.Join(dir, "essay.md")))

	// Recovery resumes from the failed stage without repeating finished work.
	captionsBefore := f.got("captions")
	f.essayErr = nil
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "score", false))
	assert.Equal(t, captionsBefore, f.got("captions"))
}

func TestRun_DiarizationFallback(t *testing.T) {
	f := newFakePorts()
	f.captionsErr = faults.Wrap(faults.ErrPermanent, "transcript", "captions", errors.New("no captions"))
	p, workDir := newTestPipeline(t, f)

	require.NoError(t, p.Run(context.Background(), "dQw4w9WgXcQ", "transcript", false))

	assert.Equal(t, 1, f.got("diarize"))
	assert.Equal(t, 1, f.got("download"), "diarization must pull in the fetch chain")
	assert.Equal(t, 1, f.got("name_speakers"))

	raw, err := os.ReadFile(filepath.Join(workDir, "dQw4w9WgXcQ", "transcript.txt"))
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "**Host** [00:00]")
	assert.Contains(t, text, "**Guest** [00:05]")
}

func TestRun_UnknownStage(t *testing.T) {
	p, _ := newTestPipeline(t, newFakePorts())
	err := p.Run(context.Background(), "dQw4w9WgXcQ", "publish", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestRun_LockedItemFailsFast(t *testing.T) {
	f := newFakePorts()
	p, workDir := newTestPipeline(t, f)
	st := store.New(workDir)
	lock, err := st.Lock("dQw4w9WgXcQ")
	require.NoError(t, err)
	defer lock.Unlock()

	err = p.Run(context.Background(), "dQw4w9WgXcQ", "fetch", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
	assert.Equal(t, 0, f.got("metadata"))
}

func TestStatus(t *testing.T) {
	f := newFakePorts()
	p, _ := newTestPipeline(t, f)
	require.NoError(t, p.Run(context.Background(), "dQw4w9WgXcQ", "sponsors", false))

	rows, err := p.Status("dQw4w9WgXcQ")
	require.NoError(t, err)
	byName := map[string]StageStatus{}
	for _, r := range rows {
		byName[r.Name] = r
	}
	assert.True(t, byName["transcript"].Done)
	assert.True(t, byName["sponsors"].Done)
	assert.False(t, byName["essay"].Done)
	assert.False(t, byName["score"].Done)
	assert.False(t, byName["transcript"].Modified.IsZero())
}

func TestStages_OrderAndFinal(t *testing.T) {
	p, _ := newTestPipeline(t, newFakePorts())
	want := []string{"fetch", "transcript", "sponsors", "essay", "frames", "place", "annotate", "score"}
	assert.Equal(t, want, p.Stages())
	assert.Equal(t, "score", p.FinalStage())
}

func TestRun_CorruptArtifactReruns(t *testing.T) {
	f := newFakePorts()
	p, workDir := newTestPipeline(t, f)
	ctx := context.Background()
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "sponsors", false))

	// A truncated JSON artifact must not pass the skip check.
	sponsorsPath := filepath.Join(workDir, "dQw4w9WgXcQ", "sponsors.json")
	require.NoError(t, os.WriteFile(sponsorsPath, []byte(`{"ranges": [`), 0o644))

	before := f.got("sponsors")
	require.NoError(t, p.Run(ctx, "dQw4w9WgXcQ", "sponsors", false))
	assert.Equal(t, before+1, f.got("sponsors"))

	raw, err := os.ReadFile(sponsorsPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "ranges"))
	var sf sponsorsFile
	require.NoError(t, store.ReadJSON(sponsorsPath, &sf))
}
