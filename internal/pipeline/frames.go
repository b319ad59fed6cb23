package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	"inkcast/internal/domain/frames"
	"inkcast/internal/domain/transcript"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// classificationsFile is the frames/classifications.json shape: everything
// the stage learned about the sampled frames, plus which survived filtering.
type classificationsFile struct {
	Sampled    int           `json:"sampled_frames"`
	Clusters   int           `json:"clusters"`
	Classified []types.Frame `json:"classified"`
	Kept       []string      `json:"kept"`
}

// runFrames samples stills from the video, collapses near-duplicates by
// perceptual hash, classifies one representative per cluster, and keeps the
// frames worth placing. A frame whose classification fails is dropped alone;
// the stage keeps going.
func (p *Pipeline) runFrames(ctx context.Context, it item) error {
	// Raw stills are a sampling cache, not a stage output; any rerun reuses
	// them instead of decoding the video again.
	rawDir := it.path(filepath.Join("frames", "raw"))
	var paths []string
	if store.OutputValid(rawDir) {
		matches, err := filepath.Glob(filepath.Join(rawDir, "frame_*.jpg"))
		if err != nil {
			return err
		}
		sort.Strings(matches)
		paths = matches
	} else {
		videoPath, err := store.FindVideo(it.dir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(rawDir, 0o755); err != nil {
			return err
		}
		paths, err = p.ports.Media.SampleFrames(ctx, videoPath, rawDir, p.cfg.Pipeline.SampleIntervalSeconds)
		if err != nil {
			return err
		}
	}

	sampled := make([]types.Frame, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		secs, err := frames.SecondsFor(name, p.cfg.Pipeline.SampleIntervalSeconds)
		if err != nil {
			p.log.Warn("skipping unrecognized frame file", "file", name, "error", err)
			continue
		}
		hash, err := frames.ComputeHash(path)
		if err != nil {
			p.log.Warn("skipping unreadable frame", "file", name, "error", err)
			continue
		}
		sampled = append(sampled, types.Frame{
			Name:      name,
			Path:      path,
			Seconds:   secs,
			Timestamp: transcript.FormatTimestamp(secs),
			PHash:     hash,
		})
	}

	clusters := frames.Dedup(sampled, p.cfg.Pipeline.HammingThreshold)
	reps := frames.Representatives(clusters)
	p.log.Info("deduplicated frames", "video", it.id,
		"sampled", len(sampled), "clusters", len(clusters))

	classified, err := p.classifyAll(ctx, it, reps)
	if err != nil {
		return err
	}

	kept := frames.Filter(classified, mustRanges(p, it), frames.FilterPolicy{
		SkipCategories: p.cfg.Pipeline.SkipCategories,
		MinValue:       p.cfg.Pipeline.MinFrameValue,
		SponsorPadding: p.cfg.Pipeline.SponsorPaddingSeconds,
	})

	keptDir := it.path(filepath.Join("frames", "kept"))
	keptNames := make([]string, 0, len(kept))
	for _, f := range kept {
		if err := store.CopyFile(f.Path, filepath.Join(keptDir, f.Name)); err != nil {
			return err
		}
		keptNames = append(keptNames, f.Name)
	}
	p.log.Info("filtered frames", "video", it.id,
		"classified", len(classified), "kept", len(kept))

	return store.WriteJSON(it.path(filepath.Join("frames", "classifications.json")), classificationsFile{
		Sampled:    len(sampled),
		Clusters:   len(clusters),
		Classified: classified,
		Kept:       keptNames,
	})
}

// classifyAll runs vision classification over the representatives with
// bounded concurrency, merging results back in timestamp order.
func (p *Pipeline) classifyAll(ctx context.Context, it item, reps []types.Frame) ([]types.Frame, error) {
	entries, err := p.transcriptEntries(it)
	if err != nil {
		return nil, err
	}

	results := make([]*types.Classification, len(reps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.ClassifyConcurrency)
	for i, f := range reps {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tctx := transcript.Context(entries, f.Seconds, p.cfg.Pipeline.ContextWindowSeconds)
			var c types.Classification
			err := retry.Do(gctx, p.policy, "classify "+f.Name, func(ctx context.Context) error {
				var err error
				c, err = p.ports.Classifier.ClassifyFrame(ctx, f.Path, tctx, f.Timestamp)
				return err
			})
			if err != nil {
				p.log.Warn("dropping frame after failed classification",
					"frame", f.Name, "error", err)
				return nil
			}
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classified := make([]types.Frame, 0, len(reps))
	for i, f := range reps {
		if results[i] == nil {
			continue
		}
		f.Category = results[i].Category
		f.Value = results[i].Value
		f.Description = results[i].Description
		classified = append(classified, f)
	}
	return classified, nil
}

func (p *Pipeline) transcriptEntries(it item) ([]transcript.Entry, error) {
	raw, err := os.ReadFile(it.path("transcript_clean.txt"))
	if err != nil {
		return nil, err
	}
	return transcript.Parse(string(raw)), nil
}

func mustRanges(p *Pipeline, it item) []types.SponsorRange {
	ranges, err := p.readSponsors(it)
	if err != nil {
		p.log.Warn("sponsor ranges unreadable, filtering without them", "error", err)
		return nil
	}
	return ranges
}
