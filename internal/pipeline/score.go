package pipeline

import (
	"context"
	"math"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// scoreDimensions are the quality axes the report covers. The scorer port
// knows the rubric for each.
var scoreDimensions = []string{
	"faithfulness",
	"proportionality",
	"embellishment",
	"hallucination",
	"tone",
}

// runScore grades the final essay against the cleaned transcript, one
// dimension per call, and writes the aggregate report. Unlike frame
// classification, a failed dimension fails the stage: a partial report would
// pass the skip check and never be completed.
func (p *Pipeline) runScore(ctx context.Context, it item) error {
	transcriptRaw, err := os.ReadFile(it.path("transcript_clean.txt"))
	if err != nil {
		return err
	}
	essayRaw, err := os.ReadFile(it.path("essay_final.md"))
	if err != nil {
		return err
	}
	transcriptText, essayText := string(transcriptRaw), string(essayRaw)

	var mu sync.Mutex
	dims := make(map[string]types.DimensionScore, len(scoreDimensions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Pipeline.ScoreConcurrency)
	for _, dim := range scoreDimensions {
		dim := dim
		g.Go(func() error {
			var ds types.DimensionScore
			err := retry.Do(gctx, p.policy, "score "+dim, func(ctx context.Context) error {
				var err error
				ds, err = p.ports.Scorer.ScoreDimension(ctx, transcriptText, essayText, dim)
				return err
			})
			if err != nil {
				return err
			}
			mu.Lock()
			dims[dim] = ds
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var sum float64
	for _, ds := range dims {
		sum += float64(ds.Score)
	}
	report := types.ScoreReport{
		Overall:    math.Round(sum/float64(len(dims))*10) / 10,
		Dimensions: dims,
		Model:      p.ports.ScoreModel,
	}
	p.log.Info("scored essay", "video", it.id, "overall", report.Overall)
	return store.WriteJSON(it.path("score.json"), report)
}
