// Package pipeline runs the stage graph for one media item. Completion is
// judged purely by the presence and well-formedness of each stage's declared
// output files, so any invocation is resumable: finished stages are skipped,
// the first unfinished stage runs, and a crash leaves nothing to undo.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"inkcast/internal/config"
	"inkcast/internal/faults"
	"inkcast/internal/media"
	"inkcast/internal/ports"
	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// Ports bundles every external collaborator the stages call. Tests swap in
// fakes; main wires the real adapters.
type Ports struct {
	Fetcher    ports.MediaFetcher
	Captions   ports.CaptionFetcher
	Media      ports.MediaTool
	Diarizer   ports.Diarizer
	Namer      ports.SpeakerNamer
	Sponsors   ports.SponsorDetector
	Essayist   ports.EssayWriter
	Classifier ports.FrameClassifier
	Patcher    ports.PatchGenerator
	Scorer     ports.EssayScorer

	// ScoreModel is recorded in the score report.
	ScoreModel string
}

type Pipeline struct {
	cfg    config.Config
	store  *store.Store
	log    *slog.Logger
	ports  Ports
	policy retry.Policy

	stages map[string]*stage
	order  []string
}

// stage declares what a pipeline step needs and produces. Output paths are
// relative to the item directory and may be glob patterns.
type stage struct {
	name    string
	deps    []string
	outputs []string
	run     func(ctx context.Context, it item) error
}

// item is the per-run handle a stage works against.
type item struct {
	id  string
	dir string
}

func (it item) path(rel string) string { return filepath.Join(it.dir, rel) }

func New(cfg config.Config, st *store.Store, log *slog.Logger, p Ports) *Pipeline {
	pl := &Pipeline{
		cfg:   cfg,
		store: st,
		log:   log,
		ports: p,
		policy: retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.RetryBase(),
			MaxDelay:    cfg.RetryMax(),
		},
		stages: make(map[string]*stage),
	}
	pl.register(&stage{
		name:    "fetch",
		outputs: []string{"video.*", "metadata.json"},
		run:     pl.runFetch,
	})
	pl.register(&stage{
		name:    "transcript",
		outputs: []string{"transcript.txt"},
		run:     pl.runTranscript,
	})
	pl.register(&stage{
		name:    "sponsors",
		deps:    []string{"transcript"},
		outputs: []string{"sponsors.json", "transcript_clean.txt"},
		run:     pl.runSponsors,
	})
	pl.register(&stage{
		name:    "essay",
		deps:    []string{"sponsors"},
		outputs: []string{"style_profile.txt", "essay.md"},
		run:     pl.runEssay,
	})
	pl.register(&stage{
		name:    "frames",
		deps:    []string{"fetch", "sponsors"},
		outputs: []string{filepath.Join("frames", "classifications.json")},
		run:     pl.runFrames,
	})
	pl.register(&stage{
		name:    "place",
		deps:    []string{"essay", "frames"},
		outputs: []string{"essay_with_images.md", "placements.json"},
		run:     pl.runPlace,
	})
	pl.register(&stage{
		name:    "annotate",
		deps:    []string{"place"},
		outputs: []string{"essay_final.md", "citations.json"},
		run:     pl.runAnnotate,
	})
	pl.register(&stage{
		name:    "score",
		deps:    []string{"annotate"},
		outputs: []string{"score.json"},
		run:     pl.runScore,
	})
	return pl
}

func (p *Pipeline) register(s *stage) {
	p.stages[s.name] = s
	p.order = append(p.order, s.name)
}

// Stages lists stage names in registration order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// FinalStage is the stage a full run targets.
func (p *Pipeline) FinalStage() string { return p.order[len(p.order)-1] }

// Run executes the named stage and everything it depends on, for the given
// video. Stages whose declared outputs already exist and pass the structural
// check are skipped; force deletes the requested stage's outputs and reruns
// it, never touching its dependency chain.
func (p *Pipeline) Run(ctx context.Context, videoID, stageName string, force bool) error {
	target, ok := p.stages[stageName]
	if !ok {
		return fmt.Errorf("unknown stage %q", stageName)
	}

	dir, err := p.store.ItemDir(videoID)
	if err != nil {
		return err
	}
	lock, err := p.store.Lock(videoID)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	it := item{id: videoID, dir: dir}
	if err := p.store.WriteMetadata(types.Item{
		ID:        videoID,
		URL:       media.WatchURL(videoID),
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	chain, err := p.chainFor(target)
	if err != nil {
		return err
	}
	for _, s := range chain {
		forced := force && s.name == stageName
		if err := p.runStage(ctx, it, s, forced); err != nil {
			return fmt.Errorf("stage %s: %w", s.name, err)
		}
	}
	return nil
}

// chainFor resolves the dependency closure of target in execution order.
func (p *Pipeline) chainFor(target *stage) ([]*stage, error) {
	seen := make(map[string]bool)
	var out []*stage
	var visit func(s *stage) error
	visit = func(s *stage) error {
		if seen[s.name] {
			return nil
		}
		seen[s.name] = true
		for _, dep := range s.deps {
			d, ok := p.stages[dep]
			if !ok {
				return fmt.Errorf("stage %s depends on unknown stage %q", s.name, dep)
			}
			if err := visit(d); err != nil {
				return err
			}
		}
		out = append(out, s)
		return nil
	}
	if err := visit(target); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) runStage(ctx context.Context, it item, s *stage, force bool) error {
	if force {
		// Stages skip work whose artifacts already exist, so a forced rerun
		// must clear the declared outputs or the stage would no-op.
		for _, out := range s.outputs {
			if err := store.RemoveOutput(it.path(out)); err != nil {
				return faults.Wrap(faults.ErrIntegrity, s.name, "reset outputs", err)
			}
		}
	} else if p.outputsValid(it, s) {
		p.log.Info("stage complete, skipping", "stage", s.name, "video", it.id)
		return nil
	}
	p.log.Info("running stage", "stage", s.name, "video", it.id, "force", force)
	start := time.Now()
	if err := s.run(ctx, it); err != nil {
		return err
	}
	if !p.outputsValid(it, s) {
		return faults.Wrap(faults.ErrIntegrity, s.name, "outputs",
			fmt.Errorf("stage finished without producing %v", s.outputs))
	}
	p.log.Info("stage finished", "stage", s.name, "video", it.id,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) outputsValid(it item, s *stage) bool {
	for _, out := range s.outputs {
		if !store.OutputValid(it.path(out)) {
			return false
		}
	}
	return true
}

// ensure runs a stage's chain from inside another stage, for dependencies
// that only materialize on some code paths (diarization needs the video even
// though transcription usually does not).
func (p *Pipeline) ensure(ctx context.Context, it item, stageName string) error {
	s, ok := p.stages[stageName]
	if !ok {
		return fmt.Errorf("unknown stage %q", stageName)
	}
	chain, err := p.chainFor(s)
	if err != nil {
		return err
	}
	for _, cs := range chain {
		if err := p.runStage(ctx, it, cs, false); err != nil {
			return fmt.Errorf("stage %s: %w", cs.name, err)
		}
	}
	return nil
}

// StageStatus is one row of the derived status view. Nothing here is stored;
// it is computed from the files on disk.
type StageStatus struct {
	Name     string
	Done     bool
	Outputs  []string
	Modified time.Time
}

// Status derives per-stage completion for a video from its artifacts.
func (p *Pipeline) Status(videoID string) ([]StageStatus, error) {
	dir, err := p.store.ItemDir(videoID)
	if err != nil {
		return nil, err
	}
	it := item{id: videoID, dir: dir}

	out := make([]StageStatus, 0, len(p.order))
	for _, name := range p.order {
		s := p.stages[name]
		st := StageStatus{Name: name, Done: p.outputsValid(it, s), Outputs: s.outputs}
		for _, o := range s.outputs {
			if mt := store.ModTime(it.path(o)); mt.After(st.Modified) {
				st.Modified = mt
			}
		}
		out = append(out, st)
	}
	return out, nil
}
