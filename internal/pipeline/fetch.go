package pipeline

import (
	"context"

	"inkcast/internal/retry"
	"inkcast/internal/store"
	"inkcast/internal/types"
)

// runFetch downloads the source video and records its metadata. The two
// halves skip independently: a rerun after a crashed download does not
// re-fetch metadata, and vice versa.
func (p *Pipeline) runFetch(ctx context.Context, it item) error {
	metaPath := it.path("metadata.json")
	if !store.OutputValid(metaPath) {
		var meta types.VideoMetadata
		err := retry.Do(ctx, p.policy, "fetch metadata", func(ctx context.Context) error {
			var err error
			meta, err = p.ports.Fetcher.Metadata(ctx, it.id)
			return err
		})
		if err != nil {
			return err
		}
		if err := store.WriteJSON(metaPath, meta); err != nil {
			return err
		}
		p.log.Info("fetched metadata", "video", it.id, "title", meta.Title)
	}

	if _, err := store.FindVideo(it.dir); err == nil {
		return nil
	}
	var videoPath string
	err := retry.Do(ctx, p.policy, "download video", func(ctx context.Context) error {
		var err error
		videoPath, err = p.ports.Fetcher.Download(ctx, it.id, it.dir)
		return err
	})
	if err != nil {
		return err
	}
	p.log.Info("downloaded video", "video", it.id, "path", videoPath)
	return nil
}
