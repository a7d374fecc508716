package bot

import (
	"context"

	"cogbot/application"
)

// StartSongLinkWorker starts the SongLink queue worker and attaches it to the SongLink feature.
// Returns a cleanup function to stop the worker gracefully
func (b *Bot) StartSongLinkWorker(ctx context.Context) func() {
	worker := application.NewSongLinkWorker(
		b.deps.SongResolver,
		b.songLink,
		b.deps.EventPublisher,
		application.SongLinkWorkerConfig{MinInterval: b.config.SongLinkMinInterval},
	)
	b.songLink.SetQueue(worker)
	return worker.Start(ctx)
}
