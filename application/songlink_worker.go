package application

import (
	"context"
	"errors"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/interfaces"
	"cogbot/infrastructure/observability"
	"cogbot/infrastructure/songlink"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// SongResolver turns a music service URL into song metadata
type SongResolver interface {
	Resolve(ctx context.Context, url string) (*entities.SongInfo, error)
}

// SongPoster posts resolved songs to Discord
type SongPoster interface {
	// PostSong sends the SongLink embed for a resolved song to a channel
	PostSong(ctx context.Context, channelID int64, song *entities.SongInfo) error
}

// SongLinkJob is one queued music link
type SongLinkJob struct {
	GuildID   int64
	ChannelID int64
	URL       string
	Attempts  int
}

// SongLinkWorkerConfig tunes the queue worker; zero values use the defaults
type SongLinkWorkerConfig struct {
	MinInterval      time.Duration
	RateLimitDelay   time.Duration
	ServerErrorDelay time.Duration
	MaxAttempts      int
	QueueSize        int
}

const (
	defaultSongLinkMinInterval = 6100 * time.Millisecond
	defaultRateLimitDelay      = 10 * time.Second
	defaultServerErrorDelay    = 15 * time.Second
	defaultSongLinkAttempts    = 3
	defaultSongLinkQueueSize   = 256
)

// SongLinkWorker resolves queued music links one at a time, spacing API requests
type SongLinkWorker struct {
	resolver  SongResolver
	poster    SongPoster
	publisher interfaces.EventPublisher
	limiter   *rate.Limiter
	queue     chan SongLinkJob
	cfg       SongLinkWorkerConfig
}

// NewSongLinkWorker creates a new SongLink queue worker
func NewSongLinkWorker(resolver SongResolver, poster SongPoster, publisher interfaces.EventPublisher, cfg SongLinkWorkerConfig) *SongLinkWorker {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultSongLinkMinInterval
	}
	if cfg.RateLimitDelay <= 0 {
		cfg.RateLimitDelay = defaultRateLimitDelay
	}
	if cfg.ServerErrorDelay <= 0 {
		cfg.ServerErrorDelay = defaultServerErrorDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultSongLinkAttempts
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultSongLinkQueueSize
	}

	return &SongLinkWorker{
		resolver:  resolver,
		poster:    poster,
		publisher: publisher,
		limiter:   rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		queue:     make(chan SongLinkJob, cfg.QueueSize),
		cfg:       cfg,
	}
}

// Enqueue adds a link to the queue without blocking; it reports false when the queue is full
func (w *SongLinkWorker) Enqueue(job SongLinkJob) bool {
	select {
	case w.queue <- job:
		return true
	default:
		log.WithFields(log.Fields{
			"channel_id": job.ChannelID,
			"url":        job.URL,
		}).Warn("SongLink queue full, dropping link")
		return false
	}
}

// Start begins draining the queue and returns a function that stops the worker
func (w *SongLinkWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	workerCtx, cancel := context.WithCancel(ctx)

	go func() {
		log.WithField("min_interval", w.cfg.MinInterval).Info("SongLink worker started")

		for {
			select {
			case <-workerCtx.Done():
				log.Info("SongLink worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("SongLink worker shutting down (stop requested)...")
				return
			case job := <-w.queue:
				w.process(workerCtx, job)
			}
		}
	}()

	return func() {
		close(stopChan)
		cancel()
	}
}

func (w *SongLinkWorker) process(ctx context.Context, job SongLinkJob) {
	if err := w.limiter.Wait(ctx); err != nil {
		return
	}

	job.Attempts++
	logger := log.WithFields(log.Fields{
		"guild_id":   job.GuildID,
		"channel_id": job.ChannelID,
		"url":        job.URL,
		"attempt":    job.Attempts,
	})

	song, err := w.resolver.Resolve(ctx, job.URL)
	switch {
	case err == nil:
		observability.GetMetrics().RecordSongLinkRequest(observability.SongLinkResultResolved)
		if err := w.poster.PostSong(ctx, job.ChannelID, song); err != nil {
			logger.WithError(err).Error("Failed to post SongLink embed")
		}
		w.publish(job, song.PageURL, events.SongLinkOutcomeResolved)
	case errors.Is(err, songlink.ErrRateLimited):
		observability.GetMetrics().RecordSongLinkRequest(observability.SongLinkResultRateLimited)
		w.retry(logger, job, w.cfg.RateLimitDelay, err)
	case errors.Is(err, songlink.ErrServer):
		observability.GetMetrics().RecordSongLinkRequest(observability.SongLinkResultServerError)
		w.retry(logger, job, w.cfg.ServerErrorDelay, err)
	default:
		observability.GetMetrics().RecordSongLinkRequest(observability.SongLinkResultPermanent)
		logger.WithError(err).Warn("Dropping SongLink link after permanent error")
		w.publish(job, "", events.SongLinkOutcomeFailed)
	}
}

// retry requeues a transiently failed job after delay until attempts run out
func (w *SongLinkWorker) retry(logger *log.Entry, job SongLinkJob, delay time.Duration, cause error) {
	if job.Attempts >= w.cfg.MaxAttempts {
		logger.WithError(cause).Warn("Dropping SongLink link after max attempts")
		w.publish(job, "", events.SongLinkOutcomeFailed)
		return
	}

	logger.WithError(cause).WithField("delay", delay).Info("Requeueing SongLink link")
	time.AfterFunc(delay, func() {
		w.Enqueue(job)
	})
}

func (w *SongLinkWorker) publish(job SongLinkJob, pageURL, outcome string) {
	if w.publisher == nil {
		return
	}
	event := events.SongLinkResolvedEvent{
		GuildID:   job.GuildID,
		ChannelID: job.ChannelID,
		SourceURL: job.URL,
		PageURL:   pageURL,
		Outcome:   outcome,
		Attempts:  job.Attempts,
	}
	if err := w.publisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish event")
	}
}
