package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cogbot/application"
	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/testhelpers"
	"cogbot/infrastructure/songlink"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type scriptedResolver struct {
	mu      sync.Mutex
	results map[string][]error
	calls   map[string]int
}

func newScriptedResolver() *scriptedResolver {
	return &scriptedResolver{results: make(map[string][]error), calls: make(map[string]int)}
}

func (r *scriptedResolver) script(url string, errs ...error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[url] = errs
}

func (r *scriptedResolver) callCount(url string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[url]
}

func (r *scriptedResolver) Resolve(ctx context.Context, url string) (*entities.SongInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.calls[url]
	r.calls[url]++
	if errs := r.results[url]; n < len(errs) && errs[n] != nil {
		return nil, errs[n]
	}
	return &entities.SongInfo{SourceURL: url, PageURL: "https://song.link/x", Title: "Song", Artist: "Artist"}, nil
}

type recordingSongPoster struct {
	mu    sync.Mutex
	posts []int64
	urls  []string
}

func (p *recordingSongPoster) PostSong(ctx context.Context, channelID int64, song *entities.SongInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, channelID)
	p.urls = append(p.urls, song.SourceURL)
	return nil
}

func (p *recordingSongPoster) posted() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

func fastWorkerConfig() application.SongLinkWorkerConfig {
	return application.SongLinkWorkerConfig{
		MinInterval:      time.Millisecond,
		RateLimitDelay:   5 * time.Millisecond,
		ServerErrorDelay: 5 * time.Millisecond,
		MaxAttempts:      3,
		QueueSize:        8,
	}
}

func TestSongLinkWorker_PostsInOrder(t *testing.T) {
	t.Parallel()

	resolver := newScriptedResolver()
	poster := &recordingSongPoster{}
	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.Anything).Return(nil)

	worker := application.NewSongLinkWorker(resolver, poster, publisher, fastWorkerConfig())
	stop := worker.Start(context.Background())
	defer stop()

	for _, url := range []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"} {
		assert.True(t, worker.Enqueue(application.SongLinkJob{GuildID: 1, ChannelID: 2, URL: url}))
	}

	assert.Eventually(t, func() bool { return len(poster.posted()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"https://youtu.be/a", "https://youtu.be/b", "https://youtu.be/c"}, poster.posted())
	publisher.AssertCalled(t, "Publish", events.SongLinkResolvedEvent{
		GuildID:   1,
		ChannelID: 2,
		SourceURL: "https://youtu.be/a",
		PageURL:   "https://song.link/x",
		Outcome:   events.SongLinkOutcomeResolved,
		Attempts:  1,
	})
}

func TestSongLinkWorker_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	resolver := newScriptedResolver()
	resolver.script("https://youtu.be/retry", songlink.ErrRateLimited, songlink.ErrServer)
	poster := &recordingSongPoster{}
	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.Anything).Return(nil)

	worker := application.NewSongLinkWorker(resolver, poster, publisher, fastWorkerConfig())
	stop := worker.Start(context.Background())
	defer stop()

	worker.Enqueue(application.SongLinkJob{ChannelID: 2, URL: "https://youtu.be/retry"})

	assert.Eventually(t, func() bool { return len(poster.posted()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, resolver.callCount("https://youtu.be/retry"))
}

func TestSongLinkWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	resolver := newScriptedResolver()
	resolver.script("https://youtu.be/down", songlink.ErrServer, songlink.ErrServer, songlink.ErrServer, songlink.ErrServer)
	poster := &recordingSongPoster{}
	publisher := new(testhelpers.MockEventPublisher)
	failed := make(chan struct{}, 1)
	publisher.On("Publish", mock.MatchedBy(func(e events.SongLinkResolvedEvent) bool {
		return e.Outcome == events.SongLinkOutcomeFailed && e.Attempts == 3
	})).Run(func(mock.Arguments) { failed <- struct{}{} }).Return(nil)

	worker := application.NewSongLinkWorker(resolver, poster, publisher, fastWorkerConfig())
	stop := worker.Start(context.Background())
	defer stop()

	worker.Enqueue(application.SongLinkJob{ChannelID: 2, URL: "https://youtu.be/down"})

	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("expected failure event")
	}
	assert.Equal(t, 3, resolver.callCount("https://youtu.be/down"))
	assert.Empty(t, poster.posted())
}

func TestSongLinkWorker_DropsPermanentErrors(t *testing.T) {
	t.Parallel()

	resolver := newScriptedResolver()
	resolver.script("https://youtu.be/bad", songlink.ErrPermanent)
	resolver.script("https://youtu.be/other", errors.New("boom"))
	poster := &recordingSongPoster{}
	publisher := new(testhelpers.MockEventPublisher)
	publisher.On("Publish", mock.Anything).Return(nil)

	worker := application.NewSongLinkWorker(resolver, poster, publisher, fastWorkerConfig())
	stop := worker.Start(context.Background())
	defer stop()

	worker.Enqueue(application.SongLinkJob{ChannelID: 2, URL: "https://youtu.be/bad"})
	worker.Enqueue(application.SongLinkJob{ChannelID: 2, URL: "https://youtu.be/other"})
	worker.Enqueue(application.SongLinkJob{ChannelID: 2, URL: "https://youtu.be/good"})

	assert.Eventually(t, func() bool { return len(poster.posted()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"https://youtu.be/good"}, poster.posted())
	assert.Equal(t, 1, resolver.callCount("https://youtu.be/bad"))
}

func TestSongLinkWorker_EnqueueFullQueue(t *testing.T) {
	t.Parallel()

	cfg := fastWorkerConfig()
	cfg.QueueSize = 1
	worker := application.NewSongLinkWorker(newScriptedResolver(), &recordingSongPoster{}, nil, cfg)

	assert.True(t, worker.Enqueue(application.SongLinkJob{URL: "https://youtu.be/a"}))
	assert.False(t, worker.Enqueue(application.SongLinkJob{URL: "https://youtu.be/b"}))
}
