package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"cogbot/application"
	"cogbot/application/dto"
	"cogbot/domain/entities"
	"cogbot/infrastructure"
	"cogbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	monitorTournamentID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	linkedCMUser        = "9b2c8d6e-1a2b-4c3d-8e9f-0a1b2c3d4e5f"
	unlinkedCMUser      = "0d1e2f3a-4b5c-4d6e-8f70-8192a3b4c5d6"
)

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot *entities.TournamentSnapshot
}

func (f *fakeFetcher) set(snapshot *entities.TournamentSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snapshot
}

func (f *fakeFetcher) TournamentMatches(ctx context.Context, tournamentID string) (*entities.TournamentSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot, nil
}

type recordingPoster struct {
	mu          sync.Mutex
	started     []dto.TournamentAnnouncementDTO
	concluded   []dto.TournamentAnnouncementDTO
	ready       []dto.MatchTransitionDTO
	opened      []dto.MatchTransitionDTO
	announced   []dto.MatchTransitionDTO
	closed      []dto.MatchTransitionDTO
	nextVoiceID int64
}

func (p *recordingPoster) AnnounceTournamentStarted(ctx context.Context, a dto.TournamentAnnouncementDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, a)
	return nil
}

func (p *recordingPoster) AnnounceTournamentConcluded(ctx context.Context, a dto.TournamentAnnouncementDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.concluded = append(p.concluded, a)
	return nil
}

func (p *recordingPoster) NotifyMatchReady(ctx context.Context, t dto.MatchTransitionDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = append(p.ready, t)
	return nil
}

func (p *recordingPoster) OpenMatchChannels(ctx context.Context, t dto.MatchTransitionDTO) ([]*entities.MatchVoiceChannel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, t)

	var channels []*entities.MatchVoiceChannel
	for _, lineup := range t.Match.Lineups {
		team := lineup.Number
		p.nextVoiceID++
		channels = append(channels, &entities.MatchVoiceChannel{
			GuildID:      t.GuildID,
			MatchID:      t.Match.ID,
			TournamentID: t.TournamentID,
			ChannelID:    p.nextVoiceID,
			TeamNumber:   &team,
		})
	}
	return channels, nil
}

func (p *recordingPoster) AnnounceMatchConcluded(ctx context.Context, t dto.MatchTransitionDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.announced = append(p.announced, t)
	return nil
}

func (p *recordingPoster) CloseMatchChannels(ctx context.Context, t dto.MatchTransitionDTO) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = append(p.closed, t)
	return nil
}

func match(id, state string) entities.MatchSnapshot {
	return entities.MatchSnapshot{
		ID:      id,
		ShortID: id,
		State:   state,
		Lineups: []entities.Lineup{
			{Number: 0, Members: []entities.CMUser{{UserID: linkedCMUser, Username: "alice"}}},
			{Number: 1, Members: []entities.CMUser{{UserID: unlinkedCMUser, Username: "bob"}}},
		},
	}
}

func TestTournamentMonitor_PollOnce(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	guildID := int64(5001)
	updateChannel := int64(600)
	testDB.SeedGuild(t, guildID)

	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())

	uow := uowFactory.CreateForGuild(guildID)
	require.NoError(t, uow.Begin(ctx))
	settings, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, guildID)
	require.NoError(t, err)
	settings.UpdateChannelID = &updateChannel
	require.NoError(t, uow.GuildSettingsRepository().UpdateGuildSettings(ctx, settings))
	added, err := uow.TournamentRepository().Add(ctx, &entities.Tournament{GuildID: guildID, TournamentID: monitorTournamentID, ChannelID: 77})
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, uow.AccountLinkRepository().Link(ctx, linkedCMUser, 42))
	require.NoError(t, uow.Commit())

	fetcher := &fakeFetcher{}
	poster := &recordingPoster{nextVoiceID: 900}
	monitor := application.NewTournamentMonitor(uowFactory, fetcher, poster, nil, time.Minute)

	t.Run("first poll announces start and ignores concluded matches", func(t *testing.T) {
		fetcher.set(&entities.TournamentSnapshot{
			ID:      monitorTournamentID,
			Name:    "Cup",
			State:   entities.StateRunning,
			Matches: []entities.MatchSnapshot{match("old", entities.StateCompleted), match("m1", entities.StateWaiting)},
		})

		require.NoError(t, monitor.PollOnce(ctx))

		require.Len(t, poster.started, 1)
		assert.Equal(t, "Cup", poster.started[0].TournamentName)
		assert.Equal(t, updateChannel, poster.started[0].AnnounceChannelID)

		require.Len(t, poster.ready, 1)
		assert.Equal(t, "m1", poster.ready[0].Match.ID)
		id, ok := poster.ready[0].DiscordID(linkedCMUser)
		assert.True(t, ok)
		assert.Equal(t, int64(42), id)
		_, ok = poster.ready[0].DiscordID(unlinkedCMUser)
		assert.False(t, ok)

		assert.Empty(t, poster.announced)
	})

	t.Run("running match opens and tracks channels", func(t *testing.T) {
		fetcher.set(&entities.TournamentSnapshot{
			ID:      monitorTournamentID,
			Name:    "Cup",
			State:   entities.StateRunning,
			Matches: []entities.MatchSnapshot{match("old", entities.StateCompleted), match("m1", entities.StateRunning)},
		})

		require.NoError(t, monitor.PollOnce(ctx))

		require.Len(t, poster.opened, 1)
		assert.Len(t, poster.started, 1)

		check := uowFactory.CreateForGuild(guildID)
		require.NoError(t, check.Begin(ctx))
		channels, err := check.MatchVoiceChannelRepository().GetByMatch(ctx, "m1")
		check.Rollback()
		require.NoError(t, err)
		assert.Len(t, channels, 2)
	})

	t.Run("unchanged snapshot dispatches nothing", func(t *testing.T) {
		require.NoError(t, monitor.PollOnce(ctx))

		assert.Len(t, poster.opened, 1)
		assert.Len(t, poster.ready, 1)
	})

	t.Run("conclusion announces results and forgets channels", func(t *testing.T) {
		finished := match("m1", entities.StateCompleted)
		pos0, pos1 := 0, 1
		finished.Results = &entities.MatchResults{Final: true, LineupResults: []entities.LineupResult{
			{LineupNumber: 0, Position: &pos0},
			{LineupNumber: 1, Position: &pos1},
		}}
		fetcher.set(&entities.TournamentSnapshot{
			ID:      monitorTournamentID,
			Name:    "Cup",
			State:   entities.StateCompleted,
			Matches: []entities.MatchSnapshot{match("old", entities.StateCompleted), finished},
		})

		require.NoError(t, monitor.PollOnce(ctx))

		require.Len(t, poster.announced, 1)
		require.Len(t, poster.closed, 1)
		assert.Len(t, poster.closed[0].Channels, 2)

		require.Len(t, poster.concluded, 1)
		assert.Equal(t, entities.StateRunning, poster.concluded[0].OldState)
		assert.Len(t, poster.concluded[0].Snapshot.Matches, 2)

		check := uowFactory.CreateForGuild(guildID)
		require.NoError(t, check.Begin(ctx))
		channels, err := check.MatchVoiceChannelRepository().GetByMatch(ctx, "m1")
		require.NoError(t, err)
		assert.Empty(t, channels)
		tournament, err := check.TournamentRepository().Get(ctx, monitorTournamentID)
		check.Rollback()
		require.NoError(t, err)
		assert.Equal(t, entities.StateCompleted, tournament.LastState)
	})
}

func TestTournamentMonitor_StartStop(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	uowFactory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	monitor := application.NewTournamentMonitor(uowFactory, &fakeFetcher{}, &recordingPoster{}, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := monitor.Start(ctx)
	stop()
}
