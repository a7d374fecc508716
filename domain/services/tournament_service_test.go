package services

import (
	"context"
	"testing"

	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/interfaces"
	"cogbot/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testTournamentID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

type tournamentMocks struct {
	settings  *testhelpers.MockGuildSettingsRepository
	tourney   *testhelpers.MockTournamentRepository
	voice     *testhelpers.MockMatchVoiceChannelRepository
	links     *testhelpers.MockAccountLinkRepository
	publisher *testhelpers.MockEventPublisher
}

func newTestTournamentService() (interfaces.TournamentService, *tournamentMocks) {
	m := &tournamentMocks{
		settings:  new(testhelpers.MockGuildSettingsRepository),
		tourney:   new(testhelpers.MockTournamentRepository),
		voice:     new(testhelpers.MockMatchVoiceChannelRepository),
		links:     new(testhelpers.MockAccountLinkRepository),
		publisher: new(testhelpers.MockEventPublisher),
	}
	return NewTournamentService(m.settings, m.tourney, m.voice, m.links, m.publisher), m
}

func TestNormalizeUUID(t *testing.T) {
	t.Parallel()

	got, err := NormalizeUUID("  3F2504E0-4F89-11D3-9A0C-0305E82C3301 ")
	require.NoError(t, err)
	assert.Equal(t, testTournamentID, got)

	_, err = NormalizeUUID("not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidUUID)
}

func TestTournamentService_LinkTournament(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		svc, _ := newTestTournamentService()
		assert.ErrorIs(t, svc.LinkTournament(ctx, 1, "abc", 2), ErrInvalidUUID)
	})

	t.Run("links new tournament", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.settings.On("GetOrCreateGuildSettings", ctx, int64(1)).Return(entities.NewGuildSettings(1), nil)
		m.tourney.On("Add", ctx, mock.MatchedBy(func(tr *entities.Tournament) bool {
			return tr.GuildID == 1 && tr.TournamentID == testTournamentID && tr.ChannelID == 2
		})).Return(true, nil)

		require.NoError(t, svc.LinkTournament(ctx, 1, testTournamentID, 2))
		m.tourney.AssertExpectations(t)
	})

	t.Run("already linked", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.settings.On("GetOrCreateGuildSettings", ctx, int64(1)).Return(entities.NewGuildSettings(1), nil)
		m.tourney.On("Add", ctx, mock.Anything).Return(false, nil)

		assert.ErrorIs(t, svc.LinkTournament(ctx, 1, testTournamentID, 2), ErrTournamentAlreadyLinked)
	})
}

func TestTournamentService_UnlinkTournament(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns and forgets active match channels", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		channels := []*entities.MatchVoiceChannel{
			{MatchID: "m1", ChannelID: 10},
			{MatchID: "m1", ChannelID: 11},
			{MatchID: "m2", ChannelID: 12},
		}
		m.voice.On("GetByTournament", ctx, testTournamentID).Return(channels, nil)
		m.tourney.On("Remove", ctx, testTournamentID).Return(true, nil)
		m.voice.On("DeleteByMatch", ctx, "m1").Return(nil).Once()
		m.voice.On("DeleteByMatch", ctx, "m2").Return(nil).Once()

		got, err := svc.UnlinkTournament(ctx, testTournamentID)

		require.NoError(t, err)
		assert.Equal(t, channels, got)
		m.voice.AssertExpectations(t)
	})

	t.Run("not linked", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.voice.On("GetByTournament", ctx, testTournamentID).Return([]*entities.MatchVoiceChannel{}, nil)
		m.tourney.On("Remove", ctx, testTournamentID).Return(false, nil)

		_, err := svc.UnlinkTournament(ctx, testTournamentID)
		assert.ErrorIs(t, err, ErrTournamentNotLinked)
	})
}

func TestTournamentService_SetTournamentRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	role := int64(99)

	svc, m := newTestTournamentService()
	m.tourney.On("Get", ctx, testTournamentID).Return(&entities.Tournament{TournamentID: testTournamentID}, nil)
	m.tourney.On("SetRole", ctx, testTournamentID, &role).Return(nil)
	require.NoError(t, svc.SetTournamentRole(ctx, testTournamentID, &role))

	svc, m = newTestTournamentService()
	m.tourney.On("Get", ctx, testTournamentID).Return(nil, nil)
	assert.ErrorIs(t, svc.SetTournamentRole(ctx, testTournamentID, nil), ErrTournamentNotLinked)
}

func TestTournamentService_ApplySnapshot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reports tournament and match transitions", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.tourney.On("Get", ctx, testTournamentID).Return(&entities.Tournament{
			GuildID: 1, TournamentID: testTournamentID, LastState: entities.StateWaiting,
		}, nil)
		m.tourney.On("UpdateState", ctx, testTournamentID, entities.StateRunning).Return(nil)
		m.tourney.On("GetMatchStates", ctx, testTournamentID).Return(map[string]string{
			"m1": entities.StateWaiting,
			"m2": entities.StateRunning,
		}, nil)
		m.tourney.On("SaveMatchStates", ctx, testTournamentID, map[string]string{
			"m1": entities.StateRunning,
			"m2": entities.StateRunning,
			"m3": entities.StateWaiting,
		}).Return(nil)
		m.publisher.On("Publish", events.TournamentStateChangedEvent{
			GuildID:        1,
			TournamentID:   testTournamentID,
			TournamentName: "Cup",
			OldState:       entities.StateWaiting,
			NewState:       entities.StateRunning,
		}).Return(nil)
		m.publisher.On("Publish", mock.AnythingOfType("events.MatchStateChangedEvent")).Return(nil).Twice()

		transitions, err := svc.ApplySnapshot(ctx, testTournamentID, &entities.TournamentSnapshot{
			ID:    testTournamentID,
			Name:  "Cup",
			State: entities.StateRunning,
			Matches: []entities.MatchSnapshot{
				{ID: "m1", State: entities.StateRunning},
				{ID: "m2", State: entities.StateRunning},
				{ID: "m3", State: entities.StateWaiting},
			},
		})

		require.NoError(t, err)
		assert.True(t, transitions.TournamentChanged)
		assert.Equal(t, entities.StateWaiting, transitions.TournamentOldState)
		require.Len(t, transitions.Matches, 2)
		assert.Equal(t, "m1", transitions.Matches[0].Match.ID)
		assert.Equal(t, entities.StateWaiting, transitions.Matches[0].OldState)
		assert.Equal(t, "m3", transitions.Matches[1].Match.ID)
		assert.Equal(t, "", transitions.Matches[1].OldState)
		m.tourney.AssertExpectations(t)
		m.publisher.AssertExpectations(t)
	})

	t.Run("no changes persists nothing", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.tourney.On("Get", ctx, testTournamentID).Return(&entities.Tournament{
			GuildID: 1, TournamentID: testTournamentID, LastState: entities.StateRunning,
		}, nil)
		m.tourney.On("GetMatchStates", ctx, testTournamentID).Return(map[string]string{"m1": entities.StateRunning}, nil)

		transitions, err := svc.ApplySnapshot(ctx, testTournamentID, &entities.TournamentSnapshot{
			State:   entities.StateRunning,
			Matches: []entities.MatchSnapshot{{ID: "m1", State: entities.StateRunning}},
		})

		require.NoError(t, err)
		assert.False(t, transitions.TournamentChanged)
		assert.Empty(t, transitions.Matches)
		m.tourney.AssertNotCalled(t, "SaveMatchStates", mock.Anything, mock.Anything, mock.Anything)
		m.tourney.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first poll uses concluded matches as baseline", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.tourney.On("Get", ctx, testTournamentID).Return(&entities.Tournament{GuildID: 1, TournamentID: testTournamentID}, nil)
		m.tourney.On("UpdateState", ctx, testTournamentID, entities.StateRunning).Return(nil)
		m.tourney.On("GetMatchStates", ctx, testTournamentID).Return(map[string]string{}, nil)
		m.tourney.On("SaveMatchStates", ctx, testTournamentID, mock.Anything).Return(nil)
		m.publisher.On("Publish", mock.Anything).Return(nil)

		transitions, err := svc.ApplySnapshot(ctx, testTournamentID, &entities.TournamentSnapshot{
			State: entities.StateRunning,
			Matches: []entities.MatchSnapshot{
				{ID: "old", State: entities.StateCompleted},
				{ID: "live", State: entities.StateRunning},
			},
		})

		require.NoError(t, err)
		require.Len(t, transitions.Matches, 1)
		assert.Equal(t, "live", transitions.Matches[0].Match.ID)
	})

	t.Run("unlinked tournament", func(t *testing.T) {
		t.Parallel()
		svc, m := newTestTournamentService()
		m.tourney.On("Get", ctx, testTournamentID).Return(nil, nil)

		_, err := svc.ApplySnapshot(ctx, testTournamentID, &entities.TournamentSnapshot{})
		assert.ErrorIs(t, err, ErrTournamentNotLinked)
	})
}

func TestTournamentService_Accounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cmUser := "9b2c8d6e-1a2b-4c3d-8e9f-0a1b2c3d4e5f"

	svc, m := newTestTournamentService()
	m.links.On("Link", ctx, cmUser, int64(42)).Return(nil)
	m.links.On("GetDiscordIDs", ctx, []string{cmUser, "other"}).Return(map[string]int64{cmUser: 42}, nil)
	m.links.On("List", ctx, 10).Return([]*entities.AccountLink{{CMUserID: cmUser, DiscordUserID: 42}}, nil)
	m.links.On("Count", ctx).Return(1, nil)

	require.NoError(t, svc.LinkAccount(ctx, cmUser, 42))
	assert.ErrorIs(t, svc.LinkAccount(ctx, "bad", 42), ErrInvalidUUID)

	ids, err := svc.ResolveDiscordIDs(ctx, []string{cmUser, "other"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{cmUser: 42}, ids)

	empty, err := svc.ResolveDiscordIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	links, total, err := svc.ListAccountLinks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Equal(t, 1, total)
}
