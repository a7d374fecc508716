package repository

import (
	"context"
	"testing"

	"cogbot/domain/entities"
	"cogbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTournamentID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

func TestTournamentRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	guildID := int64(4001)
	testDB.SeedGuild(t, guildID)

	repo := newTournamentRepository(testDB.DB, guildID)
	ctx := context.Background()

	t.Run("add is idempotent", func(t *testing.T) {
		added, err := repo.Add(ctx, &entities.Tournament{TournamentID: testTournamentID, ChannelID: 77})
		require.NoError(t, err)
		assert.True(t, added)

		added, err = repo.Add(ctx, &entities.Tournament{TournamentID: testTournamentID, ChannelID: 78})
		require.NoError(t, err)
		assert.False(t, added)

		got, err := repo.Get(ctx, testTournamentID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(77), got.ChannelID)
		assert.Equal(t, "", got.LastState)
		assert.Nil(t, got.RoleID)
	})

	t.Run("role and state updates", func(t *testing.T) {
		role := int64(5)
		require.NoError(t, repo.SetRole(ctx, testTournamentID, &role))
		require.NoError(t, repo.UpdateState(ctx, testTournamentID, entities.StateRunning))

		got, err := repo.Get(ctx, testTournamentID)
		require.NoError(t, err)
		assert.Equal(t, &role, got.RoleID)
		assert.Equal(t, entities.StateRunning, got.LastState)

		require.NoError(t, repo.SetRole(ctx, testTournamentID, nil))
		got, err = repo.Get(ctx, testTournamentID)
		require.NoError(t, err)
		assert.Nil(t, got.RoleID)
	})

	t.Run("match states are replaced", func(t *testing.T) {
		states, err := repo.GetMatchStates(ctx, testTournamentID)
		require.NoError(t, err)
		assert.Empty(t, states)

		require.NoError(t, repo.SaveMatchStates(ctx, testTournamentID, map[string]string{
			"m1": entities.StateWaiting,
			"m2": entities.StateRunning,
		}))
		require.NoError(t, repo.SaveMatchStates(ctx, testTournamentID, map[string]string{
			"m2": entities.StateCompleted,
			"m3": entities.StateWaiting,
		}))

		states, err = repo.GetMatchStates(ctx, testTournamentID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"m2": entities.StateCompleted,
			"m3": entities.StateWaiting,
		}, states)
	})

	t.Run("guilds with tournaments", func(t *testing.T) {
		otherGuild := int64(4002)
		testDB.SeedGuild(t, otherGuild)
		other := newTournamentRepository(testDB.DB, otherGuild)
		_, err := other.Add(ctx, &entities.Tournament{TournamentID: testTournamentID, ChannelID: 1})
		require.NoError(t, err)

		guilds, err := repo.GetGuildsWithTournaments(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{guildID, otherGuild}, guilds)

		list, err := other.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, otherGuild, list[0].GuildID)
	})

	t.Run("remove cascades match states", func(t *testing.T) {
		removed, err := repo.Remove(ctx, testTournamentID)
		require.NoError(t, err)
		assert.True(t, removed)

		states, err := repo.GetMatchStates(ctx, testTournamentID)
		require.NoError(t, err)
		assert.Empty(t, states)

		removed, err = repo.Remove(ctx, testTournamentID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestMatchVoiceChannelRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	guildID := int64(4101)
	testDB.SeedGuild(t, guildID)

	repo := newMatchVoiceChannelRepository(testDB.DB, guildID)
	ctx := context.Background()

	team0, team1 := 0, 1
	require.NoError(t, repo.Save(ctx, []*entities.MatchVoiceChannel{
		{MatchID: "m1", TournamentID: testTournamentID, ChannelID: 100, TeamNumber: &team0},
		{MatchID: "m1", TournamentID: testTournamentID, ChannelID: 101, TeamNumber: &team1},
		{MatchID: "m2", TournamentID: testTournamentID, ChannelID: 102},
		{MatchID: "m9", TournamentID: "other-tournament", ChannelID: 103},
	}))

	byMatch, err := repo.GetByMatch(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, byMatch, 2)
	assert.Equal(t, guildID, byMatch[0].GuildID)
	assert.Equal(t, &team0, byMatch[0].TeamNumber)

	byTournament, err := repo.GetByTournament(ctx, testTournamentID)
	require.NoError(t, err)
	assert.Len(t, byTournament, 3)

	require.NoError(t, repo.DeleteByMatch(ctx, "m1"))

	byMatch, err = repo.GetByMatch(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, byMatch)

	shared, err := repo.GetByMatch(ctx, "m2")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Nil(t, shared[0].TeamNumber)
}
