package repository

import (
	"context"
	"testing"
	"time"

	"cogbot/domain/entities"
	"cogbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLinkRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountLinkRepository(testDB.DB)
	ctx := context.Background()

	missing, err := repo.GetDiscordID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Link(ctx, "cm-a", 1))
	require.NoError(t, repo.Link(ctx, "cm-b", 2))
	// Relinking replaces the Discord user
	require.NoError(t, repo.Link(ctx, "cm-a", 3))

	id, err := repo.GetDiscordID(ctx, "cm-a")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(3), *id)

	ids, err := repo.GetDiscordIDs(ctx, []string{"cm-a", "cm-b", "cm-c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"cm-a": 3, "cm-b": 2}, ids)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	links, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "cm-a", links[0].CMUserID, "most recent link first")
}

func TestCMCredentialsRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	repo := NewCMCredentialsRepository(testDB.DB)
	ctx := context.Background()

	creds, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	err = repo.SaveAccessToken(ctx, "token", time.Now())
	assert.Error(t, err, "token cannot be cached before credentials exist")

	require.NoError(t, repo.Save(ctx, &entities.CMCredentials{
		APIURL:          "https://api.example.com/graphql",
		TokenURL:        "https://api.example.com/token",
		RefreshKey:      "refresh",
		PollInterval:    time.Second,
		DebugAPILogging: true,
	}))

	creds, err = repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "refresh", creds.RefreshKey)
	assert.Equal(t, entities.MinPollInterval, creds.PollInterval, "poll interval is clamped on save")
	assert.True(t, creds.DebugAPILogging)
	assert.Empty(t, creds.AccessToken)

	expiresAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveAccessToken(ctx, "token", expiresAt))

	creds, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token", creds.AccessToken)
	require.NotNil(t, creds.AccessExpiresAt)
	assert.True(t, expiresAt.Equal(*creds.AccessExpiresAt))

	require.NoError(t, repo.ClearAccessToken(ctx))

	creds, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, creds.AccessToken)
	assert.Nil(t, creds.AccessExpiresAt)
}
