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

func TestMemberVerificationRepository(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)

	guildID := int64(2001)
	testDB.SeedGuild(t, guildID)

	repo := newMemberVerificationRepository(testDB.DB, guildID)
	ctx := context.Background()

	t.Run("get returns nil when absent", func(t *testing.T) {
		record, err := repo.Get(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("upsert creates and replaces", func(t *testing.T) {
		record := &entities.MemberVerification{UserID: 2, Progress: 1}
		require.NoError(t, repo.Upsert(ctx, record))
		assert.Equal(t, guildID, record.GuildID)
		assert.False(t, record.UpdatedAt.IsZero())

		got, err := repo.Get(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 1, got.Progress)
		assert.False(t, got.Verified)

		record.MarkVerified(time.Now())
		require.NoError(t, repo.Upsert(ctx, record))

		got, err = repo.Get(ctx, 2)
		require.NoError(t, err)
		assert.True(t, got.Verified)
		assert.Equal(t, 0, got.Progress)
		assert.NotNil(t, got.VerifiedAt)
	})

	t.Run("bulk verify skips already verified members", func(t *testing.T) {
		at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		// user 2 is verified by the previous subtest
		require.NoError(t, repo.Upsert(ctx, &entities.MemberVerification{UserID: 3, Progress: 2}))

		changed, err := repo.BulkVerify(ctx, []int64{2, 3, 4}, at)
		require.NoError(t, err)
		assert.Equal(t, 2, changed)

		for _, userID := range []int64{3, 4} {
			got, err := repo.Get(ctx, userID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, got.Verified)
			assert.Equal(t, 0, got.Progress)
			require.NotNil(t, got.VerifiedAt)
			assert.True(t, at.Equal(*got.VerifiedAt))
		}

		changed, err = repo.BulkVerify(ctx, nil, at)
		require.NoError(t, err)
		assert.Zero(t, changed)
	})

	t.Run("records are guild scoped", func(t *testing.T) {
		otherGuild := int64(2002)
		testDB.SeedGuild(t, otherGuild)
		other := newMemberVerificationRepository(testDB.DB, otherGuild)

		got, err := other.Get(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
