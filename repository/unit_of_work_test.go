package repository

import (
	"context"
	"testing"

	"cogbot/domain/events"
	"cogbot/domain/testhelpers"
	"cogbot/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	t.Run("getters panic before begin", func(t *testing.T) {
		uow := CreateTestUnitOfWork(testDB.DB, 1, nil)
		assert.Panics(t, func() { uow.GuildSettingsRepository() })
		assert.Panics(t, func() { uow.SongChannelRepository() })
		assert.NoError(t, uow.Rollback(), "rollback without a transaction is a no-op")
		assert.Error(t, uow.Commit())
	})

	t.Run("commit persists and flushes events", func(t *testing.T) {
		publisher := new(testhelpers.MockTransactionalEventPublisher)
		publisher.On("Publish", mock.Anything).Return(nil)
		publisher.On("Flush", mock.Anything).Return(nil).Once()

		uow := CreateTestUnitOfWork(testDB.DB, 5001, publisher)
		require.NoError(t, uow.Begin(ctx))
		assert.Error(t, uow.Begin(ctx), "nested begin is rejected")

		_, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, 5001)
		require.NoError(t, err)
		_, err = uow.SongChannelRepository().Add(ctx, 42)
		require.NoError(t, err)
		require.NoError(t, uow.EventBus().Publish(events.SongLinkResolvedEvent{GuildID: 5001}))

		require.NoError(t, uow.Commit())
		publisher.AssertExpectations(t)
		publisher.AssertNotCalled(t, "Discard")

		contains, err := newSongChannelRepository(testDB.DB, 5001).Contains(ctx, 42)
		require.NoError(t, err)
		assert.True(t, contains)
	})

	t.Run("rollback discards writes and events", func(t *testing.T) {
		publisher := new(testhelpers.MockTransactionalEventPublisher)
		publisher.On("Discard").Return().Once()

		uow := CreateTestUnitOfWork(testDB.DB, 5002, publisher)
		require.NoError(t, uow.Begin(ctx))

		_, err := uow.GuildSettingsRepository().GetOrCreateGuildSettings(ctx, 5002)
		require.NoError(t, err)

		require.NoError(t, uow.Rollback())
		publisher.AssertExpectations(t)
		publisher.AssertNotCalled(t, "Flush", mock.Anything)

		settings, err := NewGuildSettingsRepository(testDB.DB).GetGuildSettings(ctx, 5002)
		require.NoError(t, err)
		assert.Nil(t, settings)
	})
}
