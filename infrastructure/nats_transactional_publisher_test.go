package infrastructure

import (
	"context"
	"errors"
	"testing"

	"cogbot/domain/events"
	"cogbot/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNATSTransactionalPublisher_Flush(t *testing.T) {
	t.Parallel()

	inner := new(testhelpers.MockEventPublisher)
	first := events.CaptchaOutcomeEvent{GuildID: 1, Outcome: events.CaptchaOutcomeFailed}
	second := events.VerificationChangedEvent{GuildID: 1, Verified: true}
	inner.On("Publish", first).Return(errors.New("boom")).Once()
	inner.On("Publish", second).Return(nil).Once()

	publisher := NewNATSTransactionalPublisher(inner)
	require.NoError(t, publisher.Publish(first))
	require.NoError(t, publisher.Publish(second))

	inner.AssertNotCalled(t, "Publish", mock.Anything)

	// The first failure does not stop the second event
	require.NoError(t, publisher.Flush(context.Background()))
	inner.AssertExpectations(t)

	// Queue is empty after flushing
	require.NoError(t, publisher.Flush(context.Background()))
	inner.AssertNumberOfCalls(t, "Publish", 2)
}

func TestNATSTransactionalPublisher_Discard(t *testing.T) {
	t.Parallel()

	inner := new(testhelpers.MockEventPublisher)
	publisher := NewNATSTransactionalPublisher(inner)

	require.NoError(t, publisher.Publish(events.ScamDetectedEvent{GuildID: 1}))
	publisher.Discard()
	require.NoError(t, publisher.Flush(context.Background()))

	inner.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestNATSTransactionalPublisher_CancelledContext(t *testing.T) {
	t.Parallel()

	inner := new(testhelpers.MockEventPublisher)
	publisher := NewNATSTransactionalPublisher(inner)
	require.NoError(t, publisher.Publish(events.SongLinkResolvedEvent{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, publisher.Flush(ctx))
	inner.AssertNotCalled(t, "Publish", mock.Anything)
}
