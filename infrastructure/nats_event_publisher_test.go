package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"cogbot/domain/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type mockNATSClient struct {
	mock.Mock
}

func (m *mockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *mockNATSClient) EnsureStream(streamName string, subjects []string) error {
	args := m.Called(streamName, subjects)
	return args.Error(0)
}

func TestBuildEventEnvelope(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	event := events.ScamDetectedEvent{GuildID: 1, UserID: 2, Score: 6.5, Matches: map[string]int{"nitro": 2}}

	envelope, err := BuildEventEnvelope(event, "evt-1", at)
	require.NoError(t, err)

	fields := envelope.AsMap()
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "scam_detected", fields["event_type"])
	assert.Equal(t, SourceService, fields["source_service"])
	assert.Equal(t, "2025-05-04T03:02:01Z", fields["timestamp"])

	payload, ok := fields["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 6.5, payload["score"])
	assert.Equal(t, map[string]any{"nitro": float64(2)}, payload["matches"])
}

func TestNATSEventPublisher_Publish(t *testing.T) {
	t.Parallel()

	t.Run("publishes protobuf envelope on mapped subject", func(t *testing.T) {
		t.Parallel()
		client := new(mockNATSClient)
		var published []byte
		client.On("Publish", mock.Anything, "songlink.resolved", mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
			Return(nil)

		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
		require.NoError(t, publisher.Publish(events.SongLinkResolvedEvent{GuildID: 9, Outcome: events.SongLinkOutcomeResolved}))

		var envelope structpb.Struct
		require.NoError(t, proto.Unmarshal(published, &envelope))
		assert.Equal(t, "songlink_resolved", envelope.Fields["event_type"].GetStringValue())
		assert.NotEmpty(t, envelope.Fields["event_id"].GetStringValue())
	})

	t.Run("missing stream is not an error", func(t *testing.T) {
		t.Parallel()
		client := new(mockNATSClient)
		client.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("nats: no response from stream"))

		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
		assert.NoError(t, publisher.Publish(events.CaptchaOutcomeEvent{}))
	})

	t.Run("other failures are returned", func(t *testing.T) {
		t.Parallel()
		client := new(mockNATSClient)
		client.On("Publish", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("connection closed"))

		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
		assert.Error(t, publisher.Publish(events.CaptchaOutcomeEvent{}))
	})

	t.Run("stream covers every subject", func(t *testing.T) {
		t.Parallel()
		client := new(mockNATSClient)
		client.On("EnsureStream", EventStreamName, NewEventSubjectMapper().GetAllSubjects()).Return(nil)

		publisher := NewNATSEventPublisher(client, NewEventSubjectMapper())
		require.NoError(t, publisher.EnsureEventStream())
		client.AssertExpectations(t)
	})
}
