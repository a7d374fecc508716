package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cogbot/domain/events"
	"cogbot/infrastructure/observability"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// SourceService identifies this process in event envelopes
const SourceService = "cogbot"

// EventPublisherClient is the part of the NATS client the publisher needs
type EventPublisherClient interface {
	Publish(ctx context.Context, subject string, data []byte) error
	EnsureStream(streamName string, subjects []string) error
}

// NATSEventPublisher implements the EventPublisher interface using NATS
type NATSEventPublisher struct {
	natsClient    EventPublisherClient
	subjectMapper *EventSubjectMapper
	now           func() time.Time
}

// NewNATSEventPublisher creates a new NATS event publisher
func NewNATSEventPublisher(natsClient EventPublisherClient, subjectMapper *EventSubjectMapper) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
		now:           time.Now,
	}
}

// BuildEventEnvelope wraps an event in a protobuf Struct envelope
func BuildEventEnvelope(event events.Event, eventID string, at time.Time) (*structpb.Struct, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode event payload: %w", err)
	}

	envelope, err := structpb.NewStruct(map[string]any{
		"event_id":       eventID,
		"event_type":     string(event.Type()),
		"source_service": SourceService,
		"timestamp":      at.UTC().Format(time.RFC3339),
		"payload":        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build event envelope: %w", err)
	}
	return envelope, nil
}

// Publish publishes an event to NATS using the appropriate subject
func (p *NATSEventPublisher) Publish(event events.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	subject := p.subjectMapper.MapEventToSubject(event)
	eventID := uuid.New().String()

	envelope, err := BuildEventEnvelope(event, eventID, p.now())
	if err != nil {
		return err
	}

	data, err := proto.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := p.natsClient.Publish(ctx, subject, data); err != nil {
		// No stream bound to the subject yet; the event is dropped rather than failing the caller
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	if metrics := observability.GetMetrics(); metrics != nil {
		metrics.RecordNATSMessagePublished(string(event.Type()))
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   eventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// EnsureEventStream ensures the event stream exists with every published subject
func (p *NATSEventPublisher) EnsureEventStream() error {
	return p.natsClient.EnsureStream(EventStreamName, p.subjectMapper.GetAllSubjects())
}
