package infrastructure

import (
	"testing"

	"cogbot/domain/events"

	"github.com/stretchr/testify/assert"
)

func TestEventSubjectMapper(t *testing.T) {
	t.Parallel()

	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.CaptchaOutcomeEvent{}, "botshield.captcha"},
		{events.VerificationChangedEvent{}, "botshield.verification"},
		{events.ScamDetectedEvent{}, "botshield.scam"},
		{events.MatchStateChangedEvent{}, "cmlink.match.state_changed"},
		{events.TournamentStateChangedEvent{}, "cmlink.tournament.state_changed"},
		{events.SongLinkResolvedEvent{}, "songlink.resolved"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			t.Parallel()
			subject := mapper.MapEventToSubject(tt.event)
			assert.Equal(t, tt.subject, subject)
			assert.Equal(t, tt.event.Type(), mapper.MapSubjectToEventType(subject))
			assert.Contains(t, mapper.GetAllSubjects(), subject)
		})
	}

	assert.Len(t, mapper.GetAllSubjects(), len(eventSubjects))
}
