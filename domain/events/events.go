package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeCaptchaOutcome         EventType = "captcha_outcome"
	EventTypeVerificationChanged    EventType = "verification_changed"
	EventTypeScamDetected           EventType = "scam_detected"
	EventTypeMatchStateChanged      EventType = "match_state_changed"
	EventTypeTournamentStateChanged EventType = "tournament_state_changed"
	EventTypeSongLinkResolved       EventType = "songlink_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// Captcha outcomes
const (
	CaptchaOutcomePassed   = "passed"
	CaptchaOutcomeVerified = "verified"
	CaptchaOutcomeFailed   = "failed"
)

// CaptchaOutcomeEvent is emitted after every captcha challenge
type CaptchaOutcomeEvent struct {
	GuildID   int64  `json:"guild_id"`
	UserID    int64  `json:"user_id"`
	ChannelID int64  `json:"channel_id"`
	Outcome   string `json:"outcome"`
	Reason    string `json:"reason,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Progress  int    `json:"progress"`
	Required  int    `json:"required"`
}

func (e CaptchaOutcomeEvent) Type() EventType {
	return EventTypeCaptchaOutcome
}

// Verification sources
const (
	VerificationSourceCaptcha = "captcha"
	VerificationSourceManual  = "manual"
	VerificationSourceAuto    = "auto"
)

// VerificationChangedEvent is emitted when a member's verified flag changes
type VerificationChangedEvent struct {
	GuildID  int64  `json:"guild_id"`
	UserID   int64  `json:"user_id"`
	Verified bool   `json:"verified"`
	Source   string `json:"source"`
	Count    int    `json:"count,omitempty"` // Members affected by a bulk auto-verify
}

func (e VerificationChangedEvent) Type() EventType {
	return EventTypeVerificationChanged
}

// ScamDetectedEvent is emitted when a message crosses the scam threshold
type ScamDetectedEvent struct {
	GuildID   int64          `json:"guild_id"`
	ChannelID int64          `json:"channel_id"`
	UserID    int64          `json:"user_id"`
	MessageID int64          `json:"message_id"`
	Score     float64        `json:"score"`
	Threshold float64        `json:"threshold"`
	Matches   map[string]int `json:"matches"`
}

func (e ScamDetectedEvent) Type() EventType {
	return EventTypeScamDetected
}

// MatchStateChangedEvent is emitted for each observed match state transition
type MatchStateChangedEvent struct {
	GuildID      int64  `json:"guild_id"`
	TournamentID string `json:"tournament_id"`
	MatchID      string `json:"match_id"`
	ShortID      string `json:"short_id"`
	OldState     string `json:"old_state"`
	NewState     string `json:"new_state"`
}

func (e MatchStateChangedEvent) Type() EventType {
	return EventTypeMatchStateChanged
}

// TournamentStateChangedEvent is emitted for each observed tournament state transition
type TournamentStateChangedEvent struct {
	GuildID        int64  `json:"guild_id"`
	TournamentID   string `json:"tournament_id"`
	TournamentName string `json:"tournament_name"`
	OldState       string `json:"old_state"`
	NewState       string `json:"new_state"`
}

func (e TournamentStateChangedEvent) Type() EventType {
	return EventTypeTournamentStateChanged
}

// SongLink resolution outcomes
const (
	SongLinkOutcomeResolved = "resolved"
	SongLinkOutcomeFailed   = "failed"
)

// SongLinkResolvedEvent is emitted when a queued music link finishes processing
type SongLinkResolvedEvent struct {
	GuildID   int64  `json:"guild_id"`
	ChannelID int64  `json:"channel_id"`
	SourceURL string `json:"source_url"`
	PageURL   string `json:"page_url,omitempty"`
	Outcome   string `json:"outcome"`
	Attempts  int    `json:"attempts"`
}

func (e SongLinkResolvedEvent) Type() EventType {
	return EventTypeSongLinkResolved
}
