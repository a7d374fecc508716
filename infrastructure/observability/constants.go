package observability

// Metric name prefixes
const (
	MetricPrefix = "cogbot"
)

// Metric names
const (
	// Discord metrics
	MessagesReadTotal = MetricPrefix + ".discord.messages.read.total"

	// BotShield metrics
	CaptchaChallengesTotal = MetricPrefix + ".captcha.challenges.total"
	ScamDetectionsTotal    = MetricPrefix + ".scam.detections.total"

	// SongLink metrics
	SongLinkRequestsTotal = MetricPrefix + ".songlink.requests.total"

	// CMLink metrics
	CMLinkAPIRequestsTotal = MetricPrefix + ".cmlink.api.requests.total"
	CMLinkPollDuration     = MetricPrefix + ".cmlink.poll.duration"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages.published.total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
	LabelResult    = "result"
	LabelOperation = "operation"
	LabelStatus    = "status"
)

// Message types for Discord
const (
	MessageTypeCommand     = "command"
	MessageTypeInteraction = "interaction"
	MessageTypeMessage     = "message"
	MessageTypeReaction    = "reaction"
)

// SongLink request results
const (
	SongLinkResultResolved    = "resolved"
	SongLinkResultRateLimited = "rate_limited"
	SongLinkResultServerError = "server_error"
	SongLinkResultPermanent   = "permanent_error"
)

// Challenger Mode API request statuses
const (
	APIStatusOK        = "ok"
	APIStatusAuthRetry = "auth_retry"
	APIStatusError     = "error"
)
