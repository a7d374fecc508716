package interfaces

import (
	"context"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/events"
)

// GuildSettingsRepository defines the interface for guild settings data access
type GuildSettingsRepository interface {
	// GetOrCreateGuildSettings retrieves guild settings or creates default ones if not found
	GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error)

	// GetGuildSettings retrieves guild settings, returning nil if the guild has none
	GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error)

	// UpdateGuildSettings persists guild settings
	UpdateGuildSettings(ctx context.Context, settings *entities.GuildSettings) error

	// DeleteGuildSettings removes the guild and every guild-owned record
	DeleteGuildSettings(ctx context.Context, guildID int64) error
}

// MemberVerificationRepository defines the interface for captcha verification records.
// Implementations are scoped to a single guild.
type MemberVerificationRepository interface {
	// Get returns the member's record, or nil if none exists
	Get(ctx context.Context, userID int64) (*entities.MemberVerification, error)

	// Upsert creates or replaces the member's record
	Upsert(ctx context.Context, record *entities.MemberVerification) error

	// BulkVerify marks the given members verified and returns how many rows changed
	BulkVerify(ctx context.Context, userIDs []int64, at time.Time) (int, error)
}

// SongChannelRepository defines the interface for SongLink channel registrations.
// Implementations are scoped to a single guild.
type SongChannelRepository interface {
	// Add registers a channel and reports whether it was newly added
	Add(ctx context.Context, channelID int64) (bool, error)

	// Remove unregisters a channel and reports whether it was registered
	Remove(ctx context.Context, channelID int64) (bool, error)

	// List returns registered channel IDs in registration order
	List(ctx context.Context) ([]int64, error)

	// Contains reports whether a channel is registered
	Contains(ctx context.Context, channelID int64) (bool, error)
}

// TournamentRepository defines the interface for linked tournaments and their poll state.
// Implementations are scoped to a single guild except GetGuildsWithTournaments.
type TournamentRepository interface {
	// Add links a tournament and reports whether it was newly linked
	Add(ctx context.Context, tournament *entities.Tournament) (bool, error)

	// Remove unlinks a tournament and reports whether it was linked
	Remove(ctx context.Context, tournamentID string) (bool, error)

	// Get returns a linked tournament, or nil if not linked
	Get(ctx context.Context, tournamentID string) (*entities.Tournament, error)

	// List returns all linked tournaments in the guild
	List(ctx context.Context) ([]*entities.Tournament, error)

	// SetRole sets or clears the announcement role
	SetRole(ctx context.Context, tournamentID string, roleID *int64) error

	// UpdateState stores the last observed tournament state
	UpdateState(ctx context.Context, tournamentID string, state string) error

	// GetMatchStates returns the last observed state of every match
	GetMatchStates(ctx context.Context, tournamentID string) (map[string]string, error)

	// SaveMatchStates replaces the stored match states
	SaveMatchStates(ctx context.Context, tournamentID string, states map[string]string) error

	// GetGuildsWithTournaments returns every guild that has at least one linked tournament
	GetGuildsWithTournaments(ctx context.Context) ([]int64, error)
}

// MatchVoiceChannelRepository defines the interface for tracking match voice channels.
// Implementations are scoped to a single guild.
type MatchVoiceChannelRepository interface {
	// Save records channels created for a match
	Save(ctx context.Context, channels []*entities.MatchVoiceChannel) error

	// GetByMatch returns the channels created for a match
	GetByMatch(ctx context.Context, matchID string) ([]*entities.MatchVoiceChannel, error)

	// GetByTournament returns the channels of every active match in a tournament
	GetByTournament(ctx context.Context, tournamentID string) ([]*entities.MatchVoiceChannel, error)

	// DeleteByMatch forgets the channels of a match
	DeleteByMatch(ctx context.Context, matchID string) error
}

// AccountLinkRepository defines the interface for Challenger Mode account links (bot-wide)
type AccountLinkRepository interface {
	// Link connects a Challenger Mode user to a Discord user, replacing any previous link
	Link(ctx context.Context, cmUserID string, discordUserID int64) error

	// GetDiscordID returns the linked Discord user, or nil if unlinked
	GetDiscordID(ctx context.Context, cmUserID string) (*int64, error)

	// GetDiscordIDs resolves several Challenger Mode users at once; unlinked users are omitted
	GetDiscordIDs(ctx context.Context, cmUserIDs []string) (map[string]int64, error)

	// List returns the most recent links
	List(ctx context.Context, limit int) ([]*entities.AccountLink, error)

	// Count returns the number of links
	Count(ctx context.Context) (int, error)
}

// CMCredentialsRepository defines the interface for the bot-wide Challenger Mode API settings
type CMCredentialsRepository interface {
	// Get returns the stored credentials, or nil if never saved
	Get(ctx context.Context) (*entities.CMCredentials, error)

	// Save creates or replaces the stored credentials
	Save(ctx context.Context, creds *entities.CMCredentials) error

	// SaveAccessToken stores a freshly exchanged access token
	SaveAccessToken(ctx context.Context, token string, expiresAt time.Time) error

	// ClearAccessToken forgets the cached access token
	ClearAccessToken(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction resolves
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes buffered events; called after commit
	Flush(ctx context.Context) error

	// Discard drops buffered events; called on rollback
	Discard()
}
