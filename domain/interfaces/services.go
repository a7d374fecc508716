package interfaces

import (
	"context"
	"time"

	"cogbot/domain/entities"
)

// GuildSettingsService defines the interface for guild settings operations
type GuildSettingsService interface {
	// GetOrCreateSettings retrieves guild settings or creates default ones if not found
	GetOrCreateSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error)

	// UpdateAlertRole sets the role mentioned on scam alerts (nil clears it)
	UpdateAlertRole(ctx context.Context, guildID int64, roleID *int64) error

	// UpdateScamProtection toggles scam scanning and sets its score threshold
	UpdateScamProtection(ctx context.Context, guildID int64, enabled bool, threshold float64) error

	// UpdateCMLinkChannels sets the tournament channels; nil arguments leave the value unchanged
	UpdateCMLinkChannels(ctx context.Context, guildID int64, updateChannelID, lobbyVoiceID, categoryID *int64) (*entities.GuildSettings, error)

	// DeleteGuildData removes every record owned by the guild
	DeleteGuildData(ctx context.Context, guildID int64) error
}

// ProtectOptions are the parameters of the protect operation
type ProtectOptions struct {
	CaptchaCount   int
	AutoVerifyDays int
	LogChannelID   *int64
	Now            time.Time
}

// ProtectResult summarizes an applied protect operation
type ProtectResult struct {
	Settings     *entities.GuildSettings
	AutoVerified int
}

// ShieldService defines the interface for captcha protection operations
type ShieldService interface {
	// Protect enables protection and auto-verifies eligible existing members
	Protect(ctx context.Context, guildID int64, opts ProtectOptions, members []entities.GuildMemberJoin) (*ProtectResult, error)

	// Unprotect disables protection; verification records are kept
	Unprotect(ctx context.Context, guildID int64) error

	// RequiresChallenge reports whether a member's message must pass a captcha first
	RequiresChallenge(ctx context.Context, guildID, userID int64) (*entities.GuildSettings, bool, error)

	// RecordCaptchaOutcome applies a challenge result to the member's progress
	RecordCaptchaOutcome(ctx context.Context, guildID, userID, channelID int64, outcome entities.CaptchaOutcome) (*entities.CaptchaProgress, error)

	// VerifyMember manually marks a member verified
	VerifyMember(ctx context.Context, guildID, userID int64) error

	// UnverifyMember resets a member's verification and reports whether a record existed
	UnverifyMember(ctx context.Context, guildID, userID int64) (bool, error)
}

// SongChannelService defines the interface for SongLink channel registration
type SongChannelService interface {
	// Register adds a channel; returns ErrChannelAlreadyRegistered when present
	Register(ctx context.Context, guildID, channelID int64) error

	// Remove deletes a channel; returns ErrChannelNotRegistered when absent
	Remove(ctx context.Context, guildID, channelID int64) error

	// List returns registered channels
	List(ctx context.Context) ([]int64, error)

	// IsRegistered reports whether links posted in a channel should be converted
	IsRegistered(ctx context.Context, channelID int64) (bool, error)
}

// TournamentTransitions are the state changes observed in one poll of a tournament
type TournamentTransitions struct {
	TournamentOldState string
	TournamentNewState string
	TournamentChanged  bool
	Matches            []MatchTransition
}

// MatchTransition is one match whose state changed since the previous poll
type MatchTransition struct {
	Match    entities.MatchSnapshot
	OldState string // Empty when the match was not seen before
}

// TournamentService defines the interface for Challenger Mode tournament operations
type TournamentService interface {
	// LinkTournament starts tracking a tournament in the guild
	LinkTournament(ctx context.Context, guildID int64, tournamentID string, channelID int64) error

	// UnlinkTournament stops tracking a tournament and returns its active match channels
	UnlinkTournament(ctx context.Context, tournamentID string) ([]*entities.MatchVoiceChannel, error)

	// SetTournamentRole sets the role mentioned on tournament announcements
	SetTournamentRole(ctx context.Context, tournamentID string, roleID *int64) error

	// ListTournaments returns the guild's linked tournaments
	ListTournaments(ctx context.Context) ([]*entities.Tournament, error)

	// ApplySnapshot diffs a polled snapshot against stored state and persists the new state
	ApplySnapshot(ctx context.Context, tournamentID string, snapshot *entities.TournamentSnapshot) (*TournamentTransitions, error)

	// LinkAccount connects a Challenger Mode user to a Discord user
	LinkAccount(ctx context.Context, cmUserID string, discordUserID int64) error

	// ResolveDiscordIDs maps Challenger Mode users to linked Discord users
	ResolveDiscordIDs(ctx context.Context, cmUserIDs []string) (map[string]int64, error)

	// ListAccountLinks returns the most recent links and the total number of links
	ListAccountLinks(ctx context.Context, limit int) ([]*entities.AccountLink, int, error)

	// ForgetMatchChannels stops tracking the voice channels of a match
	ForgetMatchChannels(ctx context.Context, matchID string) error

	// TrackMatchChannels records voice channels created for a running match
	TrackMatchChannels(ctx context.Context, channels []*entities.MatchVoiceChannel) error

	// MatchChannels returns the voice channels tracked for a match
	MatchChannels(ctx context.Context, matchID string) ([]*entities.MatchVoiceChannel, error)
}

// CMCredentialsService defines the interface for the bot-wide Challenger Mode API settings
type CMCredentialsService interface {
	// GetCredentials returns stored credentials, seeding them from defaults on first use
	GetCredentials(ctx context.Context) (*entities.CMCredentials, error)

	// SetAPIURL sets the GraphQL endpoint
	SetAPIURL(ctx context.Context, apiURL string) error

	// SetTokenURL sets the access key exchange endpoint
	SetTokenURL(ctx context.Context, tokenURL string) error

	// SetRefreshKey sets the refresh key and drops the cached access token
	SetRefreshKey(ctx context.Context, refreshKey string) error

	// SetPollInterval sets the tournament poll interval
	SetPollInterval(ctx context.Context, interval time.Duration) error

	// SetDebugLogging toggles request/response logging
	SetDebugLogging(ctx context.Context, enabled bool) error

	// StoreAccessToken caches an exchanged access token
	StoreAccessToken(ctx context.Context, token string, expiresAt time.Time) error

	// ClearAccessToken drops the cached access token
	ClearAccessToken(ctx context.Context) error
}
