package entities

import "time"

// Defaults applied when a guild is first seen
const (
	DefaultCaptchaCount   = 1
	DefaultAutoVerifyDays = -1
	DefaultScamThreshold  = 5.0
)

// GuildSettings represents per-guild configuration for every feature module
type GuildSettings struct {
	GuildID int64 `db:"guild_id"`

	// BotShield
	ShieldEnabled         bool       `db:"shield_enabled"`
	CaptchaCount          int        `db:"captcha_count"`    // Captchas a member must pass before being verified
	AutoVerifyDays        int        `db:"auto_verify_days"` // -1 disabled, 0 everyone joined before setup, N joined N days before setup
	ShieldSetupAt         *time.Time `db:"shield_setup_at"`
	ShieldLogChannelID    *int64     `db:"shield_log_channel_id"` // Nullable - channel for captcha and scam logs
	AlertRoleID           *int64     `db:"alert_role_id"`         // Nullable - role mentioned on scam alerts
	ScamProtectionEnabled bool       `db:"scam_protection_enabled"`
	ScamThreshold         float64    `db:"scam_threshold"`

	// CMLink
	UpdateChannelID      *int64 `db:"update_channel_id"`      // Nullable - channel for tournament announcements
	LobbyVoiceID         *int64 `db:"lobby_voice_id"`         // Nullable - voice channel players wait in
	TournamentCategoryID *int64 `db:"tournament_category_id"` // Nullable - category for match voice channels
}

// NewGuildSettings returns settings with feature defaults for a guild
func NewGuildSettings(guildID int64) *GuildSettings {
	return &GuildSettings{
		GuildID:        guildID,
		CaptchaCount:   DefaultCaptchaCount,
		AutoVerifyDays: DefaultAutoVerifyDays,
		ScamThreshold:  DefaultScamThreshold,
	}
}

// HasLogChannel checks if a shield log channel is configured
func (gs *GuildSettings) HasLogChannel() bool {
	return gs.ShieldLogChannelID != nil && *gs.ShieldLogChannelID > 0
}

// HasAlertRole checks if an alert role is configured
func (gs *GuildSettings) HasAlertRole() bool {
	return gs.AlertRoleID != nil && *gs.AlertRoleID > 0
}

// HasUpdateChannel checks if a tournament update channel is configured
func (gs *GuildSettings) HasUpdateChannel() bool {
	return gs.UpdateChannelID != nil && *gs.UpdateChannelID > 0
}

// HasLobbyVoice checks if a lobby voice channel is configured
func (gs *GuildSettings) HasLobbyVoice() bool {
	return gs.LobbyVoiceID != nil && *gs.LobbyVoiceID > 0
}

// HasTournamentCategory checks if a category for match channels is configured
func (gs *GuildSettings) HasTournamentCategory() bool {
	return gs.TournamentCategoryID != nil && *gs.TournamentCategoryID > 0
}

// SetAlertRole sets the alert role ID
func (gs *GuildSettings) SetAlertRole(roleID *int64) {
	gs.AlertRoleID = roleID
}

// Protect enables captcha protection with the given parameters
func (gs *GuildSettings) Protect(captchaCount, autoVerifyDays int, logChannelID *int64, at time.Time) {
	gs.ShieldEnabled = true
	gs.CaptchaCount = captchaCount
	gs.AutoVerifyDays = autoVerifyDays
	gs.ShieldLogChannelID = logChannelID
	setupAt := at.UTC()
	gs.ShieldSetupAt = &setupAt
}

// Unprotect disables captcha protection and resets its parameters
func (gs *GuildSettings) Unprotect() {
	gs.ShieldEnabled = false
	gs.CaptchaCount = DefaultCaptchaCount
	gs.AutoVerifyDays = DefaultAutoVerifyDays
	gs.ShieldSetupAt = nil
}
