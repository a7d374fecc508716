package repository

import (
	"context"
	"errors"
	"fmt"

	"cogbot/database"
	"cogbot/domain/entities"

	"github.com/jackc/pgx/v5"
)

const guildSettingsColumns = `
	guild_id, shield_enabled, captcha_count, auto_verify_days, shield_setup_at,
	shield_log_channel_id, alert_role_id, scam_protection_enabled, scam_threshold,
	update_channel_id, lobby_voice_id, tournament_category_id`

// GuildSettingsRepository implements the GuildSettingsRepository interface
type GuildSettingsRepository struct {
	q Queryable
}

// NewGuildSettingsRepository creates a new guild settings repository
func NewGuildSettingsRepository(db *database.DB) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: db.Pool}
}

// NewGuildSettingsRepositoryWithTx creates a new guild settings repository with a transaction
func NewGuildSettingsRepositoryWithTx(tx Queryable) *GuildSettingsRepository {
	return &GuildSettingsRepository{q: tx}
}

func scanGuildSettings(row pgx.Row) (*entities.GuildSettings, error) {
	var settings entities.GuildSettings
	err := row.Scan(
		&settings.GuildID,
		&settings.ShieldEnabled,
		&settings.CaptchaCount,
		&settings.AutoVerifyDays,
		&settings.ShieldSetupAt,
		&settings.ShieldLogChannelID,
		&settings.AlertRoleID,
		&settings.ScamProtectionEnabled,
		&settings.ScamThreshold,
		&settings.UpdateChannelID,
		&settings.LobbyVoiceID,
		&settings.TournamentCategoryID,
	)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// GetGuildSettings retrieves guild settings, returning nil if the guild has none
func (r *GuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	query := `SELECT ` + guildSettingsColumns + ` FROM guild_settings WHERE guild_id = $1`

	settings, err := scanGuildSettings(r.q.QueryRow(ctx, query, guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings for guild %d: %w", guildID, err)
	}
	return settings, nil
}

// GetOrCreateGuildSettings retrieves guild settings or creates default ones if not found
func (r *GuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	settings, err := r.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	// ON CONFLICT covers a concurrent insert for the same guild
	insertQuery := `
		INSERT INTO guild_settings (guild_id, captcha_count, auto_verify_days, scam_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id) DO UPDATE SET guild_id = EXCLUDED.guild_id
		RETURNING ` + guildSettingsColumns

	defaults := entities.NewGuildSettings(guildID)
	settings, err = scanGuildSettings(r.q.QueryRow(ctx, insertQuery,
		guildID,
		defaults.CaptchaCount,
		defaults.AutoVerifyDays,
		defaults.ScamThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create guild settings for guild %d: %w", guildID, err)
	}

	return settings, nil
}

// UpdateGuildSettings updates guild settings
func (r *GuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *entities.GuildSettings) error {
	query := `
		UPDATE guild_settings
		SET shield_enabled = $2,
		    captcha_count = $3,
		    auto_verify_days = $4,
		    shield_setup_at = $5,
		    shield_log_channel_id = $6,
		    alert_role_id = $7,
		    scam_protection_enabled = $8,
		    scam_threshold = $9,
		    update_channel_id = $10,
		    lobby_voice_id = $11,
		    tournament_category_id = $12,
		    updated_at = NOW()
		WHERE guild_id = $1
	`

	result, err := r.q.Exec(ctx, query,
		settings.GuildID,
		settings.ShieldEnabled,
		settings.CaptchaCount,
		settings.AutoVerifyDays,
		settings.ShieldSetupAt,
		settings.ShieldLogChannelID,
		settings.AlertRoleID,
		settings.ScamProtectionEnabled,
		settings.ScamThreshold,
		settings.UpdateChannelID,
		settings.LobbyVoiceID,
		settings.TournamentCategoryID,
	)
	if err != nil {
		return fmt.Errorf("failed to update guild settings for guild %d: %w", settings.GuildID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("guild settings for guild %d not found", settings.GuildID)
	}

	return nil
}

// DeleteGuildSettings removes the guild row; guild-owned tables cascade
func (r *GuildSettingsRepository) DeleteGuildSettings(ctx context.Context, guildID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM guild_settings WHERE guild_id = $1`, guildID); err != nil {
		return fmt.Errorf("failed to delete guild settings for guild %d: %w", guildID, err)
	}
	return nil
}
