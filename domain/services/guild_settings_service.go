package services

import (
	"context"
	"fmt"

	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
)

// guildSettingsService implements the GuildSettingsService interface
type guildSettingsService struct {
	guildSettingsRepo interfaces.GuildSettingsRepository
}

// NewGuildSettingsService creates a new guild settings service
func NewGuildSettingsService(guildSettingsRepo interfaces.GuildSettingsRepository) interfaces.GuildSettingsService {
	return &guildSettingsService{
		guildSettingsRepo: guildSettingsRepo,
	}
}

// GetOrCreateSettings retrieves guild settings or creates default ones if not found
func (s *guildSettingsService) GetOrCreateSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create guild settings: %w", err)
	}

	return settings, nil
}

// UpdateAlertRole sets the role mentioned on scam alerts
func (s *guildSettingsService) UpdateAlertRole(ctx context.Context, guildID int64, roleID *int64) error {
	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	settings.SetAlertRole(roleID)

	if err := s.guildSettingsRepo.UpdateGuildSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	return nil
}

// UpdateScamProtection toggles scam scanning and sets its threshold
func (s *guildSettingsService) UpdateScamProtection(ctx context.Context, guildID int64, enabled bool, threshold float64) error {
	if threshold <= 0 {
		return ErrInvalidScamThreshold
	}

	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	settings.ScamProtectionEnabled = enabled
	settings.ScamThreshold = threshold

	if err := s.guildSettingsRepo.UpdateGuildSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to update guild settings: %w", err)
	}

	return nil
}

// UpdateCMLinkChannels sets any of the tournament channels that were provided
func (s *guildSettingsService) UpdateCMLinkChannels(ctx context.Context, guildID int64, updateChannelID, lobbyVoiceID, categoryID *int64) (*entities.GuildSettings, error) {
	settings, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guild settings: %w", err)
	}

	if updateChannelID != nil {
		settings.UpdateChannelID = updateChannelID
	}
	if lobbyVoiceID != nil {
		settings.LobbyVoiceID = lobbyVoiceID
	}
	if categoryID != nil {
		settings.TournamentCategoryID = categoryID
	}

	if err := s.guildSettingsRepo.UpdateGuildSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update guild settings: %w", err)
	}

	return settings, nil
}

// DeleteGuildData removes every record owned by the guild
func (s *guildSettingsService) DeleteGuildData(ctx context.Context, guildID int64) error {
	if err := s.guildSettingsRepo.DeleteGuildSettings(ctx, guildID); err != nil {
		return fmt.Errorf("failed to delete guild data: %w", err)
	}
	return nil
}
