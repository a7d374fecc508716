package services

import (
	"context"
	"fmt"

	"cogbot/domain/interfaces"
)

// songChannelService implements the SongChannelService interface
type songChannelService struct {
	guildSettingsRepo interfaces.GuildSettingsRepository
	songChannelRepo   interfaces.SongChannelRepository
}

// NewSongChannelService creates a new SongLink channel service
func NewSongChannelService(
	guildSettingsRepo interfaces.GuildSettingsRepository,
	songChannelRepo interfaces.SongChannelRepository,
) interfaces.SongChannelService {
	return &songChannelService{
		guildSettingsRepo: guildSettingsRepo,
		songChannelRepo:   songChannelRepo,
	}
}

// Register adds a channel to automatic SongLink conversion
func (s *songChannelService) Register(ctx context.Context, guildID, channelID int64) error {
	// Song channels reference the guild row
	if _, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID); err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	added, err := s.songChannelRepo.Add(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to register song channel: %w", err)
	}
	if !added {
		return ErrChannelAlreadyRegistered
	}
	return nil
}

// Remove stops automatic SongLink conversion in a channel
func (s *songChannelService) Remove(ctx context.Context, guildID, channelID int64) error {
	removed, err := s.songChannelRepo.Remove(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to remove song channel: %w", err)
	}
	if !removed {
		return ErrChannelNotRegistered
	}
	return nil
}

// List returns registered channels in registration order
func (s *songChannelService) List(ctx context.Context) ([]int64, error) {
	channels, err := s.songChannelRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list song channels: %w", err)
	}
	return channels, nil
}

// IsRegistered reports whether a channel is registered
func (s *songChannelService) IsRegistered(ctx context.Context, channelID int64) (bool, error) {
	registered, err := s.songChannelRepo.Contains(ctx, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to check song channel: %w", err)
	}
	return registered, nil
}
