package repository

import (
	"context"
	"fmt"
)

// SongChannelRepository implements the SongChannelRepository interface
type SongChannelRepository struct {
	q       Queryable
	guildID int64
}

// newSongChannelRepository creates a guild-scoped song channel repository
func newSongChannelRepository(q Queryable, guildID int64) *SongChannelRepository {
	return &SongChannelRepository{q: q, guildID: guildID}
}

// Add registers a channel and reports whether it was newly added
func (r *SongChannelRepository) Add(ctx context.Context, channelID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		INSERT INTO song_channels (guild_id, channel_id)
		VALUES ($1, $2)
		ON CONFLICT (guild_id, channel_id) DO NOTHING
	`, r.guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to add song channel %d: %w", channelID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Remove unregisters a channel and reports whether it was registered
func (r *SongChannelRepository) Remove(ctx context.Context, channelID int64) (bool, error) {
	result, err := r.q.Exec(ctx, `
		DELETE FROM song_channels WHERE guild_id = $1 AND channel_id = $2
	`, r.guildID, channelID)
	if err != nil {
		return false, fmt.Errorf("failed to remove song channel %d: %w", channelID, err)
	}
	return result.RowsAffected() == 1, nil
}

// List returns registered channel IDs in registration order
func (r *SongChannelRepository) List(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT channel_id FROM song_channels
		WHERE guild_id = $1
		ORDER BY created_at, channel_id
	`, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list song channels: %w", err)
	}
	defer rows.Close()

	var channels []int64
	for rows.Next() {
		var channelID int64
		if err := rows.Scan(&channelID); err != nil {
			return nil, fmt.Errorf("failed to scan song channel: %w", err)
		}
		channels = append(channels, channelID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating song channels: %w", err)
	}

	return channels, nil
}

// Contains reports whether a channel is registered
func (r *SongChannelRepository) Contains(ctx context.Context, channelID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM song_channels WHERE guild_id = $1 AND channel_id = $2)
	`, r.guildID, channelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check song channel %d: %w", channelID, err)
	}
	return exists, nil
}
