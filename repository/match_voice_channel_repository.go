package repository

import (
	"context"
	"fmt"

	"cogbot/domain/entities"
)

// MatchVoiceChannelRepository implements the MatchVoiceChannelRepository interface
type MatchVoiceChannelRepository struct {
	q       Queryable
	guildID int64
}

// newMatchVoiceChannelRepository creates a guild-scoped match voice channel repository
func newMatchVoiceChannelRepository(q Queryable, guildID int64) *MatchVoiceChannelRepository {
	return &MatchVoiceChannelRepository{q: q, guildID: guildID}
}

// Save records channels created for a match
func (r *MatchVoiceChannelRepository) Save(ctx context.Context, channels []*entities.MatchVoiceChannel) error {
	query := `
		INSERT INTO match_voice_channels (guild_id, match_id, tournament_id, channel_id, team_number)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (guild_id, match_id, channel_id) DO UPDATE
		SET team_number = EXCLUDED.team_number
	`

	for _, ch := range channels {
		if _, err := r.q.Exec(ctx, query, r.guildID, ch.MatchID, ch.TournamentID, ch.ChannelID, ch.TeamNumber); err != nil {
			return fmt.Errorf("failed to save voice channel %d for match %s: %w", ch.ChannelID, ch.MatchID, err)
		}
		ch.GuildID = r.guildID
	}

	return nil
}

// GetByMatch returns the channels created for a match
func (r *MatchVoiceChannelRepository) GetByMatch(ctx context.Context, matchID string) ([]*entities.MatchVoiceChannel, error) {
	return r.list(ctx, `
		SELECT guild_id, match_id, tournament_id, channel_id, team_number
		FROM match_voice_channels
		WHERE guild_id = $1 AND match_id = $2
		ORDER BY team_number NULLS FIRST, channel_id
	`, r.guildID, matchID)
}

// GetByTournament returns the channels of every active match in a tournament
func (r *MatchVoiceChannelRepository) GetByTournament(ctx context.Context, tournamentID string) ([]*entities.MatchVoiceChannel, error) {
	return r.list(ctx, `
		SELECT guild_id, match_id, tournament_id, channel_id, team_number
		FROM match_voice_channels
		WHERE guild_id = $1 AND tournament_id = $2
		ORDER BY match_id, team_number NULLS FIRST, channel_id
	`, r.guildID, tournamentID)
}

// DeleteByMatch forgets the channels of a match
func (r *MatchVoiceChannelRepository) DeleteByMatch(ctx context.Context, matchID string) error {
	if _, err := r.q.Exec(ctx, `
		DELETE FROM match_voice_channels WHERE guild_id = $1 AND match_id = $2
	`, r.guildID, matchID); err != nil {
		return fmt.Errorf("failed to delete voice channels for match %s: %w", matchID, err)
	}
	return nil
}

func (r *MatchVoiceChannelRepository) list(ctx context.Context, query string, args ...any) ([]*entities.MatchVoiceChannel, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match voice channels: %w", err)
	}
	defer rows.Close()

	var channels []*entities.MatchVoiceChannel
	for rows.Next() {
		var ch entities.MatchVoiceChannel
		if err := rows.Scan(&ch.GuildID, &ch.MatchID, &ch.TournamentID, &ch.ChannelID, &ch.TeamNumber); err != nil {
			return nil, fmt.Errorf("failed to scan match voice channel: %w", err)
		}
		channels = append(channels, &ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match voice channels: %w", err)
	}

	return channels, nil
}
