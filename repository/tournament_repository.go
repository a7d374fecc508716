package repository

import (
	"context"
	"errors"
	"fmt"

	"cogbot/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TournamentRepository implements the TournamentRepository interface
type TournamentRepository struct {
	q       Queryable
	guildID int64
}

// newTournamentRepository creates a guild-scoped tournament repository
func newTournamentRepository(q Queryable, guildID int64) *TournamentRepository {
	return &TournamentRepository{q: q, guildID: guildID}
}

// Add links a tournament and reports whether it was newly linked
func (r *TournamentRepository) Add(ctx context.Context, tournament *entities.Tournament) (bool, error) {
	query := `
		INSERT INTO tournaments (guild_id, tournament_id, channel_id, role_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (guild_id, tournament_id) DO NOTHING
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		tournament.TournamentID,
		tournament.ChannelID,
		tournament.RoleID,
	).Scan(&tournament.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to add tournament %s: %w", tournament.TournamentID, err)
	}

	tournament.GuildID = r.guildID
	return true, nil
}

// Remove unlinks a tournament and reports whether it was linked; match states cascade
func (r *TournamentRepository) Remove(ctx context.Context, tournamentID string) (bool, error) {
	result, err := r.q.Exec(ctx, `
		DELETE FROM tournaments WHERE guild_id = $1 AND tournament_id = $2
	`, r.guildID, tournamentID)
	if err != nil {
		return false, fmt.Errorf("failed to remove tournament %s: %w", tournamentID, err)
	}
	return result.RowsAffected() == 1, nil
}

// Get returns a linked tournament, or nil if not linked
func (r *TournamentRepository) Get(ctx context.Context, tournamentID string) (*entities.Tournament, error) {
	query := `
		SELECT guild_id, tournament_id, channel_id, role_id, COALESCE(last_state, ''), created_at
		FROM tournaments
		WHERE guild_id = $1 AND tournament_id = $2
	`

	var t entities.Tournament
	err := r.q.QueryRow(ctx, query, r.guildID, tournamentID).Scan(
		&t.GuildID,
		&t.TournamentID,
		&t.ChannelID,
		&t.RoleID,
		&t.LastState,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %s: %w", tournamentID, err)
	}

	return &t, nil
}

// List returns all linked tournaments in the guild, oldest first
func (r *TournamentRepository) List(ctx context.Context) ([]*entities.Tournament, error) {
	query := `
		SELECT guild_id, tournament_id, channel_id, role_id, COALESCE(last_state, ''), created_at
		FROM tournaments
		WHERE guild_id = $1
		ORDER BY created_at, tournament_id
	`

	rows, err := r.q.Query(ctx, query, r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*entities.Tournament
	for rows.Next() {
		var t entities.Tournament
		if err := rows.Scan(&t.GuildID, &t.TournamentID, &t.ChannelID, &t.RoleID, &t.LastState, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tournaments: %w", err)
	}

	return tournaments, nil
}

// SetRole sets or clears the announcement role
func (r *TournamentRepository) SetRole(ctx context.Context, tournamentID string, roleID *int64) error {
	result, err := r.q.Exec(ctx, `
		UPDATE tournaments SET role_id = $3, updated_at = NOW()
		WHERE guild_id = $1 AND tournament_id = $2
	`, r.guildID, tournamentID, roleID)
	if err != nil {
		return fmt.Errorf("failed to set role for tournament %s: %w", tournamentID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tournament %s not found", tournamentID)
	}
	return nil
}

// UpdateState stores the last observed tournament state
func (r *TournamentRepository) UpdateState(ctx context.Context, tournamentID string, state string) error {
	result, err := r.q.Exec(ctx, `
		UPDATE tournaments SET last_state = $3, updated_at = NOW()
		WHERE guild_id = $1 AND tournament_id = $2
	`, r.guildID, tournamentID, state)
	if err != nil {
		return fmt.Errorf("failed to update state for tournament %s: %w", tournamentID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("tournament %s not found", tournamentID)
	}
	return nil
}

// GetMatchStates returns the last observed state of every match
func (r *TournamentRepository) GetMatchStates(ctx context.Context, tournamentID string) (map[string]string, error) {
	rows, err := r.q.Query(ctx, `
		SELECT match_id, state FROM match_states
		WHERE guild_id = $1 AND tournament_id = $2
	`, r.guildID, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match states for tournament %s: %w", tournamentID, err)
	}
	defer rows.Close()

	states := make(map[string]string)
	for rows.Next() {
		var matchID, state string
		if err := rows.Scan(&matchID, &state); err != nil {
			return nil, fmt.Errorf("failed to scan match state: %w", err)
		}
		states[matchID] = state
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match states: %w", err)
	}

	return states, nil
}

// SaveMatchStates replaces the stored match states
func (r *TournamentRepository) SaveMatchStates(ctx context.Context, tournamentID string, states map[string]string) error {
	matchIDs := make([]string, 0, len(states))
	values := make([]string, 0, len(states))
	for matchID, state := range states {
		matchIDs = append(matchIDs, matchID)
		values = append(values, state)
	}

	_, err := r.q.Exec(ctx, `
		DELETE FROM match_states
		WHERE guild_id = $1 AND tournament_id = $2 AND NOT (match_id = ANY($3::TEXT[]))
	`, r.guildID, tournamentID, matchIDs)
	if err != nil {
		return fmt.Errorf("failed to prune match states for tournament %s: %w", tournamentID, err)
	}

	if len(matchIDs) == 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO match_states (guild_id, tournament_id, match_id, state, updated_at)
		SELECT $1, $2, m.match_id, m.state, NOW()
		FROM UNNEST($3::TEXT[], $4::TEXT[]) AS m(match_id, state)
		ON CONFLICT (guild_id, tournament_id, match_id) DO UPDATE
		SET state = EXCLUDED.state,
		    updated_at = NOW()
		WHERE match_states.state <> EXCLUDED.state
	`, r.guildID, tournamentID, matchIDs, values)
	if err != nil {
		return fmt.Errorf("failed to save match states for tournament %s: %w", tournamentID, err)
	}

	return nil
}

// GetGuildsWithTournaments returns every guild that has at least one linked tournament.
// This query is not guild-scoped.
func (r *TournamentRepository) GetGuildsWithTournaments(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT DISTINCT guild_id FROM tournaments ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get guilds with tournaments: %w", err)
	}
	defer rows.Close()

	var guildIDs []int64
	for rows.Next() {
		var guildID int64
		if err := rows.Scan(&guildID); err != nil {
			return nil, fmt.Errorf("failed to scan guild ID: %w", err)
		}
		guildIDs = append(guildIDs, guildID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guild IDs: %w", err)
	}

	return guildIDs, nil
}
