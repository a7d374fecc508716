package repository

import (
	"context"
	"errors"
	"fmt"

	"cogbot/database"
	"cogbot/domain/entities"

	"github.com/jackc/pgx/v5"
)

// AccountLinkRepository implements the AccountLinkRepository interface.
// Links are bot-wide, so the repository is not guild-scoped.
type AccountLinkRepository struct {
	q Queryable
}

// NewAccountLinkRepository creates a new account link repository
func NewAccountLinkRepository(db *database.DB) *AccountLinkRepository {
	return &AccountLinkRepository{q: db.Pool}
}

// newAccountLinkRepositoryWithTx creates a new account link repository with a transaction
func newAccountLinkRepositoryWithTx(tx Queryable) *AccountLinkRepository {
	return &AccountLinkRepository{q: tx}
}

// Link connects a Challenger Mode user to a Discord user, replacing any previous link
func (r *AccountLinkRepository) Link(ctx context.Context, cmUserID string, discordUserID int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO account_links (cm_user_id, discord_user_id, linked_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (cm_user_id) DO UPDATE
		SET discord_user_id = EXCLUDED.discord_user_id,
		    linked_at = NOW()
	`, cmUserID, discordUserID)
	if err != nil {
		return fmt.Errorf("failed to link account %s: %w", cmUserID, err)
	}
	return nil
}

// GetDiscordID returns the linked Discord user, or nil if unlinked
func (r *AccountLinkRepository) GetDiscordID(ctx context.Context, cmUserID string) (*int64, error) {
	var discordID int64
	err := r.q.QueryRow(ctx, `
		SELECT discord_user_id FROM account_links WHERE cm_user_id = $1
	`, cmUserID).Scan(&discordID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get link for %s: %w", cmUserID, err)
	}
	return &discordID, nil
}

// GetDiscordIDs resolves several Challenger Mode users at once; unlinked users are omitted
func (r *AccountLinkRepository) GetDiscordIDs(ctx context.Context, cmUserIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(cmUserIDs))
	if len(cmUserIDs) == 0 {
		return result, nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT cm_user_id, discord_user_id FROM account_links
		WHERE cm_user_id = ANY($1::TEXT[])
	`, cmUserIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get account links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cmUserID string
		var discordID int64
		if err := rows.Scan(&cmUserID, &discordID); err != nil {
			return nil, fmt.Errorf("failed to scan account link: %w", err)
		}
		result[cmUserID] = discordID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account links: %w", err)
	}

	return result, nil
}

// List returns the most recent links
func (r *AccountLinkRepository) List(ctx context.Context, limit int) ([]*entities.AccountLink, error) {
	rows, err := r.q.Query(ctx, `
		SELECT cm_user_id, discord_user_id, linked_at FROM account_links
		ORDER BY linked_at DESC, cm_user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list account links: %w", err)
	}
	defer rows.Close()

	var links []*entities.AccountLink
	for rows.Next() {
		var link entities.AccountLink
		if err := rows.Scan(&link.CMUserID, &link.DiscordUserID, &link.LinkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account link: %w", err)
		}
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account links: %w", err)
	}

	return links, nil
}

// Count returns the number of links
func (r *AccountLinkRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM account_links`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count account links: %w", err)
	}
	return count, nil
}
