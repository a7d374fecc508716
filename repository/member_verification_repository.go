package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cogbot/domain/entities"

	"github.com/jackc/pgx/v5"
)

// MemberVerificationRepository implements the MemberVerificationRepository interface
type MemberVerificationRepository struct {
	q       Queryable
	guildID int64
}

// newMemberVerificationRepository creates a guild-scoped verification repository
func newMemberVerificationRepository(q Queryable, guildID int64) *MemberVerificationRepository {
	return &MemberVerificationRepository{q: q, guildID: guildID}
}

// Get returns the member's record, or nil if none exists
func (r *MemberVerificationRepository) Get(ctx context.Context, userID int64) (*entities.MemberVerification, error) {
	query := `
		SELECT guild_id, user_id, verified, progress, verified_at, updated_at
		FROM member_verifications
		WHERE guild_id = $1 AND user_id = $2
	`

	var mv entities.MemberVerification
	err := r.q.QueryRow(ctx, query, r.guildID, userID).Scan(
		&mv.GuildID,
		&mv.UserID,
		&mv.Verified,
		&mv.Progress,
		&mv.VerifiedAt,
		&mv.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification for user %d: %w", userID, err)
	}

	return &mv, nil
}

// Upsert creates or replaces the member's record
func (r *MemberVerificationRepository) Upsert(ctx context.Context, record *entities.MemberVerification) error {
	query := `
		INSERT INTO member_verifications (guild_id, user_id, verified, progress, verified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET verified = EXCLUDED.verified,
		    progress = EXCLUDED.progress,
		    verified_at = EXCLUDED.verified_at,
		    updated_at = NOW()
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		r.guildID,
		record.UserID,
		record.Verified,
		record.Progress,
		record.VerifiedAt,
	).Scan(&record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert verification for user %d: %w", record.UserID, err)
	}

	record.GuildID = r.guildID
	return nil
}

// BulkVerify marks the given members verified and returns how many were not verified before
func (r *MemberVerificationRepository) BulkVerify(ctx context.Context, userIDs []int64, at time.Time) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO member_verifications (guild_id, user_id, verified, progress, verified_at, updated_at)
		SELECT $1, user_id, TRUE, 0, $3, NOW()
		FROM UNNEST($2::BIGINT[]) AS user_id
		ON CONFLICT (guild_id, user_id) DO UPDATE
		SET verified = TRUE,
		    progress = 0,
		    verified_at = EXCLUDED.verified_at,
		    updated_at = NOW()
		WHERE member_verifications.verified = FALSE
	`

	result, err := r.q.Exec(ctx, query, r.guildID, userIDs, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to bulk verify %d members: %w", len(userIDs), err)
	}

	return int(result.RowsAffected()), nil
}
