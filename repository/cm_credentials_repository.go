package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cogbot/database"
	"cogbot/domain/entities"

	"github.com/jackc/pgx/v5"
)

// CMCredentialsRepository implements the CMCredentialsRepository interface.
// The credentials live in a single row.
type CMCredentialsRepository struct {
	q Queryable
}

// NewCMCredentialsRepository creates a new credentials repository
func NewCMCredentialsRepository(db *database.DB) *CMCredentialsRepository {
	return &CMCredentialsRepository{q: db.Pool}
}

// newCMCredentialsRepositoryWithTx creates a new credentials repository with a transaction
func newCMCredentialsRepositoryWithTx(tx Queryable) *CMCredentialsRepository {
	return &CMCredentialsRepository{q: tx}
}

// Get returns the stored credentials, or nil if never saved
func (r *CMCredentialsRepository) Get(ctx context.Context) (*entities.CMCredentials, error) {
	query := `
		SELECT api_url, token_url, refresh_key, access_token, access_expires_at,
		       poll_interval_seconds, debug_api_logging
		FROM cmlink_credentials
		WHERE id = 1
	`

	var creds entities.CMCredentials
	var pollSeconds int
	err := r.q.QueryRow(ctx, query).Scan(
		&creds.APIURL,
		&creds.TokenURL,
		&creds.RefreshKey,
		&creds.AccessToken,
		&creds.AccessExpiresAt,
		&pollSeconds,
		&creds.DebugAPILogging,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}

	creds.PollInterval = time.Duration(pollSeconds) * time.Second
	return &creds, nil
}

// Save creates or replaces the stored credentials
func (r *CMCredentialsRepository) Save(ctx context.Context, creds *entities.CMCredentials) error {
	pollSeconds := int(creds.EffectivePollInterval() / time.Second)

	_, err := r.q.Exec(ctx, `
		INSERT INTO cmlink_credentials (id, api_url, token_url, refresh_key, access_token,
		                                access_expires_at, poll_interval_seconds, debug_api_logging, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (id) DO UPDATE
		SET api_url = EXCLUDED.api_url,
		    token_url = EXCLUDED.token_url,
		    refresh_key = EXCLUDED.refresh_key,
		    access_token = EXCLUDED.access_token,
		    access_expires_at = EXCLUDED.access_expires_at,
		    poll_interval_seconds = EXCLUDED.poll_interval_seconds,
		    debug_api_logging = EXCLUDED.debug_api_logging,
		    updated_at = NOW()
	`,
		creds.APIURL,
		creds.TokenURL,
		creds.RefreshKey,
		creds.AccessToken,
		creds.AccessExpiresAt,
		pollSeconds,
		creds.DebugAPILogging,
	)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// SaveAccessToken stores a freshly exchanged access token
func (r *CMCredentialsRepository) SaveAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	result, err := r.q.Exec(ctx, `
		UPDATE cmlink_credentials
		SET access_token = $1, access_expires_at = $2, updated_at = NOW()
		WHERE id = 1
	`, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("credentials not initialized")
	}
	return nil
}

// ClearAccessToken forgets the cached access token
func (r *CMCredentialsRepository) ClearAccessToken(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `
		UPDATE cmlink_credentials
		SET access_token = '', access_expires_at = NULL, updated_at = NOW()
		WHERE id = 1
	`); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	return nil
}
