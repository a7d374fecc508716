package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
)

// cmCredentialsService implements the CMCredentialsService interface
type cmCredentialsService struct {
	credentialsRepo interfaces.CMCredentialsRepository
	defaults        entities.CMCredentials
}

// NewCMCredentialsService creates a new credentials service. defaults seed the stored
// credentials the first time they are read.
func NewCMCredentialsService(credentialsRepo interfaces.CMCredentialsRepository, defaults entities.CMCredentials) interfaces.CMCredentialsService {
	return &cmCredentialsService{
		credentialsRepo: credentialsRepo,
		defaults:        defaults,
	}
}

// GetCredentials returns stored credentials, seeding them from defaults on first use
func (s *cmCredentialsService) GetCredentials(ctx context.Context) (*entities.CMCredentials, error) {
	creds, err := s.credentialsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	if creds != nil {
		return creds, nil
	}

	seeded := s.defaults
	seeded.AccessToken = ""
	seeded.AccessExpiresAt = nil
	if seeded.PollInterval < entities.MinPollInterval {
		seeded.PollInterval = entities.MinPollInterval
	}

	if err := s.credentialsRepo.Save(ctx, &seeded); err != nil {
		return nil, fmt.Errorf("failed to seed credentials: %w", err)
	}
	return &seeded, nil
}

// SetAPIURL sets the GraphQL endpoint
func (s *cmCredentialsService) SetAPIURL(ctx context.Context, apiURL string) error {
	apiURL, err := validateHTTPURL(apiURL)
	if err != nil {
		return err
	}
	return s.update(ctx, func(c *entities.CMCredentials) { c.APIURL = apiURL })
}

// SetTokenURL sets the access key exchange endpoint
func (s *cmCredentialsService) SetTokenURL(ctx context.Context, tokenURL string) error {
	tokenURL, err := validateHTTPURL(tokenURL)
	if err != nil {
		return err
	}
	return s.update(ctx, func(c *entities.CMCredentials) {
		c.TokenURL = tokenURL
		c.AccessToken = ""
		c.AccessExpiresAt = nil
	})
}

// SetRefreshKey sets the refresh key and drops the cached access token
func (s *cmCredentialsService) SetRefreshKey(ctx context.Context, refreshKey string) error {
	return s.update(ctx, func(c *entities.CMCredentials) {
		c.RefreshKey = strings.TrimSpace(refreshKey)
		c.AccessToken = ""
		c.AccessExpiresAt = nil
	})
}

// SetPollInterval sets the tournament poll interval
func (s *cmCredentialsService) SetPollInterval(ctx context.Context, interval time.Duration) error {
	if interval < entities.MinPollInterval {
		return ErrInvalidPollInterval
	}
	return s.update(ctx, func(c *entities.CMCredentials) { c.PollInterval = interval })
}

// SetDebugLogging toggles request/response logging
func (s *cmCredentialsService) SetDebugLogging(ctx context.Context, enabled bool) error {
	return s.update(ctx, func(c *entities.CMCredentials) { c.DebugAPILogging = enabled })
}

// StoreAccessToken caches an exchanged access token
func (s *cmCredentialsService) StoreAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	if _, err := s.GetCredentials(ctx); err != nil {
		return err
	}
	if err := s.credentialsRepo.SaveAccessToken(ctx, token, expiresAt.UTC()); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	return nil
}

// ClearAccessToken drops the cached access token
func (s *cmCredentialsService) ClearAccessToken(ctx context.Context) error {
	if err := s.credentialsRepo.ClearAccessToken(ctx); err != nil {
		return fmt.Errorf("failed to clear access token: %w", err)
	}
	return nil
}

func (s *cmCredentialsService) update(ctx context.Context, apply func(*entities.CMCredentials)) error {
	creds, err := s.GetCredentials(ctx)
	if err != nil {
		return err
	}

	apply(creds)

	if err := s.credentialsRepo.Save(ctx, creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

func validateHTTPURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return raw, nil
}
