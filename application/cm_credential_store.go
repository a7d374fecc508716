package application

import (
	"context"
	"fmt"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"
)

// CMCredentialStore persists Challenger Mode credentials through short-lived units of work
type CMCredentialStore struct {
	uowFactory UnitOfWorkFactory
	defaults   entities.CMCredentials
}

// NewCMCredentialStore creates a credential store seeded with defaults on first use
func NewCMCredentialStore(uowFactory UnitOfWorkFactory, defaults entities.CMCredentials) *CMCredentialStore {
	return &CMCredentialStore{uowFactory: uowFactory, defaults: defaults}
}

// Credentials returns the stored credentials
func (s *CMCredentialStore) Credentials(ctx context.Context) (*entities.CMCredentials, error) {
	var creds *entities.CMCredentials
	err := s.withService(ctx, func(svc interfaces.CMCredentialsService) error {
		var err error
		creds, err = svc.GetCredentials(ctx)
		return err
	})
	return creds, err
}

// StoreAccessToken caches an exchanged access token
func (s *CMCredentialStore) StoreAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	return s.withService(ctx, func(svc interfaces.CMCredentialsService) error {
		return svc.StoreAccessToken(ctx, token, expiresAt)
	})
}

// ClearAccessToken drops the cached access token
func (s *CMCredentialStore) ClearAccessToken(ctx context.Context) error {
	return s.withService(ctx, func(svc interfaces.CMCredentialsService) error {
		return svc.ClearAccessToken(ctx)
	})
}

func (s *CMCredentialStore) withService(ctx context.Context, fn func(svc interfaces.CMCredentialsService) error) error {
	uow := s.uowFactory.CreateForGuild(0)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	svc := services.NewCMCredentialsService(uow.CMCredentialsRepository(), s.defaults)
	if err := fn(svc); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
