package repository

import (
	"context"
	"errors"
	"fmt"

	"cogbot/application"
	"cogbot/database"
	"cogbot/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	guildID                int64
	transactionalPublisher interfaces.TransactionalEventPublisher
	guildSettingsRepo      interfaces.GuildSettingsRepository
	verificationRepo       interfaces.MemberVerificationRepository
	songChannelRepo        interfaces.SongChannelRepository
	tournamentRepo         interfaces.TournamentRepository
	voiceChannelRepo       interfaces.MatchVoiceChannelRepository
	accountLinkRepo        interfaces.AccountLinkRepository
	credentialsRepo        interfaces.CMCredentialsRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB) *unitOfWorkFactory {
	return &unitOfWorkFactory{
		db: db,
	}
}

type unitOfWorkFactory struct {
	db *database.DB
}

// CreateForGuildWithPublisher creates a new UnitOfWork with a specific transactional publisher
func (f *unitOfWorkFactory) CreateForGuildWithPublisher(guildID int64, transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		guildID:                guildID,
		transactionalPublisher: transactionalPublisher,
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create guild-scoped repositories with the transaction
	u.guildSettingsRepo = NewGuildSettingsRepositoryWithTx(tx) // Guild settings don't need scoping
	u.verificationRepo = newMemberVerificationRepository(tx, u.guildID)
	u.songChannelRepo = newSongChannelRepository(tx, u.guildID)
	u.tournamentRepo = newTournamentRepository(tx, u.guildID)
	u.voiceChannelRepo = newMatchVoiceChannelRepository(tx, u.guildID)
	u.accountLinkRepo = newAccountLinkRepositoryWithTx(tx)
	u.credentialsRepo = newCMCredentialsRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	return nil
}

// GuildSettingsRepository returns the guild settings repository for this unit of work
func (u *unitOfWork) GuildSettingsRepository() interfaces.GuildSettingsRepository {
	if u.guildSettingsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.guildSettingsRepo
}

// MemberVerificationRepository returns the verification repository for this unit of work
func (u *unitOfWork) MemberVerificationRepository() interfaces.MemberVerificationRepository {
	if u.verificationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.verificationRepo
}

// SongChannelRepository returns the song channel repository for this unit of work
func (u *unitOfWork) SongChannelRepository() interfaces.SongChannelRepository {
	if u.songChannelRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.songChannelRepo
}

// TournamentRepository returns the tournament repository for this unit of work
func (u *unitOfWork) TournamentRepository() interfaces.TournamentRepository {
	if u.tournamentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tournamentRepo
}

// MatchVoiceChannelRepository returns the match voice channel repository for this unit of work
func (u *unitOfWork) MatchVoiceChannelRepository() interfaces.MatchVoiceChannelRepository {
	if u.voiceChannelRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.voiceChannelRepo
}

// AccountLinkRepository returns the account link repository for this unit of work
func (u *unitOfWork) AccountLinkRepository() interfaces.AccountLinkRepository {
	if u.accountLinkRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountLinkRepo
}

// CMCredentialsRepository returns the credentials repository for this unit of work
func (u *unitOfWork) CMCredentialsRepository() interfaces.CMCredentialsRepository {
	if u.credentialsRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.credentialsRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalPublisher
}
