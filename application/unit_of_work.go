package application

import (
	"context"

	"cogbot/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	GuildSettingsRepository() interfaces.GuildSettingsRepository
	MemberVerificationRepository() interfaces.MemberVerificationRepository
	SongChannelRepository() interfaces.SongChannelRepository
	TournamentRepository() interfaces.TournamentRepository
	MatchVoiceChannelRepository() interfaces.MatchVoiceChannelRepository
	AccountLinkRepository() interfaces.AccountLinkRepository
	CMCredentialsRepository() interfaces.CMCredentialsRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// CreateForGuild creates a new UnitOfWork instance scoped to a specific guild
	CreateForGuild(guildID int64) UnitOfWork
}
