package testhelpers

import (
	"context"
	"time"

	"cogbot/domain/entities"
	"cogbot/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockGuildSettingsRepository is a mock implementation of GuildSettingsRepository
type MockGuildSettingsRepository struct {
	mock.Mock
}

func (m *MockGuildSettingsRepository) GetOrCreateGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) GetGuildSettings(ctx context.Context, guildID int64) (*entities.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GuildSettings), args.Error(1)
}

func (m *MockGuildSettingsRepository) UpdateGuildSettings(ctx context.Context, settings *entities.GuildSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockGuildSettingsRepository) DeleteGuildSettings(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

// MockMemberVerificationRepository is a mock implementation of MemberVerificationRepository
type MockMemberVerificationRepository struct {
	mock.Mock
}

func (m *MockMemberVerificationRepository) Get(ctx context.Context, userID int64) (*entities.MemberVerification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MemberVerification), args.Error(1)
}

func (m *MockMemberVerificationRepository) Upsert(ctx context.Context, record *entities.MemberVerification) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockMemberVerificationRepository) BulkVerify(ctx context.Context, userIDs []int64, at time.Time) (int, error) {
	args := m.Called(ctx, userIDs, at)
	return args.Int(0), args.Error(1)
}

// MockSongChannelRepository is a mock implementation of SongChannelRepository
type MockSongChannelRepository struct {
	mock.Mock
}

func (m *MockSongChannelRepository) Add(ctx context.Context, channelID int64) (bool, error) {
	args := m.Called(ctx, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSongChannelRepository) Remove(ctx context.Context, channelID int64) (bool, error) {
	args := m.Called(ctx, channelID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSongChannelRepository) List(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockSongChannelRepository) Contains(ctx context.Context, channelID int64) (bool, error) {
	args := m.Called(ctx, channelID)
	return args.Bool(0), args.Error(1)
}

// MockTournamentRepository is a mock implementation of TournamentRepository
type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) Add(ctx context.Context, tournament *entities.Tournament) (bool, error) {
	args := m.Called(ctx, tournament)
	return args.Bool(0), args.Error(1)
}

func (m *MockTournamentRepository) Remove(ctx context.Context, tournamentID string) (bool, error) {
	args := m.Called(ctx, tournamentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTournamentRepository) Get(ctx context.Context, tournamentID string) (*entities.Tournament, error) {
	args := m.Called(ctx, tournamentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) List(ctx context.Context) ([]*entities.Tournament, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tournament), args.Error(1)
}

func (m *MockTournamentRepository) SetRole(ctx context.Context, tournamentID string, roleID *int64) error {
	args := m.Called(ctx, tournamentID, roleID)
	return args.Error(0)
}

func (m *MockTournamentRepository) UpdateState(ctx context.Context, tournamentID string, state string) error {
	args := m.Called(ctx, tournamentID, state)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetMatchStates(ctx context.Context, tournamentID string) (map[string]string, error) {
	args := m.Called(ctx, tournamentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockTournamentRepository) SaveMatchStates(ctx context.Context, tournamentID string, states map[string]string) error {
	args := m.Called(ctx, tournamentID, states)
	return args.Error(0)
}

func (m *MockTournamentRepository) GetGuildsWithTournaments(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockMatchVoiceChannelRepository is a mock implementation of MatchVoiceChannelRepository
type MockMatchVoiceChannelRepository struct {
	mock.Mock
}

func (m *MockMatchVoiceChannelRepository) Save(ctx context.Context, channels []*entities.MatchVoiceChannel) error {
	args := m.Called(ctx, channels)
	return args.Error(0)
}

func (m *MockMatchVoiceChannelRepository) GetByMatch(ctx context.Context, matchID string) ([]*entities.MatchVoiceChannel, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MatchVoiceChannel), args.Error(1)
}

func (m *MockMatchVoiceChannelRepository) GetByTournament(ctx context.Context, tournamentID string) ([]*entities.MatchVoiceChannel, error) {
	args := m.Called(ctx, tournamentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MatchVoiceChannel), args.Error(1)
}

func (m *MockMatchVoiceChannelRepository) DeleteByMatch(ctx context.Context, matchID string) error {
	args := m.Called(ctx, matchID)
	return args.Error(0)
}

// MockAccountLinkRepository is a mock implementation of AccountLinkRepository
type MockAccountLinkRepository struct {
	mock.Mock
}

func (m *MockAccountLinkRepository) Link(ctx context.Context, cmUserID string, discordUserID int64) error {
	args := m.Called(ctx, cmUserID, discordUserID)
	return args.Error(0)
}

func (m *MockAccountLinkRepository) GetDiscordID(ctx context.Context, cmUserID string) (*int64, error) {
	args := m.Called(ctx, cmUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

func (m *MockAccountLinkRepository) GetDiscordIDs(ctx context.Context, cmUserIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, cmUserIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockAccountLinkRepository) List(ctx context.Context, limit int) ([]*entities.AccountLink, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AccountLink), args.Error(1)
}

func (m *MockAccountLinkRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCMCredentialsRepository is a mock implementation of CMCredentialsRepository
type MockCMCredentialsRepository struct {
	mock.Mock
}

func (m *MockCMCredentialsRepository) Get(ctx context.Context) (*entities.CMCredentials, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CMCredentials), args.Error(1)
}

func (m *MockCMCredentialsRepository) Save(ctx context.Context, creds *entities.CMCredentials) error {
	args := m.Called(ctx, creds)
	return args.Error(0)
}

func (m *MockCMCredentialsRepository) SaveAccessToken(ctx context.Context, token string, expiresAt time.Time) error {
	args := m.Called(ctx, token, expiresAt)
	return args.Error(0)
}

func (m *MockCMCredentialsRepository) ClearAccessToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
