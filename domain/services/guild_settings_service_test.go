package services

import (
	"context"
	"errors"
	"testing"

	"cogbot/domain/entities"
	"cogbot/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGuildSettingsService_UpdateAlertRole(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	roleID := int64(987654321)

	tests := []struct {
		name        string
		roleID      *int64
		setupMock   func(*testhelpers.MockGuildSettingsRepository)
		wantErr     bool
		errContains string
	}{
		{
			name:   "sets role",
			roleID: &roleID,
			setupMock: func(mockRepo *testhelpers.MockGuildSettingsRepository) {
				mockRepo.On("GetOrCreateGuildSettings", ctx, int64(123)).Return(entities.NewGuildSettings(123), nil)
				mockRepo.On("UpdateGuildSettings", ctx, mock.MatchedBy(func(gs *entities.GuildSettings) bool {
					return gs.HasAlertRole() && *gs.AlertRoleID == roleID
				})).Return(nil)
			},
		},
		{
			name:   "clears role",
			roleID: nil,
			setupMock: func(mockRepo *testhelpers.MockGuildSettingsRepository) {
				settings := entities.NewGuildSettings(123)
				settings.SetAlertRole(&roleID)
				mockRepo.On("GetOrCreateGuildSettings", ctx, int64(123)).Return(settings, nil)
				mockRepo.On("UpdateGuildSettings", ctx, mock.MatchedBy(func(gs *entities.GuildSettings) bool {
					return !gs.HasAlertRole()
				})).Return(nil)
			},
		},
		{
			name: "repository error",
			setupMock: func(mockRepo *testhelpers.MockGuildSettingsRepository) {
				mockRepo.On("GetOrCreateGuildSettings", ctx, int64(123)).Return(nil, errors.New("database connection failed"))
			},
			wantErr:     true,
			errContains: "failed to get guild settings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockRepo := new(testhelpers.MockGuildSettingsRepository)
			tt.setupMock(mockRepo)

			err := NewGuildSettingsService(mockRepo).UpdateAlertRole(ctx, 123, tt.roleID)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			assert.NoError(t, err)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestGuildSettingsService_UpdateScamProtection(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mockRepo := new(testhelpers.MockGuildSettingsRepository)
	svc := NewGuildSettingsService(mockRepo)
	assert.ErrorIs(t, svc.UpdateScamProtection(ctx, 1, true, 0), ErrInvalidScamThreshold)

	mockRepo.On("GetOrCreateGuildSettings", ctx, int64(1)).Return(entities.NewGuildSettings(1), nil)
	mockRepo.On("UpdateGuildSettings", ctx, mock.MatchedBy(func(gs *entities.GuildSettings) bool {
		return gs.ScamProtectionEnabled && gs.ScamThreshold == 7.5
	})).Return(nil)

	require.NoError(t, svc.UpdateScamProtection(ctx, 1, true, 7.5))
	mockRepo.AssertExpectations(t)
}

func TestGuildSettingsService_UpdateCMLinkChannels(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	existingLobby := int64(5)
	update := int64(10)

	settings := entities.NewGuildSettings(1)
	settings.LobbyVoiceID = &existingLobby

	mockRepo := new(testhelpers.MockGuildSettingsRepository)
	mockRepo.On("GetOrCreateGuildSettings", ctx, int64(1)).Return(settings, nil)
	mockRepo.On("UpdateGuildSettings", ctx, mock.Anything).Return(nil)

	got, err := NewGuildSettingsService(mockRepo).UpdateCMLinkChannels(ctx, 1, &update, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, update, *got.UpdateChannelID)
	assert.Equal(t, existingLobby, *got.LobbyVoiceID)
	assert.False(t, got.HasTournamentCategory())
}

func TestGuildSettingsService_DeleteGuildData(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mockRepo := new(testhelpers.MockGuildSettingsRepository)
	mockRepo.On("DeleteGuildSettings", ctx, int64(1)).Return(errors.New("locked"))

	err := NewGuildSettingsService(mockRepo).DeleteGuildData(ctx, 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete guild data")
}
