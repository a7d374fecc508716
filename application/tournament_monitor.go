package application

import (
	"context"
	"fmt"
	"time"

	"cogbot/application/dto"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"
	"cogbot/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

// CredentialsSource provides the current Challenger Mode settings
type CredentialsSource interface {
	Credentials(ctx context.Context) (*entities.CMCredentials, error)
}

// TournamentMonitor polls linked tournaments and turns state transitions into Discord actions
type TournamentMonitor struct {
	uowFactory  UnitOfWorkFactory
	fetcher     TournamentFetcher
	poster      MatchPoster
	credentials CredentialsSource
	interval    time.Duration
}

// NewTournamentMonitor creates a new tournament monitor
func NewTournamentMonitor(
	uowFactory UnitOfWorkFactory,
	fetcher TournamentFetcher,
	poster MatchPoster,
	credentials CredentialsSource,
	defaultInterval time.Duration,
) *TournamentMonitor {
	if defaultInterval < entities.MinPollInterval {
		defaultInterval = entities.MinPollInterval
	}
	return &TournamentMonitor{
		uowFactory:  uowFactory,
		fetcher:     fetcher,
		poster:      poster,
		credentials: credentials,
		interval:    defaultInterval,
	}
}

// Start begins polling and returns a function that stops the worker
func (m *TournamentMonitor) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	interval := m.pollInterval(ctx)
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		log.WithField("interval", interval).Info("Tournament monitor started")

		for {
			select {
			case <-ctx.Done():
				log.Info("Tournament monitor shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Tournament monitor shutting down (stop requested)...")
				return
			case <-ticker.C:
				if err := m.PollOnce(ctx); err != nil {
					log.WithError(err).Error("Tournament poll failed")
				}

				if next := m.pollInterval(ctx); next != interval {
					log.WithFields(log.Fields{
						"old_interval": interval,
						"new_interval": next,
					}).Info("Tournament poll interval changed")
					interval = next
					ticker.Reset(interval)
				}
			}
		}
	}()

	return func() {
		close(stopChan)
	}
}

// pollInterval reads the configured interval, keeping the previous one when settings are unavailable
func (m *TournamentMonitor) pollInterval(ctx context.Context) time.Duration {
	if m.credentials == nil {
		return m.interval
	}
	creds, err := m.credentials.Credentials(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to read poll interval, keeping previous value")
		return m.interval
	}
	m.interval = creds.EffectivePollInterval()
	return m.interval
}

// PollOnce polls every linked tournament of every guild once
func (m *TournamentMonitor) PollOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		observability.GetMetrics().RecordCMLinkPoll(time.Since(start))
	}()

	tempUow := m.uowFactory.CreateForGuild(0)
	if err := tempUow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	guildIDs, err := tempUow.TournamentRepository().GetGuildsWithTournaments(ctx)
	tempUow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to get guilds with tournaments: %w", err)
	}

	for _, guildID := range guildIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.pollGuild(ctx, guildID); err != nil {
			log.WithError(err).WithField("guild_id", guildID).Error("Failed to poll guild tournaments")
		}
	}
	return nil
}

func (m *TournamentMonitor) pollGuild(ctx context.Context, guildID int64) error {
	uow := m.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	settings, err := uow.GuildSettingsRepository().GetGuildSettings(ctx, guildID)
	if err != nil {
		uow.Rollback()
		return fmt.Errorf("failed to get guild settings: %w", err)
	}
	tournaments, err := uow.TournamentRepository().List(ctx)
	uow.Rollback()
	if err != nil {
		return fmt.Errorf("failed to list tournaments: %w", err)
	}

	if settings == nil {
		settings = entities.NewGuildSettings(guildID)
	}

	for _, tournament := range tournaments {
		if err := m.pollTournament(ctx, settings, tournament); err != nil {
			log.WithFields(log.Fields{
				"guild_id":      guildID,
				"tournament_id": tournament.TournamentID,
				"error":         err,
			}).Error("Failed to poll tournament")
		}
	}
	return nil
}

// pollTournament applies one snapshot and dispatches the resulting transitions.
// State is committed before Discord actions run, so a failed action is not retried.
func (m *TournamentMonitor) pollTournament(ctx context.Context, settings *entities.GuildSettings, tournament *entities.Tournament) error {
	snapshot, err := m.fetcher.TournamentMatches(ctx, tournament.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to fetch tournament: %w", err)
	}

	uow := m.uowFactory.CreateForGuild(tournament.GuildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tournamentService := m.tournamentService(uow)

	transitions, err := tournamentService.ApplySnapshot(ctx, tournament.TournamentID, snapshot)
	if err != nil {
		return err
	}
	if !transitions.TournamentChanged && len(transitions.Matches) == 0 {
		return uow.Commit()
	}

	discordIDs, err := tournamentService.ResolveDiscordIDs(ctx, participantIDs(snapshot, transitions))
	if err != nil {
		return err
	}

	tracked := make(map[string][]*entities.MatchVoiceChannel)
	for _, t := range transitions.Matches {
		if t.Match.State != entities.StateRunning && !entities.IsConcludedState(t.Match.State) {
			continue
		}
		channels, err := tournamentService.MatchChannels(ctx, t.Match.ID)
		if err != nil {
			return err
		}
		tracked[t.Match.ID] = channels
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	tc := dto.TournamentContext{
		GuildID:           tournament.GuildID,
		TournamentID:      tournament.TournamentID,
		TournamentName:    snapshot.DisplayName(),
		AnnounceChannelID: tournament.ChannelID,
		RoleID:            tournament.RoleID,
		LobbyVoiceID:      settings.LobbyVoiceID,
		CategoryID:        settings.TournamentCategoryID,
		DiscordIDs:        discordIDs,
	}
	if settings.HasUpdateChannel() {
		tc.AnnounceChannelID = *settings.UpdateChannelID
	}

	if transitions.TournamentChanged {
		m.dispatchTournament(ctx, dto.TournamentAnnouncementDTO{
			TournamentContext: tc,
			OldState:          transitions.TournamentOldState,
			NewState:          transitions.TournamentNewState,
			Snapshot:          snapshot,
		})
	}

	for _, t := range transitions.Matches {
		m.dispatchMatch(ctx, dto.MatchTransitionDTO{
			TournamentContext: tc,
			Match:             t.Match,
			OldState:          t.OldState,
			Channels:          tracked[t.Match.ID],
		})
	}

	return nil
}

func (m *TournamentMonitor) dispatchTournament(ctx context.Context, announcement dto.TournamentAnnouncementDTO) {
	logger := log.WithFields(log.Fields{
		"guild_id":      announcement.GuildID,
		"tournament_id": announcement.TournamentID,
		"old_state":     announcement.OldState,
		"new_state":     announcement.NewState,
	})
	logger.Info("Tournament state changed")

	switch announcement.NewState {
	case entities.StateRunning:
		if err := m.poster.AnnounceTournamentStarted(ctx, announcement); err != nil {
			logger.WithError(err).Error("Failed to announce tournament start")
		}
	case entities.StateCompleted:
		if err := m.poster.AnnounceTournamentConcluded(ctx, announcement); err != nil {
			logger.WithError(err).Error("Failed to announce tournament conclusion")
		}
	}
}

func (m *TournamentMonitor) dispatchMatch(ctx context.Context, transition dto.MatchTransitionDTO) {
	logger := log.WithFields(log.Fields{
		"guild_id":      transition.GuildID,
		"tournament_id": transition.TournamentID,
		"match_id":      transition.Match.ID,
		"old_state":     transition.OldState,
		"new_state":     transition.Match.State,
	})
	logger.Info("Match state changed")

	switch {
	case transition.Match.State == entities.StateWaiting:
		if err := m.poster.NotifyMatchReady(ctx, transition); err != nil {
			logger.WithError(err).Error("Failed to notify match participants")
		}

	case transition.Match.State == entities.StateRunning:
		if len(transition.Channels) > 0 {
			logger.Debug("Match channels already exist, skipping")
			return
		}
		created, err := m.poster.OpenMatchChannels(ctx, transition)
		if err != nil {
			logger.WithError(err).Error("Failed to open match channels")
			return
		}
		if err := m.trackChannels(ctx, transition.GuildID, created); err != nil {
			logger.WithError(err).Error("Failed to track match channels")
		}

	case entities.IsConcludedState(transition.Match.State):
		if err := m.poster.AnnounceMatchConcluded(ctx, transition); err != nil {
			logger.WithError(err).Error("Failed to announce match conclusion")
		}
		if err := m.poster.CloseMatchChannels(ctx, transition); err != nil {
			logger.WithError(err).Error("Failed to close match channels")
		}
		if len(transition.Channels) > 0 {
			if err := m.forgetChannels(ctx, transition.GuildID, transition.Match.ID); err != nil {
				logger.WithError(err).Error("Failed to forget match channels")
			}
		}
	}
}

func (m *TournamentMonitor) trackChannels(ctx context.Context, guildID int64, channels []*entities.MatchVoiceChannel) error {
	if len(channels) == 0 {
		return nil
	}
	return m.withTournamentService(ctx, guildID, func(svc interfaces.TournamentService) error {
		return svc.TrackMatchChannels(ctx, channels)
	})
}

func (m *TournamentMonitor) forgetChannels(ctx context.Context, guildID int64, matchID string) error {
	return m.withTournamentService(ctx, guildID, func(svc interfaces.TournamentService) error {
		return svc.ForgetMatchChannels(ctx, matchID)
	})
}

func (m *TournamentMonitor) withTournamentService(ctx context.Context, guildID int64, fn func(svc interfaces.TournamentService) error) error {
	uow := m.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(m.tournamentService(uow)); err != nil {
		return err
	}
	return uow.Commit()
}

func (m *TournamentMonitor) tournamentService(uow UnitOfWork) interfaces.TournamentService {
	return services.NewTournamentService(
		uow.GuildSettingsRepository(),
		uow.TournamentRepository(),
		uow.MatchVoiceChannelRepository(),
		uow.AccountLinkRepository(),
		uow.EventBus(),
	)
}

// participantIDs collects the users that may be mentioned or moved for the observed transitions
func participantIDs(snapshot *entities.TournamentSnapshot, transitions *interfaces.TournamentTransitions) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(match entities.MatchSnapshot) {
		for _, lineup := range match.Lineups {
			for _, member := range lineup.Members {
				if !seen[member.UserID] {
					seen[member.UserID] = true
					ids = append(ids, member.UserID)
				}
			}
		}
	}

	for _, t := range transitions.Matches {
		add(t.Match)
	}
	if transitions.TournamentChanged && transitions.TournamentNewState == entities.StateCompleted {
		for _, match := range snapshot.Matches {
			add(match)
		}
	}
	return ids
}
