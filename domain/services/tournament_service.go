package services

import (
	"context"
	"fmt"
	"strings"

	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// tournamentService implements the TournamentService interface
type tournamentService struct {
	guildSettingsRepo interfaces.GuildSettingsRepository
	tournamentRepo    interfaces.TournamentRepository
	voiceChannelRepo  interfaces.MatchVoiceChannelRepository
	accountLinkRepo   interfaces.AccountLinkRepository
	eventPublisher    interfaces.EventPublisher
}

// NewTournamentService creates a new Challenger Mode tournament service
func NewTournamentService(
	guildSettingsRepo interfaces.GuildSettingsRepository,
	tournamentRepo interfaces.TournamentRepository,
	voiceChannelRepo interfaces.MatchVoiceChannelRepository,
	accountLinkRepo interfaces.AccountLinkRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.TournamentService {
	return &tournamentService{
		guildSettingsRepo: guildSettingsRepo,
		tournamentRepo:    tournamentRepo,
		voiceChannelRepo:  voiceChannelRepo,
		accountLinkRepo:   accountLinkRepo,
		eventPublisher:    eventPublisher,
	}
}

// NormalizeUUID validates a Challenger Mode identifier and returns its canonical form
func NormalizeUUID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidUUID, id)
	}
	return parsed.String(), nil
}

// LinkTournament starts tracking a tournament in the guild
func (s *tournamentService) LinkTournament(ctx context.Context, guildID int64, tournamentID string, channelID int64) error {
	id, err := NormalizeUUID(tournamentID)
	if err != nil {
		return err
	}

	if _, err := s.guildSettingsRepo.GetOrCreateGuildSettings(ctx, guildID); err != nil {
		return fmt.Errorf("failed to get guild settings: %w", err)
	}

	added, err := s.tournamentRepo.Add(ctx, &entities.Tournament{
		GuildID:      guildID,
		TournamentID: id,
		ChannelID:    channelID,
	})
	if err != nil {
		return fmt.Errorf("failed to link tournament: %w", err)
	}
	if !added {
		return ErrTournamentAlreadyLinked
	}

	log.WithFields(log.Fields{
		"guild_id":      guildID,
		"tournament_id": id,
	}).Info("Linked tournament")
	return nil
}

// UnlinkTournament stops tracking a tournament and returns the voice channels of its active matches
func (s *tournamentService) UnlinkTournament(ctx context.Context, tournamentID string) ([]*entities.MatchVoiceChannel, error) {
	id, err := NormalizeUUID(tournamentID)
	if err != nil {
		return nil, err
	}

	channels, err := s.voiceChannelRepo.GetByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get match voice channels: %w", err)
	}

	removed, err := s.tournamentRepo.Remove(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to unlink tournament: %w", err)
	}
	if !removed {
		return nil, ErrTournamentNotLinked
	}

	forgotten := make(map[string]bool)
	for _, ch := range channels {
		if forgotten[ch.MatchID] {
			continue
		}
		if err := s.voiceChannelRepo.DeleteByMatch(ctx, ch.MatchID); err != nil {
			return nil, fmt.Errorf("failed to forget match voice channels: %w", err)
		}
		forgotten[ch.MatchID] = true
	}

	return channels, nil
}

// SetTournamentRole sets or clears the role mentioned on tournament announcements
func (s *tournamentService) SetTournamentRole(ctx context.Context, tournamentID string, roleID *int64) error {
	id, err := NormalizeUUID(tournamentID)
	if err != nil {
		return err
	}

	tournament, err := s.tournamentRepo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return ErrTournamentNotLinked
	}

	if err := s.tournamentRepo.SetRole(ctx, id, roleID); err != nil {
		return fmt.Errorf("failed to set tournament role: %w", err)
	}
	return nil
}

// ListTournaments returns the guild's linked tournaments
func (s *tournamentService) ListTournaments(ctx context.Context) ([]*entities.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

// ApplySnapshot diffs a polled snapshot against the stored states and persists the new ones.
// On the first poll of a tournament, matches that already concluded become the baseline
// instead of being reported.
func (s *tournamentService) ApplySnapshot(ctx context.Context, tournamentID string, snapshot *entities.TournamentSnapshot) (*interfaces.TournamentTransitions, error) {
	tournament, err := s.tournamentRepo.Get(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil {
		return nil, ErrTournamentNotLinked
	}

	transitions := &interfaces.TournamentTransitions{
		TournamentOldState: tournament.LastState,
		TournamentNewState: snapshot.State,
	}

	if snapshot.State != "" && snapshot.State != tournament.LastState {
		transitions.TournamentChanged = true
		if err := s.tournamentRepo.UpdateState(ctx, tournamentID, snapshot.State); err != nil {
			return nil, fmt.Errorf("failed to update tournament state: %w", err)
		}
		s.publish(events.TournamentStateChangedEvent{
			GuildID:        tournament.GuildID,
			TournamentID:   tournamentID,
			TournamentName: snapshot.DisplayName(),
			OldState:       tournament.LastState,
			NewState:       snapshot.State,
		})
	}

	stored, err := s.tournamentRepo.GetMatchStates(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match states: %w", err)
	}
	firstPoll := tournament.LastState == "" && len(stored) == 0

	current := make(map[string]string, len(snapshot.Matches))
	changed := len(stored) != len(snapshot.Matches)
	for _, match := range snapshot.Matches {
		current[match.ID] = match.State
		oldState, seen := stored[match.ID]
		if seen && oldState == match.State {
			continue
		}
		changed = true

		if firstPoll && !seen && entities.IsConcludedState(match.State) {
			continue
		}

		transitions.Matches = append(transitions.Matches, interfaces.MatchTransition{
			Match:    match,
			OldState: oldState,
		})
		s.publish(events.MatchStateChangedEvent{
			GuildID:      tournament.GuildID,
			TournamentID: tournamentID,
			MatchID:      match.ID,
			ShortID:      match.ShortID,
			OldState:     oldState,
			NewState:     match.State,
		})
	}

	if changed {
		if err := s.tournamentRepo.SaveMatchStates(ctx, tournamentID, current); err != nil {
			return nil, fmt.Errorf("failed to save match states: %w", err)
		}
	}

	return transitions, nil
}

// LinkAccount connects a Challenger Mode user to a Discord user
func (s *tournamentService) LinkAccount(ctx context.Context, cmUserID string, discordUserID int64) error {
	id, err := NormalizeUUID(cmUserID)
	if err != nil {
		return err
	}

	if err := s.accountLinkRepo.Link(ctx, id, discordUserID); err != nil {
		return fmt.Errorf("failed to link account: %w", err)
	}

	log.WithFields(log.Fields{
		"cm_user_id":      id,
		"discord_user_id": discordUserID,
	}).Info("Linked Challenger Mode account")
	return nil
}

// ResolveDiscordIDs maps Challenger Mode users to linked Discord users
func (s *tournamentService) ResolveDiscordIDs(ctx context.Context, cmUserIDs []string) (map[string]int64, error) {
	if len(cmUserIDs) == 0 {
		return map[string]int64{}, nil
	}

	ids, err := s.accountLinkRepo.GetDiscordIDs(ctx, cmUserIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account links: %w", err)
	}
	return ids, nil
}

// ListAccountLinks returns the most recent links and the total number of links
func (s *tournamentService) ListAccountLinks(ctx context.Context, limit int) ([]*entities.AccountLink, int, error) {
	links, err := s.accountLinkRepo.List(ctx, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list account links: %w", err)
	}

	total, err := s.accountLinkRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count account links: %w", err)
	}

	return links, total, nil
}

// TrackMatchChannels records voice channels created for a running match
func (s *tournamentService) TrackMatchChannels(ctx context.Context, channels []*entities.MatchVoiceChannel) error {
	if len(channels) == 0 {
		return nil
	}
	if err := s.voiceChannelRepo.Save(ctx, channels); err != nil {
		return fmt.Errorf("failed to save match voice channels: %w", err)
	}
	return nil
}

// MatchChannels returns the voice channels tracked for a match
func (s *tournamentService) MatchChannels(ctx context.Context, matchID string) ([]*entities.MatchVoiceChannel, error) {
	channels, err := s.voiceChannelRepo.GetByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match voice channels: %w", err)
	}
	return channels, nil
}

// ForgetMatchChannels stops tracking the voice channels of a match
func (s *tournamentService) ForgetMatchChannels(ctx context.Context, matchID string) error {
	if err := s.voiceChannelRepo.DeleteByMatch(ctx, matchID); err != nil {
		return fmt.Errorf("failed to forget match voice channels: %w", err)
	}
	return nil
}

func (s *tournamentService) publish(event events.Event) {
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish event")
	}
}
