package application

import (
	"context"

	"cogbot/application/dto"
	"cogbot/domain/entities"
)

// TournamentFetcher loads the current state of a Challenger Mode tournament
type TournamentFetcher interface {
	TournamentMatches(ctx context.Context, tournamentID string) (*entities.TournamentSnapshot, error)
}

// MatchPoster performs the Discord side of tournament transitions.
// This abstraction lets the monitor drive Discord without depending on discordgo.
type MatchPoster interface {
	// AnnounceTournamentStarted posts the "Tournament Started" embed
	AnnounceTournamentStarted(ctx context.Context, announcement dto.TournamentAnnouncementDTO) error

	// AnnounceTournamentConcluded posts the "Tournament Concluded" embed with the winners summary
	AnnounceTournamentConcluded(ctx context.Context, announcement dto.TournamentAnnouncementDTO) error

	// NotifyMatchReady DMs linked players who are not in the lobby voice channel
	NotifyMatchReady(ctx context.Context, transition dto.MatchTransitionDTO) error

	// OpenMatchChannels creates the private voice channels of a running match and moves players in
	OpenMatchChannels(ctx context.Context, transition dto.MatchTransitionDTO) ([]*entities.MatchVoiceChannel, error)

	// AnnounceMatchConcluded posts the "Match Concluded" embed
	AnnounceMatchConcluded(ctx context.Context, transition dto.MatchTransitionDTO) error

	// CloseMatchChannels moves players back to the lobby and deletes the match channels
	CloseMatchChannels(ctx context.Context, transition dto.MatchTransitionDTO) error
}
