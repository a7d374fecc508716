package dto

import "cogbot/domain/entities"

// TournamentContext carries the guild configuration a tournament transition is handled with
type TournamentContext struct {
	GuildID           int64
	TournamentID      string
	TournamentName    string
	AnnounceChannelID int64  // Guild update channel, falling back to the channel the tournament was linked from
	RoleID            *int64 // Role mentioned on tournament announcements
	LobbyVoiceID      *int64
	CategoryID        *int64
	DiscordIDs        map[string]int64 // Challenger Mode user ID -> linked Discord user ID
}

// DiscordID returns the Discord user linked to a Challenger Mode user
func (c TournamentContext) DiscordID(cmUserID string) (int64, bool) {
	id, ok := c.DiscordIDs[cmUserID]
	return id, ok
}

// TournamentAnnouncementDTO describes a tournament-level state change
type TournamentAnnouncementDTO struct {
	TournamentContext
	OldState string
	NewState string
	Snapshot *entities.TournamentSnapshot
}

// MatchTransitionDTO describes a match whose state changed
type MatchTransitionDTO struct {
	TournamentContext
	Match    entities.MatchSnapshot
	OldState string
	Channels []*entities.MatchVoiceChannel // Tracked voice channels of the match
}
