package cmlink

import (
	"context"
	"fmt"

	"cogbot/application"
	"cogbot/application/dto"
	"cogbot/bot/common"
	"cogbot/domain/entities"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	voicePermissions = discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak
	auditReason      = "CMLink match voice"
)

// Poster performs tournament announcements and match voice management on Discord
type Poster struct {
	session *discordgo.Session
}

var _ application.MatchPoster = (*Poster)(nil)

// NewPoster creates a Discord-backed match poster
func NewPoster(session *discordgo.Session) *Poster {
	return &Poster{session: session}
}

// AnnounceTournamentStarted posts the "Tournament Started" embed
func (p *Poster) AnnounceTournamentStarted(ctx context.Context, a dto.TournamentAnnouncementDTO) error {
	return p.announce(a.TournamentContext, tournamentStartedEmbed(a))
}

// AnnounceTournamentConcluded posts the "Tournament Concluded" embed with the winners summary
func (p *Poster) AnnounceTournamentConcluded(ctx context.Context, a dto.TournamentAnnouncementDTO) error {
	return p.announce(a.TournamentContext, tournamentConcludedEmbed(a))
}

// AnnounceMatchConcluded posts the "Match Concluded" embed
func (p *Poster) AnnounceMatchConcluded(ctx context.Context, t dto.MatchTransitionDTO) error {
	return p.announce(t.TournamentContext, matchConcludedEmbed(t))
}

func (p *Poster) announce(tc dto.TournamentContext, embed *discordgo.MessageEmbed) error {
	if tc.AnnounceChannelID == 0 {
		return nil
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if tc.RoleID != nil && *tc.RoleID > 0 {
		msg.Content = common.GetRoleMention(*tc.RoleID)
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{common.FormatID(*tc.RoleID)}}
	}

	if _, err := p.session.ChannelMessageSendComplex(common.FormatID(tc.AnnounceChannelID), msg); err != nil {
		return fmt.Errorf("failed to post %q to channel %d: %w", embed.Title, tc.AnnounceChannelID, err)
	}
	return nil
}

// NotifyMatchReady DMs linked players who are not in the lobby voice channel
func (p *Poster) NotifyMatchReady(ctx context.Context, t dto.MatchTransitionDTO) error {
	if t.LobbyVoiceID == nil {
		return nil
	}

	guildID := common.FormatID(t.GuildID)
	lobbyID := common.FormatID(*t.LobbyVoiceID)
	embed := matchReadyEmbed(p.guildName(guildID), p.channelName(lobbyID))

	for _, userID := range p.guildPlayers(t) {
		if p.voiceChannelOf(guildID, userID) == lobbyID {
			continue
		}

		logger := log.WithFields(log.Fields{
			"guild_id": t.GuildID,
			"user_id":  userID,
			"match_id": t.Match.ID,
		})

		dm, err := p.session.UserChannelCreate(userID)
		if err == nil {
			_, err = p.session.ChannelMessageSendEmbed(dm.ID, embed)
		}
		if err != nil {
			logger.WithError(err).Warn("Failed to DM match participant")
			continue
		}
		logger.Info("Sent match ready DM")
	}
	return nil
}

// channelPlan is one voice channel to create for a match
type channelPlan struct {
	name       string
	teamNumber *int
	memberIDs  []string
}

// planMatchChannels returns one shared channel for 1v1 matches and one channel per
// non-empty team otherwise. Only linked players present in members get access.
func planMatchChannels(match entities.MatchSnapshot, members map[string]string) []channelPlan {
	teams := make(map[int][]string)
	maxSize := 0
	for _, lineup := range match.Lineups {
		for _, m := range lineup.Members {
			if id, ok := members[m.UserID]; ok {
				teams[lineup.Number] = append(teams[lineup.Number], id)
			}
		}
		if len(teams[lineup.Number]) > maxSize {
			maxSize = len(teams[lineup.Number])
		}
	}

	if maxSize <= 1 {
		var all []string
		for _, lineup := range match.Lineups {
			all = append(all, teams[lineup.Number]...)
		}
		return []channelPlan{{name: fmt.Sprintf("match-%s", match.ShortID), memberIDs: all}}
	}

	var plans []channelPlan
	for _, lineup := range match.Lineups {
		ids := teams[lineup.Number]
		if len(ids) == 0 {
			continue
		}
		number := lineup.Number
		plans = append(plans, channelPlan{
			name:       fmt.Sprintf("match-%s-team%d", match.ShortID, number+1),
			teamNumber: &number,
			memberIDs:  ids,
		})
	}
	return plans
}

// OpenMatchChannels creates the private voice channels of a running match and moves
// players waiting in the lobby into them. Channels created before a failure are deleted.
func (p *Poster) OpenMatchChannels(ctx context.Context, t dto.MatchTransitionDTO) ([]*entities.MatchVoiceChannel, error) {
	guildID := common.FormatID(t.GuildID)

	members := make(map[string]string)
	for cmUserID, discordID := range t.DiscordIDs {
		id := common.FormatID(discordID)
		if p.isGuildMember(guildID, id) {
			members[cmUserID] = id
		}
	}

	var parentID string
	if t.CategoryID != nil {
		parentID = common.FormatID(*t.CategoryID)
	}

	var created []*entities.MatchVoiceChannel
	moves := make(map[string]string)
	for _, plan := range planMatchChannels(t.Match, members) {
		overwrites := []*discordgo.PermissionOverwrite{{
			ID:   guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: voicePermissions,
		}}
		for _, id := range plan.memberIDs {
			overwrites = append(overwrites, &discordgo.PermissionOverwrite{
				ID:    id,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: voicePermissions,
			})
		}

		ch, err := p.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:                 plan.name,
			Type:                 discordgo.ChannelTypeGuildVoice,
			ParentID:             parentID,
			PermissionOverwrites: overwrites,
		}, discordgo.WithAuditLogReason(auditReason))
		if err != nil {
			p.deleteChannels(created)
			return nil, fmt.Errorf("failed to create voice channel %q: %w", plan.name, err)
		}

		channelID, _ := common.ParseID(ch.ID)
		created = append(created, &entities.MatchVoiceChannel{
			GuildID:      t.GuildID,
			MatchID:      t.Match.ID,
			TournamentID: t.TournamentID,
			ChannelID:    channelID,
			TeamNumber:   plan.teamNumber,
		})
		for _, id := range plan.memberIDs {
			moves[id] = ch.ID
		}

		log.WithFields(log.Fields{
			"guild_id":   t.GuildID,
			"match_id":   t.Match.ID,
			"channel_id": ch.ID,
			"name":       plan.name,
		}).Info("Created match voice channel")
	}

	if t.LobbyVoiceID != nil {
		lobbyID := common.FormatID(*t.LobbyVoiceID)
		for userID, channelID := range moves {
			if p.voiceChannelOf(guildID, userID) != lobbyID {
				continue
			}
			target := channelID
			if err := p.session.GuildMemberMove(guildID, userID, &target); err != nil {
				log.WithError(err).WithField("user_id", userID).Warn("Failed to move player to match voice")
			}
		}
	}

	return created, nil
}

// CloseMatchChannels moves players back to the lobby and deletes the match channels
func (p *Poster) CloseMatchChannels(ctx context.Context, t dto.MatchTransitionDTO) error {
	closeVoiceChannels(p.session, t.GuildID, t.LobbyVoiceID, t.Channels)
	return nil
}

// closeVoiceChannels moves occupants back to the lobby, when set, and deletes the channels
func closeVoiceChannels(s *discordgo.Session, guildID int64, lobbyID *int64, channels []*entities.MatchVoiceChannel) {
	if len(channels) == 0 {
		return
	}

	gid := common.FormatID(guildID)
	var occupants map[string][]string
	if lobbyID != nil {
		occupants = voiceOccupants(s.State, gid)
	}

	for _, ch := range channels {
		channelID := common.FormatID(ch.ChannelID)
		if lobbyID != nil {
			lobby := common.FormatID(*lobbyID)
			for _, userID := range occupants[channelID] {
				if err := s.GuildMemberMove(gid, userID, &lobby); err != nil {
					log.WithError(err).WithField("user_id", userID).Warn("Failed to move player back to lobby")
				}
			}
		}

		if _, err := s.ChannelDelete(channelID, discordgo.WithAuditLogReason("CMLink match concluded")); err != nil {
			log.WithError(err).WithField("channel_id", channelID).Warn("Failed to delete match voice channel")
			continue
		}
		log.WithFields(log.Fields{
			"guild_id":   guildID,
			"match_id":   ch.MatchID,
			"channel_id": channelID,
		}).Info("Deleted match voice channel")
	}
}

// voiceOccupants maps voice channel IDs to the users connected to them.
// The guild's voice states are copied under the state read lock.
func voiceOccupants(state *discordgo.State, guildID string) map[string][]string {
	guild, err := state.Guild(guildID)
	if err != nil {
		return nil
	}

	state.RLock()
	defer state.RUnlock()

	occupants := make(map[string][]string)
	for _, vs := range guild.VoiceStates {
		if vs == nil || vs.ChannelID == "" {
			continue
		}
		occupants[vs.ChannelID] = append(occupants[vs.ChannelID], vs.UserID)
	}
	return occupants
}

func (p *Poster) deleteChannels(channels []*entities.MatchVoiceChannel) {
	for _, ch := range channels {
		if _, err := p.session.ChannelDelete(common.FormatID(ch.ChannelID), discordgo.WithAuditLogReason("CMLink cleanup (error)")); err != nil {
			log.WithError(err).WithField("channel_id", ch.ChannelID).Warn("Failed to delete partially created voice channel")
		}
	}
}

// guildPlayers returns the Discord IDs of linked match players who are guild members
func (p *Poster) guildPlayers(t dto.MatchTransitionDTO) []string {
	guildID := common.FormatID(t.GuildID)
	var players []string
	for _, lineup := range t.Match.Lineups {
		for _, m := range lineup.Members {
			discordID, ok := t.DiscordID(m.UserID)
			if !ok {
				continue
			}
			id := common.FormatID(discordID)
			if p.isGuildMember(guildID, id) {
				players = append(players, id)
			}
		}
	}
	return players
}

func (p *Poster) isGuildMember(guildID, userID string) bool {
	if m, err := p.session.State.Member(guildID, userID); err == nil && m != nil {
		return true
	}
	m, err := p.session.GuildMember(guildID, userID)
	return err == nil && m != nil
}

func (p *Poster) voiceChannelOf(guildID, userID string) string {
	vs, err := p.session.State.VoiceState(guildID, userID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

func (p *Poster) guildName(guildID string) string {
	if g, err := p.session.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	return "the server"
}

func (p *Poster) channelName(channelID string) string {
	if ch, err := p.session.State.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	return "lobby"
}
