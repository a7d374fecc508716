package cmlink

import (
	"fmt"
	"strings"

	"cogbot/application/dto"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
)

const (
	footerText        = "CMLink"
	maxUnlinkedShown  = 20
	maxTournamentsRow = 25
)

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: common.ColorSuccess}
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: common.ColorDanger}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: common.ColorPrimary}
}

// mentionFunc resolves linked players to Discord mentions
func mentionFunc(tc dto.TournamentContext) services.MentionFunc {
	return func(cmUserID string) string {
		if id, ok := tc.DiscordID(cmUserID); ok {
			return common.GetUserMention(id)
		}
		return ""
	}
}

func tournamentStartedEmbed(a dto.TournamentAnnouncementDTO) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Tournament Started",
		Description: fmt.Sprintf("**%s** has started.", displayTournament(a.TournamentContext)),
		Color:       common.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func tournamentConcludedEmbed(a dto.TournamentAnnouncementDTO) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Tournament Concluded",
		Description: fmt.Sprintf("**%s** has concluded.", displayTournament(a.TournamentContext)),
		Color:       common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Winners / Final results",
			Value: common.Truncate(services.FormatTournamentWinners(a.Snapshot, mentionFunc(a.TournamentContext)), common.MaxEmbedFieldValue),
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func matchReadyEmbed(guildName, lobbyName string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Match Ready",
		Description: fmt.Sprintf("Your match is ready in **%s**.\nPlease join the lobby voice channel: **#%s**", guildName, lobbyName),
		Color:       common.ColorInfo,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func matchConcludedEmbed(t dto.MatchTransitionDTO) *discordgo.MessageEmbed {
	match := t.Match
	return &discordgo.MessageEmbed{
		Title:       "Match Concluded",
		Description: fmt.Sprintf("**%s** — Match **%s** concluded.", displayTournament(t.TournamentContext), match.ShortID),
		Color:       common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{{
			Name:  "Results",
			Value: common.Truncate(services.FormatMatchResults(&match, mentionFunc(t.TournamentContext)), common.MaxEmbedFieldValue),
		}},
		Footer: &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func displayTournament(tc dto.TournamentContext) string {
	if tc.TournamentName != "" {
		return tc.TournamentName
	}
	return tc.TournamentID
}

// unlinkedEmbed lists tournament participants without an account link
func unlinkedEmbed(participants []entities.CMUser, linked map[string]int64) *discordgo.MessageEmbed {
	var unlinked []string
	for _, p := range participants {
		if _, ok := linked[p.UserID]; ok {
			continue
		}
		name := p.Username
		if name == "" {
			name = "Unknown"
		}
		unlinked = append(unlinked, fmt.Sprintf("%s (%s)", name, p.UserID))
	}

	if len(unlinked) == 0 {
		return successEmbed("All Linked", "All participants appear to be linked.")
	}

	shown := unlinked
	if len(shown) > maxUnlinkedShown {
		shown = shown[:maxUnlinkedShown]
	}
	description := strings.Join(shown, "\n")
	if more := len(unlinked) - len(shown); more > 0 {
		description += fmt.Sprintf("\n... and %d more.", more)
	}

	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Unlinked participants (%d)", len(unlinked)),
		Description: description,
		Color:       common.ColorOrange,
	}
}

// linkedUsersEmbed lists account links whose Discord user is a guild member
func linkedUsersEmbed(links []*entities.AccountLink, isMember func(int64) bool, limit, total int) *discordgo.MessageEmbed {
	var lines []string
	inGuild := 0
	for _, link := range links {
		if !isMember(link.DiscordUserID) {
			continue
		}
		inGuild++
		if len(lines) < limit {
			lines = append(lines, fmt.Sprintf("%s -> %s", link.CMUserID, common.GetUserMention(link.DiscordUserID)))
		}
	}

	if len(lines) == 0 {
		return infoEmbed("Linked Users", fmt.Sprintf("No linked users found in this server. (global total: %d)", total))
	}

	description := fmt.Sprintf("Linked users in this server: **%d** (global total: %d)\n%s", inGuild, total, strings.Join(lines, "\n"))
	if more := inGuild - len(lines); more > 0 {
		description += fmt.Sprintf("\n... and %d more.", more)
	}
	return infoEmbed("Linked Users", common.Truncate(description, common.MaxEmbedDescription))
}

// tournamentsEmbed lists the guild's linked tournaments
func tournamentsEmbed(tournaments []*entities.Tournament) *discordgo.MessageEmbed {
	if len(tournaments) == 0 {
		return infoEmbed("No Tournaments", "No tournaments configured for this server.")
	}

	lines := make([]string, 0, len(tournaments))
	for _, t := range tournaments {
		channel := "unset"
		if t.ChannelID != 0 {
			channel = common.GetChannelMention(t.ChannelID)
		}
		role := "unset"
		if t.HasRole() {
			role = common.GetRoleMention(*t.RoleID)
		}
		state := t.LastState
		if state == "" {
			state = "not polled yet"
		}
		lines = append(lines, fmt.Sprintf("%s -> channel: %s, role: %s, state: %s", t.TournamentID, channel, role, state))
	}

	description := strings.Join(lines, "\n")
	if len(lines) > maxTournamentsRow {
		description = strings.Join(lines[:maxTournamentsRow], "\n") + fmt.Sprintf("\n... and %d more.", len(lines)-maxTournamentsRow)
	}
	return infoEmbed("Active tournaments", common.Truncate(description, common.MaxEmbedDescription))
}

// guildSettingsEmbed shows the guild's CMLink channels and the bot-wide poll interval
func guildSettingsEmbed(settings *entities.GuildSettings, creds *entities.CMCredentials, channelName func(int64) string) *discordgo.MessageEmbed {
	update := "unset"
	if settings.HasUpdateChannel() {
		update = common.GetChannelMention(*settings.UpdateChannelID)
	}
	lobby := "unset"
	if settings.HasLobbyVoice() {
		lobby = channelName(*settings.LobbyVoiceID)
	}
	category := "unset"
	if settings.HasTournamentCategory() {
		category = channelName(*settings.TournamentCategoryID)
	}

	description := fmt.Sprintf(
		"- Update channel: %s\n- Lobby voice: %s\n- Category: %s\n- Poll interval: %gs",
		update, lobby, category, creds.EffectivePollInterval().Seconds(),
	)
	return infoEmbed("Guild settings", description)
}
