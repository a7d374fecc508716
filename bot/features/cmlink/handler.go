package cmlink

import (
	"context"
	"errors"
	"fmt"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/services"
	"cogbot/infrastructure/challengermode"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	defaultLinkedLimit = 10
	maxLinkedLimit     = 50
	maxLinkScan        = 1000
)

// handleConnect links the caller's Discord account to a Challenger Mode user (DM only)
func (f *Feature) handleConnect(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if !common.IsDM(i) {
		common.RespondWithError(s, i, "Please use this command in a direct message with the bot.")
		return
	}

	cmUserID, err := services.NormalizeUUID(stringOption(options, "user_id"))
	if err != nil {
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode userId (UUID)."), nil, true)
		return
	}

	discordID, err := common.ParseID(common.InteractionUserID(i))
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse user ID"), false)
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer connect response")
		return
	}

	ctx := context.Background()
	user, err := f.api.User(ctx, cmUserID)
	if err != nil {
		f.followUpLookupError(s, i, err)
		return
	}

	err = f.withGuildUow(ctx, 0, func(uow application.UnitOfWork) error {
		return tournamentService(uow).LinkAccount(ctx, user.UserID, discordID)
	})
	if err != nil {
		common.HandleError(s, i, err, true)
		return
	}

	username := user.Username
	if username == "" {
		username = "Unknown"
	}
	common.FollowUpWithEmbed(s, i, successEmbed(
		"Account Linked",
		fmt.Sprintf("Linked Challenger Mode user **%s** (%s) to your Discord account.", username, user.UserID),
	), nil, true)
}

func (f *Feature) followUpLookupError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	switch {
	case errors.Is(err, challengermode.ErrNoRefreshKey), errors.Is(err, challengermode.ErrNotConfigured):
		common.FollowUpWithEmbed(s, i, errorEmbed("Link Failed", "The Challenger Mode API is not configured. Contact the bot owner."), nil, true)
	case errors.Is(err, challengermode.ErrUserNotFound):
		common.FollowUpWithEmbed(s, i, errorEmbed("Lookup Failed", "Could not resolve that userId via the Challenger Mode API. Check the ID and try again."), nil, true)
	default:
		log.WithError(err).Warn("Challenger Mode lookup failed")
		common.FollowUpWithEmbed(s, i, errorEmbed("Lookup Failed", "The Challenger Mode API request failed. Try again later."), nil, true)
	}
}

// handleSetup configures the guild's update channel, lobby voice channel and category
func (f *Feature) handleSetup(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	var update, lobby, category *int64
	for _, opt := range options {
		id, err := common.ParseID(opt.ChannelValue(nil).ID)
		if err != nil {
			continue
		}
		switch opt.Name {
		case "update_channel":
			update = &id
		case "lobby_voice":
			lobby = &id
		case "category":
			category = &id
		}
	}

	if update == nil && lobby == nil && category == nil {
		common.RespondWithError(s, i, "Provide at least one of update_channel, lobby_voice or category.")
		return
	}

	ctx := context.Background()
	var settings *entities.GuildSettings
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		settings, err = services.NewGuildSettingsService(uow.GuildSettingsRepository()).UpdateCMLinkChannels(ctx, guildID, update, lobby, category)
		return err
	})
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	creds, err := f.credentials(ctx)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	embed := guildSettingsEmbed(settings, creds, f.channelName)
	embed.Title = "CMLink Configured"
	embed.Color = common.ColorSuccess
	common.RespondWithEmbed(s, i, embed, nil, false)
}

// handleTournament routes the tournament subcommand group
func (f *Feature) handleTournament(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}

	sub := options[0]
	switch sub.Name {
	case "add":
		f.handleTournamentAdd(s, i, sub.Options)
	case "remove":
		f.handleTournamentRemove(s, i, sub.Options)
	case "role":
		f.handleTournamentRole(s, i, sub.Options)
	case "unlinked":
		f.handleTournamentUnlinked(s, i, sub.Options)
	}
}

func (f *Feature) handleTournamentAdd(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}
	channelID, err := common.ParseID(i.ChannelID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse channel ID"), false)
		return
	}

	tournamentID := stringOption(options, "tournament_id")
	ctx := context.Background()
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		return tournamentService(uow).LinkTournament(ctx, guildID, tournamentID, channelID)
	})

	switch {
	case errors.Is(err, services.ErrInvalidUUID):
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode tournamentId (UUID)."), nil, true)
	case errors.Is(err, services.ErrTournamentAlreadyLinked):
		common.RespondWithEmbed(s, i, errorEmbed("Already Added", "That tournament is already configured for this server."), nil, true)
	case err != nil:
		common.HandleError(s, i, err, false)
	default:
		id, _ := services.NormalizeUUID(tournamentID)
		common.RespondWithEmbed(s, i, successEmbed(
			"Tournament Added",
			fmt.Sprintf("Tournament **%s** has been added to this server. Updates will be posted here unless an update channel is set.", id),
		), nil, false)
	}
}

func (f *Feature) handleTournamentRemove(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	tournamentID := stringOption(options, "tournament_id")
	ctx := context.Background()

	var (
		channels []*entities.MatchVoiceChannel
		settings *entities.GuildSettings
	)
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		settings, err = uow.GuildSettingsRepository().GetGuildSettings(ctx, guildID)
		if err != nil {
			return fmt.Errorf("failed to get guild settings: %w", err)
		}
		channels, err = tournamentService(uow).UnlinkTournament(ctx, tournamentID)
		return err
	})

	switch {
	case errors.Is(err, services.ErrInvalidUUID):
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode tournamentId (UUID)."), nil, true)
		return
	case errors.Is(err, services.ErrTournamentNotLinked):
		common.RespondWithEmbed(s, i, errorEmbed("Not Found", "That tournament is not configured for this server."), nil, true)
		return
	case err != nil:
		common.HandleError(s, i, err, false)
		return
	}

	var lobbyID *int64
	if settings != nil {
		lobbyID = settings.LobbyVoiceID
	}
	closeVoiceChannels(s, guildID, lobbyID, channels)

	id, _ := services.NormalizeUUID(tournamentID)
	common.RespondWithEmbed(s, i, successEmbed("Tournament Removed", fmt.Sprintf("Tournament **%s** has been removed.", id)), nil, false)
}

func (f *Feature) handleTournamentRole(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	tournamentID := stringOption(options, "tournament_id")
	var roleID *int64
	if opt := optionByName(options, "role"); opt != nil {
		id, err := common.ParseID(opt.RoleValue(nil, i.GuildID).ID)
		if err != nil {
			common.HandleError(s, i, common.NewSystemError(err, "failed to parse role ID"), false)
			return
		}
		roleID = &id
	}

	ctx := context.Background()
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		return tournamentService(uow).SetTournamentRole(ctx, tournamentID, roleID)
	})

	switch {
	case errors.Is(err, services.ErrInvalidUUID):
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode tournamentId (UUID)."), nil, true)
	case errors.Is(err, services.ErrTournamentNotLinked):
		common.RespondWithEmbed(s, i, errorEmbed("Not Found", "That tournament is not configured for this server."), nil, true)
	case err != nil:
		common.HandleError(s, i, err, false)
	case roleID == nil:
		common.RespondWithEmbed(s, i, successEmbed("Tournament Role", "Announcement role cleared."), nil, false)
	default:
		common.RespondWithEmbed(s, i, successEmbed("Tournament Role", fmt.Sprintf("Announcements will mention %s.", common.GetRoleMention(*roleID))), nil, false)
	}
}

func (f *Feature) handleTournamentUnlinked(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	tournamentID, err := services.NormalizeUUID(stringOption(options, "tournament_id"))
	if err != nil {
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode tournamentId (UUID)."), nil, true)
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer unlinked response")
		return
	}

	ctx := context.Background()
	participants, err := f.api.TournamentParticipants(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, challengermode.ErrTournamentNotFound) {
			common.FollowUpWithEmbed(s, i, errorEmbed("Not Found", "Could not fetch that tournament from the Challenger Mode API."), nil, true)
			return
		}
		f.followUpLookupError(s, i, err)
		return
	}

	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.UserID)
	}

	var linked map[string]int64
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		linked, err = tournamentService(uow).ResolveDiscordIDs(ctx, ids)
		return err
	})
	if err != nil {
		common.HandleError(s, i, err, true)
		return
	}

	common.FollowUpWithEmbed(s, i, unlinkedEmbed(participants, linked), nil, true)
}

// credentials reads the bot-wide API settings
func (f *Feature) credentials(ctx context.Context) (*entities.CMCredentials, error) {
	var creds *entities.CMCredentials
	err := f.withGuildUow(ctx, 0, func(uow application.UnitOfWork) error {
		var err error
		creds, err = f.credentialsService(uow).GetCredentials(ctx)
		return err
	})
	return creds, err
}

// channelName resolves a channel name from state, falling back to a mention
func (f *Feature) channelName(channelID int64) string {
	id := common.FormatID(channelID)
	if ch, err := f.session.State.Channel(id); err == nil && ch != nil {
		return ch.Name
	}
	return common.GetChannelMention(channelID)
}
