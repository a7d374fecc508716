package cmlink

import (
	"context"
	"fmt"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
)

// ChallengerModeAPI is the part of the Challenger Mode client used by commands
type ChallengerModeAPI interface {
	Me(ctx context.Context) (*entities.CMUser, error)
	User(ctx context.Context, userID string) (*entities.CMUser, error)
	TournamentParticipants(ctx context.Context, tournamentID string) ([]entities.CMUser, error)
}

// Feature handles Challenger Mode account links, tournament setup and match announcements
type Feature struct {
	session    *discordgo.Session
	uowFactory application.UnitOfWorkFactory
	api        ChallengerModeAPI
	defaults   entities.CMCredentials
	isOwner    func(userID string) bool
}

// NewFeature creates a new CMLink feature instance
func NewFeature(
	session *discordgo.Session,
	uowFactory application.UnitOfWorkFactory,
	api ChallengerModeAPI,
	defaults entities.CMCredentials,
	isOwner func(userID string) bool,
) *Feature {
	return &Feature{
		session:    session,
		uowFactory: uowFactory,
		api:        api,
		defaults:   defaults,
		isOwner:    isOwner,
	}
}

// HandleCommand routes cmlink commands to appropriate handlers
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	group := options[0]
	if group.Name == "connect" {
		f.handleConnect(s, i, group.Options)
		return
	}

	if group.Name == "api" {
		if !f.isOwner(common.InteractionUserID(i)) {
			common.RespondWithError(s, i, "Only the bot owner can use this command.")
			return
		}
		f.handleAPI(s, i, group.Options)
		return
	}

	if common.IsDM(i) {
		common.RespondWithError(s, i, "This command must be used in a server.")
		return
	}
	if !common.HasManageServer(i) {
		common.RespondWithError(s, i, "You need the Manage Server permission to use this command.")
		return
	}

	switch group.Name {
	case "setup":
		f.handleSetup(s, i, group.Options)
	case "tournament":
		f.handleTournament(s, i, group.Options)
	case "admin":
		f.handleAdmin(s, i, group.Options)
	}
}

// withGuildUow runs fn inside a committed guild-scoped unit of work
func (f *Feature) withGuildUow(ctx context.Context, guildID int64, fn func(uow application.UnitOfWork) error) error {
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}
	return nil
}

func tournamentService(uow application.UnitOfWork) interfaces.TournamentService {
	return services.NewTournamentService(
		uow.GuildSettingsRepository(),
		uow.TournamentRepository(),
		uow.MatchVoiceChannelRepository(),
		uow.AccountLinkRepository(),
		uow.EventBus(),
	)
}

func (f *Feature) credentialsService(uow application.UnitOfWork) interfaces.CMCredentialsService {
	return services.NewCMCredentialsService(uow.CMCredentialsRepository(), f.defaults)
}

// stringOption returns a named option's string value
func stringOption(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optionByName(options []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range options {
		if opt.Name == name {
			return opt
		}
	}
	return nil
}

func parseGuildID(i *discordgo.InteractionCreate) (int64, error) {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return 0, common.NewSystemError(err, fmt.Sprintf("failed to parse guild ID %q", i.GuildID))
	}
	return guildID, nil
}
