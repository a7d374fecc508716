package cmlink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/services"
	"cogbot/infrastructure/challengermode"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleAdmin routes the admin subcommand group
func (f *Feature) handleAdmin(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}

	sub := options[0]
	switch sub.Name {
	case "linked":
		f.handleLinked(s, i, sub.Options)
	case "tournaments":
		f.handleTournaments(s, i)
	case "settings":
		f.handleSettings(s, i)
	case "forcelink":
		f.handleForceLink(s, i, sub.Options)
	}
}

func (f *Feature) handleLinked(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	limit := defaultLinkedLimit
	if opt := optionByName(options, "limit"); opt != nil {
		limit = int(opt.IntValue())
	}
	if limit < 1 || limit > maxLinkedLimit {
		common.RespondWithError(s, i, fmt.Sprintf("Limit must be between 1 and %d.", maxLinkedLimit))
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer linked response")
		return
	}

	ctx := context.Background()
	var (
		links []*entities.AccountLink
		total int
	)
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		links, total, err = tournamentService(uow).ListAccountLinks(ctx, maxLinkScan)
		return err
	})
	if err != nil {
		common.HandleError(s, i, err, true)
		return
	}

	members, err := guildMemberSet(s, i.GuildID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to list guild members"), true)
		return
	}

	isMember := func(id int64) bool { return members[id] }
	common.FollowUpWithEmbed(s, i, linkedUsersEmbed(links, isMember, limit, total), nil, true)
}

func (f *Feature) handleTournaments(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	ctx := context.Background()
	var tournaments []*entities.Tournament
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		tournaments, err = tournamentService(uow).ListTournaments(ctx)
		return err
	})
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	common.RespondWithEmbed(s, i, tournamentsEmbed(tournaments), nil, true)
}

func (f *Feature) handleSettings(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	ctx := context.Background()
	var settings *entities.GuildSettings
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		var err error
		settings, err = services.NewGuildSettingsService(uow.GuildSettingsRepository()).GetOrCreateSettings(ctx, guildID)
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

	common.RespondWithEmbed(s, i, guildSettingsEmbed(settings, creds, f.channelName), nil, true)
}

func (f *Feature) handleForceLink(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	guildID, err := parseGuildID(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	opt := optionByName(options, "member")
	if opt == nil {
		common.RespondWithError(s, i, "Please specify a member.")
		return
	}
	user := opt.UserValue(nil)
	discordID, err := common.ParseID(user.ID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to parse user ID"), false)
		return
	}

	cmUserID := stringOption(options, "cm_user_id")
	ctx := context.Background()
	err = f.withGuildUow(ctx, guildID, func(uow application.UnitOfWork) error {
		return tournamentService(uow).LinkAccount(ctx, cmUserID, discordID)
	})

	switch {
	case errors.Is(err, services.ErrInvalidUUID):
		common.RespondWithEmbed(s, i, errorEmbed("Invalid Identifier", "Please provide a valid Challenger Mode userId (UUID)."), nil, true)
	case err != nil:
		common.HandleError(s, i, err, false)
	default:
		id, _ := services.NormalizeUUID(cmUserID)
		common.RespondWithEmbed(s, i, successEmbed(
			"Force Link",
			fmt.Sprintf("Linked Challenger Mode user %s to %s.", id, common.GetUserMention(discordID)),
		), nil, true)
	}
}

// guildMemberSet pages through the guild member list
func guildMemberSet(s *discordgo.Session, guildID string) (map[int64]bool, error) {
	members := make(map[int64]bool)
	after := ""
	for {
		page, err := s.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if m.User == nil {
				continue
			}
			if id, err := common.ParseID(m.User.ID); err == nil {
				members[id] = true
			}
		}
		if len(page) < 1000 {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// handleAPI routes the owner-only api subcommand group
func (f *Feature) handleAPI(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}

	sub := options[0]
	ctx := context.Background()

	switch sub.Name {
	case "seturl":
		url := stringOption(sub.Options, "url")
		f.applyCredentials(s, i, func(svc credentialsSetter) error { return svc.SetAPIURL(ctx, url) },
			successEmbed("API URL Set", fmt.Sprintf("Challenger Mode API URL set to `%s`.", url)))
	case "settokenurl":
		url := stringOption(sub.Options, "url")
		f.applyCredentials(s, i, func(svc credentialsSetter) error { return svc.SetTokenURL(ctx, url) },
			successEmbed("Token Endpoint Updated", fmt.Sprintf("Access key endpoint set to `%s`.", url)))
	case "setrefreshtoken":
		key := stringOption(sub.Options, "token")
		f.applyCredentials(s, i, func(svc credentialsSetter) error { return svc.SetRefreshKey(ctx, key) },
			successEmbed("Refresh Token Stored", "Refresh token stored. The cached access token was cleared."))
	case "setinterval":
		var seconds int64
		if opt := optionByName(sub.Options, "seconds"); opt != nil {
			seconds = opt.IntValue()
		}
		f.applyCredentials(s, i, func(svc credentialsSetter) error {
			return svc.SetPollInterval(ctx, time.Duration(seconds)*time.Second)
		}, successEmbed("Polling Interval Updated", fmt.Sprintf("Tournaments will be polled every %ds.", seconds)))
	case "setlogging":
		var enabled bool
		if opt := optionByName(sub.Options, "enabled"); opt != nil {
			enabled = opt.BoolValue()
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		f.applyCredentials(s, i, func(svc credentialsSetter) error { return svc.SetDebugLogging(ctx, enabled) },
			successEmbed("API Logging", fmt.Sprintf("API request logging %s.", state)))
	case "test":
		f.handleAPITest(s, i)
	}
}

// credentialsSetter is the mutating half of the credentials service
type credentialsSetter interface {
	SetAPIURL(ctx context.Context, apiURL string) error
	SetTokenURL(ctx context.Context, tokenURL string) error
	SetRefreshKey(ctx context.Context, refreshKey string) error
	SetPollInterval(ctx context.Context, interval time.Duration) error
	SetDebugLogging(ctx context.Context, enabled bool) error
}

func (f *Feature) applyCredentials(s *discordgo.Session, i *discordgo.InteractionCreate, apply func(svc credentialsSetter) error, success *discordgo.MessageEmbed) {
	err := f.withGuildUow(context.Background(), 0, func(uow application.UnitOfWork) error {
		return apply(f.credentialsService(uow))
	})

	switch {
	case errors.Is(err, services.ErrInvalidURL):
		common.RespondWithError(s, i, "Please provide a valid http(s) URL.")
	case errors.Is(err, services.ErrInvalidPollInterval):
		common.RespondWithError(s, i, fmt.Sprintf("Interval must be at least %d seconds.", int(entities.MinPollInterval.Seconds())))
	case err != nil:
		common.HandleError(s, i, err, false)
	default:
		common.RespondWithEmbed(s, i, success, nil, true)
	}
}

func (f *Feature) handleAPITest(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if err := common.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer api test response")
		return
	}

	user, err := f.api.Me(context.Background())

	var gqlErr *challengermode.GraphQLError
	switch {
	case err == nil:
		common.FollowUpWithEmbed(s, i, successEmbed("API OK", fmt.Sprintf("Authenticated as: **%s** (%s)", user.Username, user.UserID)), nil, true)
	case errors.As(err, &gqlErr):
		common.FollowUpWithEmbed(s, i, errorEmbed("API GraphQL Errors", common.CodeBlock(gqlErr.Summary(5))), nil, true)
	case errors.Is(err, challengermode.ErrNoRefreshKey):
		common.FollowUpWithEmbed(s, i, errorEmbed("API Error", "No refresh token stored. Use `/cmlink api setrefreshtoken` first."), nil, true)
	case errors.Is(err, challengermode.ErrNotConfigured):
		common.FollowUpWithEmbed(s, i, errorEmbed("API Error", "API URL or token endpoint is not set."), nil, true)
	default:
		log.WithError(err).Warn("Challenger Mode API test failed")
		common.FollowUpWithEmbed(s, i, errorEmbed("API Error", "Request error or timeout."), nil, true)
	}
}
