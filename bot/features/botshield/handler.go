package botshield

import (
	"context"
	"errors"
	"fmt"

	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// handleProtect handles /botshield protect
func (f *Feature) handleProtect(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	opts := interfaces.ProtectOptions{
		CaptchaCount:   entities.DefaultCaptchaCount,
		AutoVerifyDays: entities.DefaultAutoVerifyDays,
		Now:            f.now(),
	}
	for _, opt := range options {
		switch opt.Name {
		case "captcha_count":
			opts.CaptchaCount = int(opt.IntValue())
		case "auto_verify_days":
			opts.AutoVerifyDays = int(opt.IntValue())
		case "log_channel":
			channelID, err := common.ParseID(opt.ChannelValue(s).ID)
			if err != nil {
				return common.NewUserError("Invalid channel selected.", "invalid log channel")
			}
			opts.LogChannelID = &channelID
		}
	}

	// Validate before walking the member list
	if opts.CaptchaCount < 1 {
		return common.NewUserError("Captcha amount must be at least 1.", "invalid captcha count")
	}
	if opts.AutoVerifyDays < -1 {
		return common.NewUserError("Auto-verify days must be -1 or greater.", "invalid auto verify days")
	}

	// Listing members can take a while in large guilds
	if err := common.DeferResponse(s, i, false); err != nil {
		return common.NewSystemError(err, "failed to defer response")
	}

	var members []entities.GuildMemberJoin
	if opts.AutoVerifyDays >= 0 {
		members, err = f.guildMembers(s, i.GuildID)
		if err != nil {
			common.HandleError(s, i, common.NewSystemError(err, "failed to list guild members"), true)
			return nil
		}
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to begin transaction"), true)
		return nil
	}
	defer uow.Rollback()

	result, err := f.shieldService(uow).Protect(ctx, guildID, opts, members)
	if err != nil {
		common.HandleError(s, i, protectError(err), true)
		return nil
	}

	if err := uow.Commit(); err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to commit transaction"), true)
		return nil
	}

	guildName := i.GuildID
	if guild, err := s.State.Guild(i.GuildID); err == nil && guild.Name != "" {
		guildName = guild.Name
	}

	log.WithFields(log.Fields{
		"guild_id":         guildID,
		"captcha_count":    opts.CaptchaCount,
		"auto_verify_days": opts.AutoVerifyDays,
		"auto_verified":    result.AutoVerified,
	}).Info("Guild protected")

	if _, err := common.FollowUpWithEmbed(s, i, protectedEmbed(guildName, result.Settings, result.AutoVerified), nil, false); err != nil {
		log.Errorf("Failed to send protect confirmation: %v", err)
	}
	return nil
}

func protectError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCaptchaCount):
		return common.NewUserError("Captcha amount must be at least 1.", err.Error())
	case errors.Is(err, services.ErrInvalidAutoVerifyDays):
		return common.NewUserError("Auto-verify days must be -1 or greater.", err.Error())
	default:
		return common.NewSystemError(err, "failed to protect guild")
	}
}

// guildMembers pages through the guild's member list
func (f *Feature) guildMembers(s *discordgo.Session, guildID string) ([]entities.GuildMemberJoin, error) {
	var members []entities.GuildMemberJoin
	after := ""
	for {
		page, err := s.GuildMembers(guildID, after, 1000)
		if err != nil {
			return nil, fmt.Errorf("failed to get guild members: %w", err)
		}
		for _, member := range page {
			if member.User == nil {
				continue
			}
			userID, err := common.ParseID(member.User.ID)
			if err != nil {
				continue
			}
			members = append(members, entities.GuildMemberJoin{
				UserID:   userID,
				JoinedAt: member.JoinedAt,
				IsBot:    member.User.Bot,
			})
		}
		if len(page) < 1000 {
			return members, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// handleUnprotect handles /botshield unprotect
func (f *Feature) handleUnprotect(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := f.shieldService(uow).Unprotect(ctx, guildID); err != nil {
		if errors.Is(err, services.ErrNotProtected) {
			return common.NewUserError("This server is not protected.", err.Error())
		}
		return common.NewSystemError(err, "failed to unprotect guild")
	}

	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	log.WithField("guild_id", guildID).Info("Guild unprotected")
	return common.RespondWithEmbed(s, i, &discordgo.MessageEmbed{
		Title:       "Server Unprotected",
		Description: "Protection removed for this server.",
		Color:       common.ColorOrange,
	}, nil, false)
}

// handleVerify handles /botshield verify
func (f *Feature) handleVerify(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, userID, err := memberOption(s, i, options)
	if err != nil {
		return err
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := f.shieldService(uow).VerifyMember(ctx, guildID, userID); err != nil {
		return common.NewSystemError(err, "failed to verify member")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	return common.RespondWithEmbed(s, i, &discordgo.MessageEmbed{
		Description: fmt.Sprintf("%s has been marked as verified.", common.GetUserMention(userID)),
		Color:       common.ColorSuccess,
	}, nil, false)
}

// handleUnverify handles /botshield unverify
func (f *Feature) handleUnverify(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, userID, err := memberOption(s, i, options)
	if err != nil {
		return err
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	found, err := f.shieldService(uow).UnverifyMember(ctx, guildID, userID)
	if err != nil {
		return common.NewSystemError(err, "failed to unverify member")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	embed := &discordgo.MessageEmbed{
		Description: fmt.Sprintf("Verification removed for %s.", common.GetUserMention(userID)),
		Color:       common.ColorOrange,
	}
	if !found {
		embed.Description = fmt.Sprintf("No verification record found for %s.", common.GetUserMention(userID))
		embed.Color = common.ColorWarning
	}
	return common.RespondWithEmbed(s, i, embed, nil, false)
}

func memberOption(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) (int64, int64, error) {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return 0, 0, common.NewSystemError(err, "failed to parse guild ID")
	}
	for _, opt := range options {
		if opt.Name != "member" {
			continue
		}
		userID, err := common.ParseID(opt.UserValue(s).ID)
		if err != nil {
			return 0, 0, common.NewUserError("Invalid member selected.", "invalid member option")
		}
		return guildID, userID, nil
	}
	return 0, 0, common.NewUserError("Please select a member.", "missing member option")
}

// handleStatus handles /botshield status
func (f *Feature) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	settings, err := services.NewGuildSettingsService(uow.GuildSettingsRepository()).GetOrCreateSettings(ctx, guildID)
	if err != nil {
		return common.NewSystemError(err, "failed to get guild settings")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	return common.RespondWithEmbed(s, i, statusEmbed(settings), nil, true)
}

// handleAlertRole handles /botshield alertrole
func (f *Feature) handleAlertRole(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	var roleID *int64
	for _, opt := range options {
		if opt.Name != "role" {
			continue
		}
		id, err := common.ParseID(opt.RoleValue(s, i.GuildID).ID)
		if err != nil {
			return common.NewUserError("Invalid role selected.", "invalid role option")
		}
		roleID = &id
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := services.NewGuildSettingsService(uow.GuildSettingsRepository()).UpdateAlertRole(ctx, guildID, roleID); err != nil {
		return common.NewSystemError(err, "failed to update alert role")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	if roleID == nil {
		return common.RespondWithSuccess(s, i, "Alert role cleared.", true)
	}
	return common.RespondWithSuccess(s, i, fmt.Sprintf("Alert role set to %s.", common.GetRoleMention(*roleID)), true)
}

// handleScam handles /botshield scam
func (f *Feature) handleScam(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	enabled := false
	threshold := entities.DefaultScamThreshold
	for _, opt := range options {
		switch opt.Name {
		case "enabled":
			enabled = opt.BoolValue()
		case "threshold":
			threshold = opt.FloatValue()
		}
	}

	ctx := context.Background()
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return common.NewSystemError(err, "failed to begin transaction")
	}
	defer uow.Rollback()

	if err := services.NewGuildSettingsService(uow.GuildSettingsRepository()).UpdateScamProtection(ctx, guildID, enabled, threshold); err != nil {
		if errors.Is(err, services.ErrInvalidScamThreshold) {
			return common.NewUserError("Threshold must be greater than 0.", err.Error())
		}
		return common.NewSystemError(err, "failed to update scam protection")
	}
	if err := uow.Commit(); err != nil {
		return common.NewSystemError(err, "failed to commit transaction")
	}

	if !enabled {
		return common.RespondWithSuccess(s, i, "Scam protection disabled.", true)
	}
	return common.RespondWithSuccess(s, i, fmt.Sprintf(
		"Scam protection enabled with threshold %s (%d scored tokens).",
		common.FormatScore(threshold), f.analyzer.Size()), true)
}
