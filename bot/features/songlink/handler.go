package songlink

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cogbot/bot/common"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	unsupportedURLMessage = "Unsupported or invalid URL."
	resolveErrorMessage   = "An error occurred while resolving the link."
)

// HandleSongChannelCommand routes songchannel subcommands
func (f *Feature) HandleSongChannelCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if common.IsDM(i) {
		common.RespondWithError(s, i, "This command must be used in a server.")
		return
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return
	}

	sub := options[0]
	if sub.Name != "list" && !common.HasManageServer(i) {
		common.RespondWithError(s, i, "You need the Manage Server permission to use this command.")
		return
	}

	var err error
	switch sub.Name {
	case "register":
		err = f.handleRegister(s, i, sub.Options)
	case "remove":
		err = f.handleRemove(s, i, sub.Options)
	case "list":
		err = f.handleList(s, i)
	}

	if err != nil {
		common.HandleError(s, i, err, false)
	}
}

// targetChannel returns the channel option, defaulting to the channel the command was used in
func targetChannel(i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) (int64, error) {
	channelID := i.ChannelID
	for _, opt := range options {
		if opt.Name == "channel" {
			channelID = opt.ChannelValue(nil).ID
		}
	}
	id, err := common.ParseID(channelID)
	if err != nil {
		return 0, common.NewSystemError(err, fmt.Sprintf("failed to parse channel ID %q", channelID))
	}
	return id, nil
}

func (f *Feature) handleRegister(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}
	channelID, err := targetChannel(i, options)
	if err != nil {
		return err
	}

	ctx := context.Background()
	err = f.withSongChannels(ctx, guildID, func(svc interfaces.SongChannelService) error {
		return svc.Register(ctx, guildID, channelID)
	})
	if errors.Is(err, services.ErrChannelAlreadyRegistered) {
		return common.NewUserError("Channel already registered.", "song channel already registered")
	}
	if err != nil {
		return err
	}

	return common.RespondWithSuccess(s, i, fmt.Sprintf("Registered %s for automatic SongLink processing.", common.GetChannelMention(channelID)), false)
}

func (f *Feature) handleRemove(s *discordgo.Session, i *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}
	channelID, err := targetChannel(i, options)
	if err != nil {
		return err
	}

	ctx := context.Background()
	err = f.withSongChannels(ctx, guildID, func(svc interfaces.SongChannelService) error {
		return svc.Remove(ctx, guildID, channelID)
	})
	if errors.Is(err, services.ErrChannelNotRegistered) {
		return common.NewUserError("Channel not registered.", "song channel not registered")
	}
	if err != nil {
		return err
	}

	return common.RespondWithSuccess(s, i, fmt.Sprintf("Removed %s from automatic processing.", common.GetChannelMention(channelID)), false)
}

func (f *Feature) handleList(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	guildID, err := common.ParseID(i.GuildID)
	if err != nil {
		return common.NewSystemError(err, "failed to parse guild ID")
	}

	ctx := context.Background()
	var channels []int64
	err = f.withSongChannels(ctx, guildID, func(svc interfaces.SongChannelService) error {
		var err error
		channels, err = svc.List(ctx)
		return err
	})
	if err != nil {
		return err
	}

	common.RespondEphemeral(s, i, formatChannelList(channels, f.channelExists))
	return nil
}

// formatChannelList renders registered channels, marking ones that no longer exist
func formatChannelList(channels []int64, exists func(int64) bool) string {
	if len(channels) == 0 {
		return "No song channels configured."
	}

	parts := make([]string, 0, len(channels))
	for _, id := range channels {
		if exists(id) {
			parts = append(parts, common.GetChannelMention(id))
		} else {
			parts = append(parts, fmt.Sprintf("(missing: %d)", id))
		}
	}
	return "Song channels: " + strings.Join(parts, ", ")
}

func (f *Feature) channelExists(channelID int64) bool {
	id := common.FormatID(channelID)
	if ch, err := f.session.State.Channel(id); err == nil && ch != nil {
		return true
	}
	_, err := f.session.Channel(id)
	return err == nil
}

// HandleSongLinkCommand resolves a single URL on demand
func (f *Feature) HandleSongLinkCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var url string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "url" {
			url = strings.TrimSpace(opt.StringValue())
		}
	}

	if !services.IsSupportedMusicURL(url) {
		common.RespondWithError(s, i, unsupportedURLMessage)
		return
	}

	if err := common.DeferResponse(s, i, false); err != nil {
		log.WithError(err).Error("Failed to defer songlink response")
		return
	}

	song, err := f.resolver.Resolve(context.Background(), url)
	if err != nil {
		log.WithError(err).WithField("url", url).Warn("Failed to resolve SongLink URL")
		common.FollowUpWithError(s, i, resolveErrorMessage)
		return
	}

	if _, err := common.FollowUpWithEmbed(s, i, songEmbed(song), nil, false); err != nil {
		log.WithError(err).Error("Failed to send SongLink embed")
	}
}
