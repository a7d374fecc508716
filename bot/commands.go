package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// registerCommands registers all slash commands with Discord.
// When a guild is configured, server commands are registered to it; /cmlink is always
// global because its connect subcommand is used in direct messages.
func (b *Bot) registerCommands() error {
	manageServer := int64(discordgo.PermissionManageServer)
	noDM := false

	uuidOption := func(name, description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        name,
			Description: description,
			Required:    true,
			MinLength:   intPtr(32),
			MaxLength:   38,
		}
	}

	guildCommands := []*discordgo.ApplicationCommand{
		{
			Name:                     "botshield",
			Description:              "Captcha and scam protection",
			DefaultMemberPermissions: &manageServer,
			DMPermission:             &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "protect",
					Description: "Require new members to pass captchas before posting",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "captcha_count",
							Description: "Captchas a member must pass (default 1)",
							Required:    false,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "auto_verify_days",
							Description: "-1 off, 0 everyone already here, N members who joined N days ago",
							Required:    false,
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "log_channel",
							Description:  "Channel for captcha and scam logs",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unprotect",
					Description: "Disable captcha protection",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "verify",
					Description: "Mark a member as verified",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "member",
							Description: "Member to verify",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unverify",
					Description: "Reset a member's verification",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionUser,
							Name:        "member",
							Description: "Member to unverify",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show protection settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "alertrole",
					Description: "Set or clear the role mentioned on scam alerts",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionRole,
							Name:        "role",
							Description: "Role to mention (omit to clear)",
							Required:    false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "scam",
					Description: "Configure scam message detection",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "enabled",
							Description: "Scan messages for scam tokens",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionNumber,
							Name:        "threshold",
							Description: "Score above which a message is removed (default 5)",
							Required:    false,
						},
					},
				},
			},
		},
		{
			Name:         "songchannel",
			Description:  "Manage channels that convert music links into SongLink embeds",
			DMPermission: &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "register",
					Description: "Convert music links posted in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Channel to register (defaults to this one)",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Stop converting music links in a channel",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "Channel to remove (defaults to this one)",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     false,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List registered song channels",
				},
			},
		},
		{
			Name:        "songlink",
			Description: "Convert a music link into a SongLink embed",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "url",
					Description: "Track, album or playlist URL from a supported service",
					Required:    true,
				},
			},
		},
	}

	globalCommands := []*discordgo.ApplicationCommand{
		{
			Name:        "cmlink",
			Description: "Challenger Mode tournament integration",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "connect",
					Description: "Link your Challenger Mode account (direct messages only)",
					Options: []*discordgo.ApplicationCommandOption{
						uuidOption("user_id", "Your Challenger Mode userId"),
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "setup",
					Description: "Set the update channel, lobby voice channel and match category",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "update_channel",
							Description:  "Channel for tournament announcements",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "lobby_voice",
							Description:  "Voice channel players wait in",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
						},
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "category",
							Description:  "Category for match voice channels",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "tournament",
					Description: "Manage tracked tournaments",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "add",
							Description: "Track a tournament in this server",
							Options:     []*discordgo.ApplicationCommandOption{uuidOption("tournament_id", "Challenger Mode tournamentId")},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "remove",
							Description: "Stop tracking a tournament",
							Options:     []*discordgo.ApplicationCommandOption{uuidOption("tournament_id", "Challenger Mode tournamentId")},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "role",
							Description: "Set or clear the role mentioned on tournament announcements",
							Options: []*discordgo.ApplicationCommandOption{
								uuidOption("tournament_id", "Challenger Mode tournamentId"),
								{
									Type:        discordgo.ApplicationCommandOptionRole,
									Name:        "role",
									Description: "Role to mention (omit to clear)",
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "unlinked",
							Description: "List participants without a linked Discord account",
							Options:     []*discordgo.ApplicationCommandOption{uuidOption("tournament_id", "Challenger Mode tournamentId")},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "admin",
					Description: "Inspect CMLink data",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "linked",
							Description: "List linked users in this server",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionInteger,
									Name:        "limit",
									Description: "Maximum users to show (1-50)",
									MinValue:    floatPtr(1),
									MaxValue:    maxLinkedUsers,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "tournaments",
							Description: "List tracked tournaments",
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "settings",
							Description: "Show CMLink settings",
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "forcelink",
							Description: "Link a Challenger Mode user to a member",
							Options: []*discordgo.ApplicationCommandOption{
								uuidOption("cm_user_id", "Challenger Mode userId"),
								{
									Type:        discordgo.ApplicationCommandOptionUser,
									Name:        "member",
									Description: "Member to link",
									Required:    true,
								},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "api",
					Description: "Challenger Mode API settings (bot owner only)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "seturl",
							Description: "Set the GraphQL endpoint",
							Options:     []*discordgo.ApplicationCommandOption{urlOption()},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "settokenurl",
							Description: "Set the access key endpoint",
							Options:     []*discordgo.ApplicationCommandOption{urlOption()},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "setrefreshtoken",
							Description: "Store the refresh key",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionString,
									Name:        "token",
									Description: "Refresh key",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "setinterval",
							Description: "Set the tournament poll interval",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionInteger,
									Name:        "seconds",
									Description: "Seconds between polls (minimum 2)",
									Required:    true,
									MinValue:    floatPtr(2),
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "setlogging",
							Description: "Toggle API request logging",
							Options: []*discordgo.ApplicationCommandOption{
								{
									Type:        discordgo.ApplicationCommandOptionBoolean,
									Name:        "enabled",
									Description: "Log API requests and responses",
									Required:    true,
								},
							},
						},
						{
							Type:        discordgo.ApplicationCommandOptionSubCommand,
							Name:        "test",
							Description: "Check the API credentials",
						},
					},
				},
			},
		},
	}

	appID := b.session.State.User.ID
	for _, cmd := range guildCommands {
		_, err := b.session.ApplicationCommandCreate(appID, b.config.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}
	for _, cmd := range globalCommands {
		_, err := b.session.ApplicationCommandCreate(appID, "", cmd)
		if err != nil {
			return fmt.Errorf("cannot create '%s' command: %w", cmd.Name, err)
		}
	}

	return nil
}

const maxLinkedUsers = 50

func urlOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "url",
		Description: "http(s) URL",
		Required:    true,
	}
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}
