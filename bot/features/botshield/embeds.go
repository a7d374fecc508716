package botshield

import (
	"fmt"
	"strings"
	"time"

	"cogbot/bot/common"
	"cogbot/domain/entities"

	"github.com/bwmarrin/discordgo"
)

// captchaEmbed builds the challenge shown to an unverified member
func captchaEmbed(challenge entities.CaptchaChallenge, timeout time.Duration, withImage bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Captcha Verification",
		Description: fmt.Sprintf("Please react with the sum of **%d and %d**.\nYou have %d seconds.",
			challenge.A, challenge.B, int(timeout.Seconds())),
		Color: common.ColorPrimary,
	}
	if withImage {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + captchaImageName}
	}
	return embed
}

func captchaPassedEmbed(userID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Captcha Passed",
		Description: fmt.Sprintf("<@%s> Your response was accepted.", userID),
		Color:       common.ColorSuccess,
	}
}

func verificationCompleteEmbed(userID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Verification Complete",
		Description: fmt.Sprintf("<@%s> You are now verified.", userID),
		Color:       common.ColorSuccess,
	}
}

// captchaLog carries what the log channel embeds need about a finished challenge
type captchaLog struct {
	User        *discordgo.User
	ChannelID   string
	Outcome     entities.CaptchaOutcome
	Progress    *entities.CaptchaProgress
	Content     string
	Attachments []string
	At          time.Time
}

func (l captchaLog) userField() *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:  "User",
		Value: fmt.Sprintf("%s (ID: %s)", l.User.Username, l.User.ID),
	}
}

func (l captchaLog) channelField() *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{
		Name:  "Channel",
		Value: fmt.Sprintf("<#%s> (ID: %s)", l.ChannelID, l.ChannelID),
	}
}

func (l captchaLog) footer() *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: "Time: " + l.At.UTC().Format(time.RFC3339)}
}

func (l captchaLog) timeTaken() string {
	text := common.FormatSeconds(l.Outcome.Elapsed)
	if l.Outcome.SuspiciouslyFast() {
		text += " (suspiciously fast)"
	}
	return text
}

// captchaFailedLogEmbed reports a failed challenge and the removed message
func captchaFailedLogEmbed(l captchaLog) *discordgo.MessageEmbed {
	content := l.Content
	if strings.TrimSpace(content) == "" {
		content = "[empty]"
	}

	fields := []*discordgo.MessageEmbedField{
		l.userField(),
		l.channelField(),
		{Name: "Reason", Value: l.Outcome.ReasonText()},
		{Name: "Original message", Value: common.Truncate(content, common.MaxEmbedFieldValue)},
	}
	if len(l.Attachments) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Attachments",
			Value: common.Truncate(strings.Join(l.Attachments, ", "), common.MaxEmbedFieldValue),
		})
	}

	return &discordgo.MessageEmbed{
		Title:  "Captcha Failed",
		Color:  common.ColorDanger,
		Fields: fields,
		Footer: l.footer(),
	}
}

// captchaCompletedLogEmbed reports a passed challenge, with or without verification
func captchaCompletedLogEmbed(l captchaLog) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Color:  common.ColorSuccess,
		Footer: l.footer(),
		Fields: []*discordgo.MessageEmbedField{
			l.userField(),
			l.channelField(),
			{Name: "Time taken", Value: l.timeTaken()},
		},
	}

	if l.Progress.Verified {
		embed.Title = "Captcha Completed"
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Status",
			Value: fmt.Sprintf("Now verified (required %d)", l.Progress.Required),
		})
	} else {
		embed.Title = "Captcha Completed (Progress)"
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Progress",
			Value: fmt.Sprintf("%d/%d", l.Progress.Progress, l.Progress.Required),
		})
	}
	return embed
}

// scamAlertEmbed reports a message removed by the scam heuristic
func scamAlertEmbed(m *discordgo.Message, analysis entities.ScamAnalysis, threshold float64) *discordgo.MessageEmbed {
	tokens := analysis.SortedTokens()
	matched := make([]string, 0, len(tokens))
	for _, token := range tokens {
		matched = append(matched, fmt.Sprintf("`%s` ×%d", token, analysis.Matches[token]))
	}

	return &discordgo.MessageEmbed{
		Title: "Possible Scam Detected",
		Color: common.ColorDanger,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (ID: %s)", m.Author.ID, m.Author.ID), Inline: true},
			{Name: "Channel", Value: fmt.Sprintf("<#%s>", m.ChannelID), Inline: true},
			{Name: "Score", Value: fmt.Sprintf("%s (threshold %s)", common.FormatScore(analysis.Score), common.FormatScore(threshold)), Inline: true},
			{Name: "Matched tokens", Value: common.Truncate(strings.Join(matched, ", "), common.MaxEmbedFieldValue)},
			{Name: "Message", Value: common.CodeBlock(m.Content)},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// protectedEmbed confirms an applied protect command
func protectedEmbed(guildName string, settings *entities.GuildSettings, autoVerified int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Server Protected",
		Color: common.ColorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Server", Value: fmt.Sprintf("%s (ID: %d)", guildName, settings.GuildID)},
			{Name: "Captchas required", Value: fmt.Sprintf("%d", settings.CaptchaCount), Inline: true},
			{Name: "Auto-verify rule", Value: common.FormatAutoVerifyRule(settings.AutoVerifyDays), Inline: true},
			{Name: "Log channel", Value: optionalChannel(settings.ShieldLogChannelID)},
			{Name: "Auto-verified members", Value: fmt.Sprintf("%d", autoVerified)},
		},
	}
}

// statusEmbed shows the guild's protection configuration
func statusEmbed(settings *entities.GuildSettings) *discordgo.MessageEmbed {
	protection := "Disabled"
	color := common.ColorWarning
	if settings.ShieldEnabled {
		protection = "Enabled"
		color = common.ColorSuccess
		if settings.ShieldSetupAt != nil {
			protection += " since " + common.FormatDiscordTimestamp(*settings.ShieldSetupAt, "f")
		}
	}

	alertRole := "None"
	if settings.HasAlertRole() {
		alertRole = common.GetRoleMention(*settings.AlertRoleID)
	}

	scam := "Disabled"
	if settings.ScamProtectionEnabled {
		scam = "Enabled"
	}

	return &discordgo.MessageEmbed{
		Title: "BotShield Status",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Protection", Value: protection},
			{Name: "Captchas required", Value: fmt.Sprintf("%d", settings.CaptchaCount), Inline: true},
			{Name: "Auto-verify rule", Value: common.FormatAutoVerifyRule(settings.AutoVerifyDays), Inline: true},
			{Name: "Log channel", Value: optionalChannel(settings.ShieldLogChannelID)},
			{Name: "Alert role", Value: alertRole, Inline: true},
			{Name: "Scam protection", Value: fmt.Sprintf("%s (threshold %s)", scam, common.FormatScore(settings.ScamThreshold)), Inline: true},
		},
	}
}

func optionalChannel(channelID *int64) string {
	if channelID == nil || *channelID == 0 {
		return "None"
	}
	return common.GetChannelMention(*channelID)
}
