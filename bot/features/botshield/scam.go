package botshield

import (
	"context"

	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// scanMessage removes messages whose scam score reaches the guild threshold and alerts moderators
func (f *Feature) scanMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, guildID int64, settings *entities.GuildSettings) bool {
	analysis := f.analyzer.Analyze(m.Content)
	if !analysis.Exceeds(settings.ScamThreshold) {
		return false
	}

	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"channel_id": m.ChannelID,
		"user_id":    m.Author.ID,
		"score":      analysis.Score,
		"threshold":  settings.ScamThreshold,
		"matches":    analysis.Matches,
	}).Warn("Possible scam message detected")

	f.deleteMessage(s, m.ChannelID, m.ID)
	observability.GetMetrics().RecordScamDetection()

	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{scamAlertEmbed(m.Message, analysis, settings.ScamThreshold)},
	}
	if settings.HasAlertRole() {
		roleID := common.FormatID(*settings.AlertRoleID)
		send.Content = common.GetRoleMention(*settings.AlertRoleID)
		send.AllowedMentions = &discordgo.MessageAllowedMentions{Roles: []string{roleID}}
	}
	f.sendLog(s, settings, send)

	channelID, _ := common.ParseID(m.ChannelID)
	userID, _ := common.ParseID(m.Author.ID)
	messageID, _ := common.ParseID(m.ID)
	f.publish(ctx, guildID, events.ScamDetectedEvent{
		GuildID:   guildID,
		ChannelID: channelID,
		UserID:    userID,
		MessageID: messageID,
		Score:     analysis.Score,
		Threshold: settings.ScamThreshold,
		Matches:   analysis.Matches,
	})
	return true
}
