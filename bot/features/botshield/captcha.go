package botshield

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/services"
	"cogbot/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// runChallenge sends a captcha for the message and applies its outcome.
// It reports whether the member's message was removed.
func (f *Feature) runChallenge(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate, guildID, userID int64, settings *entities.GuildSettings) bool {
	if !f.pending.acquire(guildID, userID) {
		f.deleteMessage(s, m.ChannelID, m.ID)
		return true
	}
	defer f.pending.release(guildID, userID)

	challenge := services.NewCaptchaChallenge(nil)
	captchaMsg, err := f.sendChallenge(s, m, challenge)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id":   guildID,
			"channel_id": m.ChannelID,
			"user_id":    userID,
		}).Error("Failed to send captcha challenge")
		return false
	}

	reactions, stop := f.router.register(captchaMsg.ID)
	defer stop()

	for _, digit := range challenge.Choices {
		if err := s.MessageReactionAdd(captchaMsg.ChannelID, captchaMsg.ID, services.DigitEmoji(digit)); err != nil {
			log.WithError(err).WithField("message_id", captchaMsg.ID).Warn("Failed to add captcha reaction")
		}
	}

	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	outcome := waitForAnswer(challenge, reactions, m.Author.ID, selfID, f.captchaTimeout, f.now, func(r *discordgo.MessageReaction) {
		if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
			log.WithError(err).Debug("Failed to remove foreign captcha reaction")
		}
	})

	channelID, _ := common.ParseID(m.ChannelID)
	progress, err := f.recordOutcome(ctx, guildID, userID, channelID, outcome)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": guildID,
			"user_id":  userID,
		}).Error("Failed to record captcha outcome")
	}

	entry := captchaLog{
		User:      m.Author,
		ChannelID: m.ChannelID,
		Outcome:   outcome,
		Progress:  progress,
		Content:   m.Content,
		At:        f.now(),
	}
	for _, a := range m.Attachments {
		entry.Attachments = append(entry.Attachments, a.URL)
	}

	log.WithFields(log.Fields{
		"guild_id":   guildID,
		"user_id":    userID,
		"passed":     outcome.Passed,
		"reason":     outcome.ReasonCode(),
		"elapsed_ms": outcome.Elapsed.Milliseconds(),
	}).Info("Captcha challenge finished")

	if !outcome.Passed {
		observability.GetMetrics().RecordCaptchaChallenge(events.CaptchaOutcomeFailed)
		f.deleteMessage(s, m.ChannelID, m.ID)
		f.deleteMessage(s, captchaMsg.ChannelID, captchaMsg.ID)
		f.sendLog(s, settings, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{captchaFailedLogEmbed(entry)}})
		return true
	}

	f.deleteMessage(s, captchaMsg.ChannelID, captchaMsg.ID)
	if progress == nil {
		return false
	}

	var notice *discordgo.MessageEmbed
	lifetime := common.CaptchaPassedDeleteAfter
	if progress.Verified {
		observability.GetMetrics().RecordCaptchaChallenge(events.CaptchaOutcomeVerified)
		notice = verificationCompleteEmbed(m.Author.ID)
		lifetime = common.VerifiedDeleteAfter
	} else {
		observability.GetMetrics().RecordCaptchaChallenge(events.CaptchaOutcomePassed)
		notice = captchaPassedEmbed(m.Author.ID)
	}

	if msg, err := s.ChannelMessageSendEmbed(m.ChannelID, notice); err != nil {
		log.WithError(err).Warn("Failed to send captcha result")
	} else {
		f.deleteAfter(s, msg, lifetime)
	}

	f.sendLog(s, settings, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{captchaCompletedLogEmbed(entry)}})
	return false
}

// sendChallenge posts the captcha embed, with the rendered equation when rendering succeeds
func (f *Feature) sendChallenge(s *discordgo.Session, m *discordgo.MessageCreate, challenge entities.CaptchaChallenge) (*discordgo.Message, error) {
	send := &discordgo.MessageSend{
		Content: "<@" + m.Author.ID + ">",
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{m.Author.ID},
		},
	}

	image, err := renderCaptchaImage(challenge, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to render captcha image")
	} else {
		send.Files = []*discordgo.File{{
			Name:        captchaImageName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(image),
		}}
	}
	send.Embeds = []*discordgo.MessageEmbed{captchaEmbed(challenge, f.captchaTimeout, err == nil)}

	msg, err := s.ChannelMessageSendComplex(m.ChannelID, send)
	if err != nil {
		return nil, fmt.Errorf("failed to send captcha message: %w", err)
	}
	return msg, nil
}

func (f *Feature) recordOutcome(ctx context.Context, guildID, userID, channelID int64, outcome entities.CaptchaOutcome) (*entities.CaptchaProgress, error) {
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	progress, err := f.shieldService(uow).RecordCaptchaOutcome(ctx, guildID, userID, channelID, outcome)
	if err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return progress, nil
}

// waitForAnswer waits for the member's first reaction on the captcha message.
// Reactions by other users are handed to removeForeign; the bot's own are ignored.
func waitForAnswer(
	challenge entities.CaptchaChallenge,
	reactions <-chan *discordgo.MessageReaction,
	memberID, selfID string,
	timeout time.Duration,
	now func() time.Time,
	removeForeign func(*discordgo.MessageReaction),
) entities.CaptchaOutcome {
	start := now()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return entities.CaptchaOutcome{
				Reason:   entities.CaptchaFailTimeout,
				Expected: challenge.Answer(),
				Elapsed:  now().Sub(start),
			}
		case r := <-reactions:
			if r.UserID == selfID {
				continue
			}
			if r.UserID != memberID {
				removeForeign(r)
				continue
			}
			outcome := services.EvaluateReaction(challenge, r.Emoji.Name)
			outcome.Elapsed = now().Sub(start)
			return outcome
		}
	}
}
