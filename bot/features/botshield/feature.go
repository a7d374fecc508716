package botshield

import (
	"context"
	"fmt"
	"time"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/domain/entities"
	"cogbot/domain/events"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Feature handles captcha protection and scam scanning
type Feature struct {
	session        *discordgo.Session
	uowFactory     application.UnitOfWorkFactory
	analyzer       *services.ScamAnalyzer
	captchaTimeout time.Duration
	router         *reactionRouter
	pending        *pendingChallenges
	now            func() time.Time
}

// NewFeature creates a new BotShield feature instance
func NewFeature(session *discordgo.Session, uowFactory application.UnitOfWorkFactory, wordlist entities.ScamWordlist, captchaTimeout time.Duration) *Feature {
	return &Feature{
		session:        session,
		uowFactory:     uowFactory,
		analyzer:       services.NewScamAnalyzer(wordlist),
		captchaTimeout: captchaTimeout,
		router:         newReactionRouter(),
		pending:        newPendingChallenges(),
		now:            time.Now,
	}
}

// HandleCommand routes botshield commands to appropriate handlers
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
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

	var err error
	switch options[0].Name {
	case "protect":
		err = f.handleProtect(s, i, options[0].Options)
	case "unprotect":
		err = f.handleUnprotect(s, i)
	case "verify":
		err = f.handleVerify(s, i, options[0].Options)
	case "unverify":
		err = f.handleUnverify(s, i, options[0].Options)
	case "status":
		err = f.handleStatus(s, i)
	case "alertrole":
		err = f.handleAlertRole(s, i, options[0].Options)
	case "scam":
		err = f.handleScam(s, i, options[0].Options)
	}

	if err != nil {
		common.HandleError(s, i, err, false)
	}
}

// HandleMessage gates messages of unverified members and scans the rest for scams.
// It reports whether the message was removed.
func (f *Feature) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}

	guildID, err := common.ParseID(m.GuildID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", m.GuildID, err)
		return false
	}
	userID, err := common.ParseID(m.Author.ID)
	if err != nil {
		log.Errorf("Failed to parse user ID %s: %v", m.Author.ID, err)
		return false
	}

	if f.pending.isPending(guildID, userID) {
		f.deleteMessage(s, m.ChannelID, m.ID)
		return true
	}

	ctx := context.Background()
	settings, required, err := f.requiresChallenge(ctx, guildID, userID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id": guildID,
			"user_id":  userID,
		}).Error("Failed to check member verification")
		return false
	}

	if required {
		return f.runChallenge(ctx, s, m, guildID, userID, settings)
	}

	if settings != nil && settings.ScamProtectionEnabled {
		return f.scanMessage(ctx, s, m, guildID, settings)
	}
	return false
}

// HandleReaction forwards reactions on open captcha messages
func (f *Feature) HandleReaction(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.MessageReaction == nil {
		return
	}
	f.router.dispatch(r.MessageReaction)
}

// WordlistSize returns the number of scored scam tokens
func (f *Feature) WordlistSize() int {
	return f.analyzer.Size()
}

func (f *Feature) requiresChallenge(ctx context.Context, guildID, userID int64) (*entities.GuildSettings, bool, error) {
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	settings, required, err := f.shieldService(uow).RequiresChallenge(ctx, guildID, userID)
	if err != nil {
		return nil, false, err
	}
	if err := uow.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return settings, required, nil
}

func (f *Feature) shieldService(uow application.UnitOfWork) interfaces.ShieldService {
	return services.NewShieldService(
		uow.GuildSettingsRepository(),
		uow.MemberVerificationRepository(),
		uow.EventBus(),
	)
}

// publish emits an event through a unit of work so it is flushed on commit
func (f *Feature) publish(ctx context.Context, guildID int64, event events.Event) {
	uow := f.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		log.WithError(err).Error("Failed to begin transaction for event")
		return
	}
	defer uow.Rollback()

	if err := uow.EventBus().Publish(event); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to publish event")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithError(err).WithField("event_type", event.Type()).Error("Failed to commit event")
	}
}

func (f *Feature) deleteMessage(s *discordgo.Session, channelID, messageID string) {
	if err := s.ChannelMessageDelete(channelID, messageID); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"channel_id": channelID,
			"message_id": messageID,
		}).Debug("Failed to delete message")
	}
}

// deleteAfter removes a transient bot message once its lifetime ends
func (f *Feature) deleteAfter(s *discordgo.Session, msg *discordgo.Message, after time.Duration) {
	time.AfterFunc(after, func() {
		f.deleteMessage(s, msg.ChannelID, msg.ID)
	})
}

// sendLog posts an embed to the guild's shield log channel, if configured
func (f *Feature) sendLog(s *discordgo.Session, settings *entities.GuildSettings, send *discordgo.MessageSend) {
	if settings == nil || !settings.HasLogChannel() {
		return
	}
	channelID := common.FormatID(*settings.ShieldLogChannelID)
	if _, err := s.ChannelMessageSendComplex(channelID, send); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"guild_id":   settings.GuildID,
			"channel_id": channelID,
		}).Warn("Failed to post to shield log channel")
	}
}
