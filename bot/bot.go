package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cogbot/application"
	"cogbot/bot/common"
	"cogbot/bot/features/botshield"
	"cogbot/bot/features/cmlink"
	"cogbot/bot/features/songlink"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/domain/services"
	"cogbot/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Config holds bot configuration
type Config struct {
	Token               string
	GuildID             string // Registers guild-scoped commands when set
	OwnerIDs            []string
	CaptchaTimeout      time.Duration
	SongLinkMinInterval time.Duration
	CMDefaults          entities.CMCredentials
	DebugAPIPort        int
}

// Dependencies are the external clients the feature modules use
type Dependencies struct {
	Wordlist       entities.ScamWordlist
	ChallengerMode cmlink.ChallengerModeAPI
	SongResolver   application.SongResolver
	EventPublisher interfaces.EventPublisher
}

// Bot manages the Discord bot and all feature modules
type Bot struct {
	// Core components
	config     Config
	session    *discordgo.Session
	uowFactory application.UnitOfWorkFactory
	deps       Dependencies

	ownersMu sync.RWMutex
	owners   map[string]bool

	// Feature modules
	botShield *botshield.Feature
	cmLink    *cmlink.Feature
	songLink  *songlink.Feature
	poster    *cmlink.Poster

	debugServer *http.Server

	// Worker cleanup functions
	stopSongLinkWorker func()
	stopMonitor        func()
}

// New creates a new bot instance with all features
func New(config Config, uowFactory application.UnitOfWorkFactory, deps Dependencies) (*Bot, error) {
	// Create Discord session
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	bot := &Bot{
		config:     config,
		session:    dg,
		uowFactory: uowFactory,
		deps:       deps,
		owners:     make(map[string]bool),
	}
	for _, id := range config.OwnerIDs {
		if id = strings.TrimSpace(id); id != "" {
			bot.owners[id] = true
		}
	}

	// Create feature modules
	bot.botShield = botshield.NewFeature(dg, uowFactory, deps.Wordlist, config.CaptchaTimeout)
	bot.cmLink = cmlink.NewFeature(dg, uowFactory, deps.ChallengerMode, config.CMDefaults, bot.isOwner)
	bot.songLink = songlink.NewFeature(dg, uowFactory, deps.SongResolver)
	bot.poster = cmlink.NewPoster(dg)

	// Register handlers
	dg.AddHandler(bot.handleReady)
	dg.AddHandler(bot.handleCommands)
	dg.AddHandler(bot.handleGuildCreate)
	dg.AddHandler(bot.handleGuildDelete)
	dg.AddHandler(bot.handleMessageCreate)
	dg.AddHandler(bot.handleReactionAdd)

	// Start background workers before the gateway delivers messages
	ctx := context.Background()
	bot.stopSongLinkWorker = bot.StartSongLinkWorker(ctx)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		bot.stopSongLinkWorker()
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		bot.stopSongLinkWorker()
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	if config.DebugAPIPort > 0 {
		if err := bot.StartDebugAPI(config.DebugAPIPort); err != nil {
			log.Warnf("Failed to start debug API on port %d: %v", config.DebugAPIPort, err)
		}
	}

	log.WithFields(log.Fields{
		"scam_tokens": bot.botShield.WordlistSize(),
		"guild_id":    config.GuildID,
	}).Info("Discord bot ready")

	return bot, nil
}

// GetMatchPoster returns the Discord side of tournament transitions
func (b *Bot) GetMatchPoster() application.MatchPoster {
	return b.poster
}

// GetSession returns the Discord session
func (b *Bot) GetSession() *discordgo.Session {
	return b.session
}

// SetMonitorCleanup sets the cleanup function for the tournament monitor
func (b *Bot) SetMonitorCleanup(cleanup func()) {
	b.stopMonitor = cleanup
}

// Close gracefully shuts down the bot
func (b *Bot) Close() error {
	// Stop background workers
	if b.stopMonitor != nil {
		b.stopMonitor()
	}
	if b.stopSongLinkWorker != nil {
		b.stopSongLinkWorker()
	}
	log.Info("Background workers stopped")

	if b.debugServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.debugServer.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to stop debug API")
		}
	}

	return b.session.Close()
}

// isOwner reports whether the user may run owner-only commands
func (b *Bot) isOwner(userID string) bool {
	b.ownersMu.RLock()
	defer b.ownersMu.RUnlock()
	return b.owners[userID]
}

// handleReady adds the application owner, or every team member, to the configured owners
func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	app, err := s.Application("@me")
	if err != nil {
		log.WithError(err).Warn("Failed to resolve application owner")
		return
	}

	b.ownersMu.Lock()
	defer b.ownersMu.Unlock()
	if app.Owner != nil && app.Owner.ID != "" {
		b.owners[app.Owner.ID] = true
	}
	if app.Team != nil {
		for _, member := range app.Team.Members {
			if member.User != nil {
				b.owners[member.User.ID] = true
			}
		}
	}
	log.WithField("owners", len(b.owners)).Info("Resolved bot owners")
}

// handleCommands routes slash commands to appropriate handlers
func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	observability.GetMetrics().RecordMessageRead(observability.MessageTypeCommand)

	switch i.ApplicationCommandData().Name {
	case "botshield":
		b.botShield.HandleCommand(s, i)
	case "cmlink":
		b.cmLink.HandleCommand(s, i)
	case "songchannel":
		b.songLink.HandleSongChannelCommand(s, i)
	case "songlink":
		b.songLink.HandleSongLinkCommand(s, i)
	}
}

// handleMessageCreate runs captcha and scam checks first; links are only queued for kept messages
func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.GuildID == "" {
		return
	}
	observability.GetMetrics().RecordMessageRead(observability.MessageTypeMessage)

	if removed := b.botShield.HandleMessage(s, m); removed {
		return
	}
	b.songLink.HandleMessage(s, m)
}

// handleReactionAdd forwards reactions to pending captcha challenges
func (b *Bot) handleReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	observability.GetMetrics().RecordMessageRead(observability.MessageTypeReaction)
	b.botShield.HandleReaction(s, r)
}

// handleGuildCreate makes sure every joined guild has settings
func (b *Bot) handleGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	ctx := context.Background()

	guildID, err := common.ParseID(g.ID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", g.ID, err)
		return
	}

	// Create guild-scoped unit of work
	uow := b.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		log.Errorf("Failed to begin transaction: %v", err)
		return
	}
	defer uow.Rollback()

	guildSettingsService := services.NewGuildSettingsService(uow.GuildSettingsRepository())

	settings, err := guildSettingsService.GetOrCreateSettings(ctx, guildID)
	if err != nil {
		log.Errorf("Failed to track guild %s (%s): %v", g.Name, g.ID, err)
		return
	}

	if err := uow.Commit(); err != nil {
		log.Errorf("Failed to commit transaction: %v", err)
		return
	}

	log.WithFields(log.Fields{
		"guild_id":       settings.GuildID,
		"guild_name":     g.Name,
		"shield_enabled": settings.ShieldEnabled,
	}).Info("Guild available")
}

// handleGuildDelete drops a guild's data when the bot is removed from it
func (b *Bot) handleGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		return
	}

	ctx := context.Background()
	guildID, err := common.ParseID(g.ID)
	if err != nil {
		log.Errorf("Failed to parse guild ID %s: %v", g.ID, err)
		return
	}

	uow := b.uowFactory.CreateForGuild(guildID)
	if err := uow.Begin(ctx); err != nil {
		log.Errorf("Failed to begin transaction: %v", err)
		return
	}
	defer uow.Rollback()

	if err := services.NewGuildSettingsService(uow.GuildSettingsRepository()).DeleteGuildData(ctx, guildID); err != nil {
		log.Errorf("Failed to delete data of guild %d: %v", guildID, err)
		return
	}

	if err := uow.Commit(); err != nil {
		log.Errorf("Failed to commit transaction: %v", err)
		return
	}

	log.WithField("guild_id", guildID).Info("Removed from guild, data deleted")
}
