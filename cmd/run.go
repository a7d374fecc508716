package cmd

import (
	"context"
	"fmt"
	"time"

	"cogbot/application"
	"cogbot/bot"
	"cogbot/config"
	"cogbot/database"
	"cogbot/domain/entities"
	"cogbot/domain/interfaces"
	"cogbot/infrastructure"
	"cogbot/infrastructure/challengermode"
	"cogbot/infrastructure/logging"
	"cogbot/infrastructure/observability"
	"cogbot/infrastructure/songlink"
	"cogbot/infrastructure/wordlist"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()

	closeLogs, err := logging.Setup(logging.Options{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Loki: logging.LokiConfig{
			URL:    cfg.LokiURL,
			User:   cfg.LokiUser,
			APIKey: cfg.LokiAPIKey,
			Job:    cfg.LokiJob,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer closeLogs()

	log.Info("Starting cogbot...")

	// Initialize OpenTelemetry metrics
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully")

	// Initialize event publishing
	eventPublisher, natsClient, err := newEventPublisher(ctx, cfg)
	if err != nil {
		db.Close()
		return err
	}

	// Initialize unit of work factory
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)

	// External API clients
	cmDefaults := entities.CMCredentials{
		APIURL:       cfg.CMAPIURL,
		TokenURL:     cfg.CMTokenURL,
		RefreshKey:   cfg.CMRefreshKey,
		PollInterval: cfg.CMPollInterval,
	}
	credentialStore := application.NewCMCredentialStore(uowFactory, cmDefaults)
	cmClient := challengermode.NewClient(credentialStore, cfg.CMAPIVersion)
	songClient := songlink.NewClient(cfg.SongLinkAPIURL, cfg.SongLinkTimeout)

	words, err := wordlist.Load(cfg.ScamWordlistPath)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load scam wordlist: %w", err)
	}

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:               cfg.DiscordToken,
		GuildID:             cfg.GuildID,
		OwnerIDs:            cfg.OwnerIDs,
		CaptchaTimeout:      cfg.CaptchaTimeout,
		SongLinkMinInterval: cfg.SongLinkMinInterval,
		CMDefaults:          cmDefaults,
		DebugAPIPort:        cfg.DebugAPIPort,
	}
	discordBot, err := bot.New(botConfig, uowFactory, bot.Dependencies{
		Wordlist:       words,
		ChallengerMode: cmClient,
		SongResolver:   songClient,
		EventPublisher: eventPublisher,
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Start the tournament monitor once the Discord side is available
	monitor := application.NewTournamentMonitor(uowFactory, cmClient, discordBot.GetMatchPoster(), credentialStore, cfg.CMPollInterval)
	discordBot.SetMonitorCleanup(monitor.Start(ctx))

	// Wait for context cancellation
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down bot...")

	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.Errorf("Error shutting down metrics: %v", err)
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS client: %v", err)
		}
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}

// newEventPublisher connects to NATS when servers are configured, otherwise events are dropped
func newEventPublisher(ctx context.Context, cfg *config.Config) (interfaces.EventPublisher, *infrastructure.NATSClient, error) {
	if cfg.NATSServers == "" {
		log.Info("NATS_SERVERS not set, domain events are disabled")
		return infrastructure.NewNoopEventPublisher(), nil, nil
	}

	log.Infof("Connecting to NATS at %s...", cfg.NATSServers)
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper())
	if err := publisher.EnsureEventStream(); err != nil {
		natsClient.Close()
		return nil, nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}
	log.Info("NATS event publishing enabled")

	return publisher, natsClient, nil
}
