package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"cogbot/database"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string   `env:"DISCORD_TOKEN"`
	GuildID      string   `env:"GUILD_ID"` // Registers commands to a single guild when set
	OwnerIDs     []string `env:"OWNER_DISCORD_IDS" envSeparator:","`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// NATS configuration (empty disables event publishing)
	NATSServers string `env:"NATS_SERVERS"`

	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	// Loki push configuration
	LokiURL    string `env:"LOKI_URL"`
	LokiUser   string `env:"LOKI_USER"`
	LokiAPIKey string `env:"LOKI_API_KEY"`
	LokiJob    string `env:"LOKI_JOB" envDefault:"cogbot"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"`
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MS" envDefault:"60000"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"cogbot"`

	// BotShield configuration
	CaptchaTimeout   time.Duration `env:"CAPTCHA_TIMEOUT" envDefault:"60s"`
	ScamWordlistPath string        `env:"SCAM_WORDLIST_PATH"`

	// SongLink configuration
	SongLinkAPIURL      string        `env:"SONGLINK_API_URL" envDefault:"https://api.song.link/v1-alpha.1/links"`
	SongLinkMinInterval time.Duration `env:"SONGLINK_MIN_INTERVAL" envDefault:"6100ms"`
	SongLinkTimeout     time.Duration `env:"SONGLINK_TIMEOUT" envDefault:"10s"`

	// Challenger Mode configuration (seed values, owner commands override them at runtime)
	CMAPIURL       string        `env:"CM_API_URL" envDefault:"https://publicapi.challengermode.com/graphql"`
	CMTokenURL     string        `env:"CM_TOKEN_URL" envDefault:"https://publicapi.challengermode.com/mk1/v1/auth/access_keys"`
	CMRefreshKey   string        `env:"CM_REFRESH_KEY"`
	CMAPIVersion   string        `env:"CM_API_VERSION"`
	CMPollInterval time.Duration `env:"CM_POLL_INTERVAL" envDefault:"5s"`

	// Debug API (0 disables it)
	DebugAPIPort int `env:"DEBUG_API_PORT" envDefault:"0"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			// In test environment, use a default test config instead of panicking
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
				instance.DiscordToken = "test-token"
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from the environment, reading a .env file first when present
func load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if config.CMPollInterval < 2*time.Second {
		config.CMPollInterval = 2 * time.Second
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:         "test",
		OwnerIDs:            []string{"999999"},
		LogLevel:            "debug",
		LogFormat:           "text",
		CaptchaTimeout:      60 * time.Second,
		SongLinkAPIURL:      "https://api.song.link/v1-alpha.1/links",
		SongLinkMinInterval: 6100 * time.Millisecond,
		SongLinkTimeout:     10 * time.Second,
		CMAPIURL:            "https://publicapi.challengermode.com/graphql",
		CMTokenURL:          "https://publicapi.challengermode.com/mk1/v1/auth/access_keys",
		CMPollInterval:      5 * time.Second,
		OTelServiceName:     "cogbot",
		LokiJob:             "cogbot",
	}
}
