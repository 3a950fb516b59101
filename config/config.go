package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"leveler/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken string `env:"DISCORD_TOKEN"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// Admin user IDs allowed to run admin commands without the Administrator permission
	AdminDiscordIDs []int64 `env:"ADMIN_DISCORD_IDS" envSeparator:","`

	// XP rewards, inclusive ranges
	XPPerMessageMin  int64 `env:"XP_PER_MESSAGE_MIN" envDefault:"5"`
	XPPerMessageMax  int64 `env:"XP_PER_MESSAGE_MAX" envDefault:"15"`
	XPPerReactionMin int64 `env:"XP_PER_REACTION_MIN" envDefault:"5"`
	XPPerReactionMax int64 `env:"XP_PER_REACTION_MAX" envDefault:"15"`

	// XP needed for the next level is level * LevelMultiplier
	LevelMultiplier int64 `env:"LEVEL_MULTIPLIER" envDefault:"100"`

	// Cooldowns
	MessageCooldown       time.Duration `env:"XP_COOLDOWN" envDefault:"60s"`
	ReactionCooldown      time.Duration `env:"REACTION_COOLDOWN" envDefault:"90s"`
	CooldownPruneInterval time.Duration `env:"COOLDOWN_PRUNE_INTERVAL" envDefault:"10m"`

	// Top-rank tracking
	TopCheckInterval    time.Duration `env:"TOP_CHECK_INTERVAL" envDefault:"60s"`
	CheckQueueSize      int           `env:"CHECK_QUEUE_SIZE" envDefault:"256"`
	CheckWorkers        int           `env:"CHECK_WORKERS" envDefault:"2"`
	ExternalCallTimeout time.Duration `env:"EXTERNAL_CALL_TIMEOUT" envDefault:"10s"`

	// ActivityTimeout bounds XP work for one message or reaction, including the wait for the write lock
	ActivityTimeout time.Duration `env:"ACTIVITY_TIMEOUT" envDefault:"10s"`

	// NATS configuration, empty disables outbound event publishing
	NATSServers string `env:"NATS_SERVERS"`

	// OpenTelemetry configuration
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"leveler"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"console"` // console, otlp, none
	OTelOTLPEndpoint         string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"30000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

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
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
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

// IsAdmin reports whether the user is a configured global admin
func (c *Config) IsAdmin(discordID int64) bool {
	for _, id := range c.AdminDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// LargestCooldown returns the longest configured cooldown, used to prune the cooldown table
func (c *Config) LargestCooldown() time.Duration {
	if c.ReactionCooldown > c.MessageCooldown {
		return c.ReactionCooldown
	}
	return c.MessageCooldown
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Environment != "test" {
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	if c.LevelMultiplier <= 0 {
		return fmt.Errorf("LEVEL_MULTIPLIER must be positive, got %d", c.LevelMultiplier)
	}
	if c.XPPerMessageMin < 0 || c.XPPerMessageMax < c.XPPerMessageMin {
		return fmt.Errorf("invalid message XP range [%d, %d]", c.XPPerMessageMin, c.XPPerMessageMax)
	}
	if c.XPPerReactionMin < 0 || c.XPPerReactionMax < c.XPPerReactionMin {
		return fmt.Errorf("invalid reaction XP range [%d, %d]", c.XPPerReactionMin, c.XPPerReactionMax)
	}
	if c.CheckQueueSize <= 0 || c.CheckWorkers <= 0 {
		return fmt.Errorf("CHECK_QUEUE_SIZE and CHECK_WORKERS must be positive")
	}

	positive := []struct {
		name  string
		value time.Duration
	}{
		{"TOP_CHECK_INTERVAL", c.TopCheckInterval},
		{"COOLDOWN_PRUNE_INTERVAL", c.CooldownPruneInterval},
		{"EXTERNAL_CALL_TIMEOUT", c.ExternalCallTimeout},
		{"ACTIVITY_TIMEOUT", c.ActivityTimeout},
	}
	for _, d := range positive {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.MessageCooldown < 0 || c.ReactionCooldown < 0 {
		return fmt.Errorf("XP_COOLDOWN and REACTION_COOLDOWN must not be negative")
	}

	return nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		DiscordToken:          "test-token",
		AdminDiscordIDs:       []int64{999999},
		XPPerMessageMin:       5,
		XPPerMessageMax:       15,
		XPPerReactionMin:      5,
		XPPerReactionMax:      15,
		LevelMultiplier:       100,
		MessageCooldown:       60 * time.Second,
		ReactionCooldown:      90 * time.Second,
		CooldownPruneInterval: 10 * time.Minute,
		TopCheckInterval:      60 * time.Second,
		CheckQueueSize:        16,
		CheckWorkers:          1,
		ExternalCallTimeout:   5 * time.Second,
		ActivityTimeout:       5 * time.Second,
		OTelServiceName:       "leveler",
		OTelExporterType:      "none",
		LogLevel:              "debug",
	}
}
