package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"
)

type Config struct {
	Port                       int     `env:"PORT" envDefault:"8080"`
	DatabaseURL                string  `env:"DATABASE_URL,required"`
	RedisURL                   string  `env:"REDIS_URL,required"`
	TelegramToken              string  `env:"TELEGRAM_TOKEN,required"`
	TelegramMode               string  `env:"TELEGRAM_MODE" envDefault:"webhook"`
	WebhookURL                 string  `env:"WEBHOOK_URL"`
	WebhookSecret              string  `env:"WEBHOOK_SECRET"`
	AuthorizedIDs              []int64 `env:"AUTHORIZED_IDS" envSeparator:","`
	AdminIDs                   []int64 `env:"ADMIN_IDS" envSeparator:","`
	AdminTokenHash             string  `env:"ADMIN_TOKEN_HASH"`
	GoogleCredentialsPath      string  `env:"GOOGLE_CREDENTIALS_PATH" envDefault:"secrets/credentials.json"`
	ContextSheetID             string  `env:"CONTEXT_SHEET_ID"`
	TrackingSheetID            string  `env:"TRACKING_SHEET_ID"`
	ContextSyncIntervalMinutes int     `env:"CONTEXT_SYNC_INTERVAL_MINUTES" envDefault:"60"`
	SessionTTLMinutes          int     `env:"SESSION_TTL_MINUTES" envDefault:"0"`
	UserRateLimitPerMin        int     `env:"USER_RATE_LIMIT_PER_MIN" envDefault:"30"`
	LogLevel                   string  `env:"LOG_LEVEL" envDefault:"info"`
}

// SessionTTL is zero when in-progress reports never expire.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c *Config) ContextSyncInterval() time.Duration {
	if c.ContextSyncIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.ContextSyncIntervalMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) SheetsEnabled() bool {
	return c.ContextSheetID != "" || c.TrackingSheetID != ""
}

func (c *Config) Validate() error {
	switch c.TelegramMode {
	case ModeWebhook, ModePolling:
	default:
		return fmt.Errorf("TELEGRAM_MODE must be %q or %q, got %q", ModeWebhook, ModePolling, c.TelegramMode)
	}

	if c.AdminTokenHash != "" {
		if !strings.HasPrefix(c.AdminTokenHash, "$2a$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2b$") &&
			!strings.HasPrefix(c.AdminTokenHash, "$2y$") {
			return fmt.Errorf("ADMIN_TOKEN_HASH must be a bcrypt hash (generate with: go run ./cmd/setup admin-token)")
		}
	}

	if c.TelegramMode == ModeWebhook {
		if c.WebhookSecret == "" {
			log.Warn().Msg("WEBHOOK_SECRET is empty: webhook secret token verification disabled")
		}
		if c.WebhookURL != "" && !strings.HasPrefix(c.WebhookURL, "https://") {
			return fmt.Errorf("WEBHOOK_URL must use https")
		}
	}

	if len(c.AuthorizedIDs) == 0 {
		log.Warn().Msg("AUTHORIZED_IDS is empty: every telegram user may submit reports")
	}

	return nil
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SetupConfig is the subset read by the setup command, which does not touch
// the database or Redis.
type SetupConfig struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`
	WebhookURL    string `env:"WEBHOOK_URL"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

func LoadSetup() (*SetupConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg SetupConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
