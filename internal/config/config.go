package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Telegram
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminChatID   int64  `env:"ADMIN_CHAT_ID"` // receives credential-trouble alerts

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/avitorelay.db"`

	// Avito API
	AvitoBaseURL string        `env:"AVITO_BASE_URL" envDefault:"https://api.avito.ru"`
	HTTPTimeout  time.Duration `env:"AVITO_HTTP_TIMEOUT" envDefault:"15s"`

	// Polling
	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"5m"`
	ActivePeriodDays int           `env:"ACTIVE_PERIOD_DAYS" envDefault:"30"`

	// Auto-reply
	DefaultReplyDelay int `env:"DEFAULT_REPLY_DELAY" envDefault:"1"` // minutes
	HistoryLimit      int `env:"HISTORY_LIMIT" envDefault:"10"`      // messages fed to the generator

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.PollInterval < time.Minute {
		return nil, fmt.Errorf("POLL_INTERVAL must be at least 1m, got %s", cfg.PollInterval)
	}
	if cfg.ActivePeriodDays < 1 {
		return nil, fmt.Errorf("ACTIVE_PERIOD_DAYS must be positive, got %d", cfg.ActivePeriodDays)
	}
	// The delay floor keeps the operator a window to answer manually.
	if cfg.DefaultReplyDelay < 1 {
		cfg.DefaultReplyDelay = 1
	}

	return cfg, nil
}
