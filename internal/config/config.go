package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	Bot    BotConfig
	DB     DBConfig
	Server ServerConfig
}

// BotConfig holds Telegram bot configuration
type BotConfig struct {
	Token      string  `envconfig:"BOT_TOKEN" required:"true"`
	AdminIDs   []int64 `envconfig:"ADMIN_IDS"`
	WebsiteURL string  `envconfig:"WEBSITE_URL" default:"https://example.com"`
}

// DBConfig holds PostgreSQL configuration
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	Database string `envconfig:"DB_NAME" default:"anime_bot"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"10"`
}

// ServerConfig holds HTTP server and webhook configuration.
// WebhookHost set selects webhook delivery; empty selects long polling.
type ServerConfig struct {
	Host        string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port        int    `envconfig:"SERVER_PORT" default:"8080"`
	WebhookHost string `envconfig:"WEBHOOK_HOST"`
	WebhookPath string `envconfig:"WEBHOOK_PATH" default:"/webhook"`
}

// DSN returns the PostgreSQL data source name
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// WebhookURL returns the full public webhook URL, or "" in polling mode
func (c *ServerConfig) WebhookURL() string {
	if c.WebhookHost == "" {
		return ""
	}
	return strings.TrimSuffix(c.WebhookHost, "/") + c.WebhookPath
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg.Bot); err != nil {
		return nil, fmt.Errorf("failed to load bot config: %w", err)
	}

	if err := envconfig.Process("", &cfg.DB); err != nil {
		return nil, fmt.Errorf("failed to load db config: %w", err)
	}

	if err := envconfig.Process("", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.DB.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Server.WebhookHost != "" && !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return fmt.Errorf("WEBHOOK_PATH must start with /")
	}
	return nil
}

// IsAdmin reports whether the given user ID is on the admin allow-list
func (c *BotConfig) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
