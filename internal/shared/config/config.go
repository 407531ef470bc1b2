package config

import (
	"EventRelay/internal/adapters/eventbus"
	"EventRelay/internal/runner"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Telegram ingress modes.
const (
	TelegramModePolling = "polling"
	TelegramModeWebhook = "webhook"
)

// BrokerConfig sizes the event broker.
type BrokerConfig struct {
	SubscriberCount int
	ChannelSize     int
}

// RelayConfig controls classification and the relay hub.
type RelayConfig struct {
	Prefix     string
	BufferSize int
}

// TelegramConfig enables the Telegram source and notifier when Token is set.
type TelegramConfig struct {
	Token        string
	Mode         string
	NotifyChatID int64
	WebhookURL   string
	ListenPort   int
}

// PostgresConfig enables the event journal when URL is set.
type PostgresConfig struct {
	URL            string
	MaxConns       int
	ConnectTimeout time.Duration
}

// Config holds all configuration for the application.
type Config struct {
	AppEnv        string
	LogLevel      string
	EncryptionKey string
	Broker        BrokerConfig
	Relay         RelayConfig
	Telegram      TelegramConfig
	Postgres      PostgresConfig
}

// bindings maps viper keys to the environment variables feeding them.
var bindings = map[string]string{
	"app.env":                  "APP_ENV",
	"log.level":                "LOG_LEVEL",
	"broker.subscriber_count":  "BROKER_SUBSCRIBER_COUNT",
	"broker.channel_size":      "BROKER_CHANNEL_SIZE",
	"relay.prefix":             "RELAY_PREFIX",
	"relay.buffer_size":        "RELAY_BUFFER_SIZE",
	"telegram.token":           "TELEGRAM_TOKEN",
	"telegram.mode":            "TELEGRAM_MODE",
	"telegram.notify_chat_id":  "TELEGRAM_NOTIFY_CHAT_ID",
	"telegram.webhook_url":     "TELEGRAM_WEBHOOK_URL",
	"telegram.listen_port":     "TELEGRAM_LISTEN_PORT",
	"postgres.url":             "DATABASE_URL",
	"postgres.max_conns":       "DATABASE_MAX_CONNS",
	"postgres.connect_timeout": "DATABASE_CONNECT_TIMEOUT",
	"encryption.key":           "ENCRYPTION_KEY",
}

// Load loads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env is fine; OS-set variables are used instead.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	defaults := runner.DefaultConfig()
	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("broker.subscriber_count", defaults.Broker.SubscriberCount)
	v.SetDefault("broker.channel_size", defaults.Broker.ChannelSize)
	v.SetDefault("relay.prefix", defaults.Prefix)
	v.SetDefault("relay.buffer_size", defaults.RelayBufferSize)
	v.SetDefault("telegram.mode", TelegramModePolling)
	v.SetDefault("telegram.listen_port", 8443)
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.connect_timeout", 5*time.Second)

	cfg := Config{
		AppEnv:        v.GetString("app.env"),
		LogLevel:      v.GetString("log.level"),
		EncryptionKey: v.GetString("encryption.key"),
		Broker: BrokerConfig{
			SubscriberCount: v.GetInt("broker.subscriber_count"),
			ChannelSize:     v.GetInt("broker.channel_size"),
		},
		Relay: RelayConfig{
			Prefix:     v.GetString("relay.prefix"),
			BufferSize: v.GetInt("relay.buffer_size"),
		},
		Telegram: TelegramConfig{
			Token:        v.GetString("telegram.token"),
			Mode:         v.GetString("telegram.mode"),
			NotifyChatID: v.GetInt64("telegram.notify_chat_id"),
			WebhookURL:   v.GetString("telegram.webhook_url"),
			ListenPort:   v.GetInt("telegram.listen_port"),
		},
		Postgres: PostgresConfig{
			URL:            v.GetString("postgres.url"),
			MaxConns:       v.GetInt("postgres.max_conns"),
			ConnectTimeout: v.GetDuration("postgres.connect_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot default away.
func (c *Config) Validate() error {
	if err := c.BrokerConfig().Validate(); err != nil {
		return err
	}
	if c.Relay.BufferSize <= 0 {
		return fmt.Errorf("RELAY_BUFFER_SIZE must be positive, got %d", c.Relay.BufferSize)
	}

	if c.TelegramEnabled() {
		switch c.Telegram.Mode {
		case TelegramModePolling:
		case TelegramModeWebhook:
			if c.Telegram.WebhookURL == "" {
				return errors.New("TELEGRAM_WEBHOOK_URL is required in webhook mode")
			}
		default:
			return fmt.Errorf("unknown TELEGRAM_MODE %q", c.Telegram.Mode)
		}
	}

	if c.JournalEnabled() {
		if c.Postgres.MaxConns <= 0 {
			return fmt.Errorf("DATABASE_MAX_CONNS must be positive, got %d", c.Postgres.MaxConns)
		}
		if len(c.EncryptionKey) != 64 {
			return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
		}
		if _, err := hex.DecodeString(c.EncryptionKey); err != nil {
			return fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
		}
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev"
}

// TelegramEnabled reports whether a bot token was configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}

// JournalEnabled reports whether a database was configured.
func (c *Config) JournalEnabled() bool {
	return c.Postgres.URL != ""
}

// BrokerConfig returns the broker sizing.
func (c *Config) BrokerConfig() eventbus.Config {
	return eventbus.Config{
		SubscriberCount: c.Broker.SubscriberCount,
		ChannelSize:     c.Broker.ChannelSize,
	}
}

// Runner returns the settings for runner.New.
func (c *Config) Runner() runner.Config {
	return runner.Config{
		Broker:          c.BrokerConfig(),
		Prefix:          c.Relay.Prefix,
		RelayBufferSize: c.Relay.BufferSize,
	}
}
