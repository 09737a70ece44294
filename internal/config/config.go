// Package config defines the top-level configuration for the sticker
// marketplace backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by STICKR_* environment variables.
type Config struct {
	Telegram TelegramConfig `toml:"telegram"`
	Ton      TonConfig      `toml:"ton"`
	Market   MarketConfig   `toml:"market"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// TelegramConfig holds Bot API credentials for the Stars payment rail.
type TelegramConfig struct {
	BotToken          string `toml:"bot_token"`
	BotUsername       string `toml:"bot_username"`
	EncryptedTokenPath string `toml:"encrypted_token_path"`
	TokenPassword     string `toml:"token_password"`
	WebhookBaseURL    string `toml:"webhook_base_url"`
}

// TonConfig holds the on-chain payment rail parameters.
type TonConfig struct {
	APIBase           string `toml:"api_base"`
	APIKey            string `toml:"api_key"`
	DestinationWallet string `toml:"destination_wallet"`
	Network           string `toml:"network"`
}

// MarketConfig holds marketplace pricing and verification policy.
type MarketConfig struct {
	// StarsPerTon seeds the rate cache when it is empty.
	StarsPerTon float64 `toml:"stars_per_ton"`
	// VerifyAttempts bounds the polling verifier's retries per invocation.
	VerifyAttempts int `toml:"verify_attempts"`
	// VerifyBackoff is the delay schedule between attempts (e.g. "0s,2s,4s").
	VerifyBackoff []duration `toml:"verify_backoff"`
	// PollInterval is the background sweep interval over pending TON orders.
	PollInterval duration `toml:"poll_interval"`
	// TxScanLimit caps how many recent transactions one verification scans.
	TxScanLimit int `toml:"tx_scan_limit"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for sticker images
// and collectible metadata documents.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// PublicBaseURL is the externally reachable origin used when building
	// collectible metadata links.
	PublicBaseURL string `toml:"public_base_url"`
	// RateLimitPerMin caps requests per client IP per minute. Zero disables
	// the limiter.
	RateLimitPerMin int `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// VerifyBackoffDurations returns the configured backoff schedule as plain
// durations.
func (m MarketConfig) VerifyBackoffDurations() []time.Duration {
	out := make([]time.Duration, len(m.VerifyBackoff))
	for i, d := range m.VerifyBackoff {
		out[i] = d.Duration
	}
	return out
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Telegram: TelegramConfig{},
		Ton: TonConfig{
			APIBase: "https://tonapi.io",
			Network: "mainnet",
		},
		Market: MarketConfig{
			StarsPerTon:    250,
			VerifyAttempts: 3,
			VerifyBackoff:  []duration{{0}, {2 * time.Second}, {4 * time.Second}},
			PollInterval:   duration{time.Minute},
			TxScanLimit:    50,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "stickermart",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "stickermart-assets",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			PublicBaseURL:   "http://localhost:8000",
			RateLimitPerMin: 300,
		},
		Notify: NotifyConfig{
			Events: []string{"sale_settled", "bid_funded", "auction_finalized", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"poller": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, poller, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// One Telegram credential source is required for the Stars rail.
	if c.Telegram.BotToken == "" && c.Telegram.EncryptedTokenPath == "" {
		errs = append(errs, "telegram: either bot_token or encrypted_token_path must be set")
	}
	if c.Telegram.EncryptedTokenPath != "" && c.Telegram.TokenPassword == "" {
		errs = append(errs, "telegram: token_password is required when encrypted_token_path is set")
	}

	// TON rail
	if c.Ton.APIBase == "" {
		errs = append(errs, "ton: api_base must not be empty")
	}
	if c.Ton.DestinationWallet == "" {
		errs = append(errs, "ton: destination_wallet must not be empty")
	}
	if c.Ton.Network != "mainnet" && c.Ton.Network != "testnet" {
		errs = append(errs, fmt.Sprintf("ton: network must be mainnet or testnet, got %q", c.Ton.Network))
	}

	// Market policy
	if c.Market.StarsPerTon <= 0 {
		errs = append(errs, "market: stars_per_ton must be > 0")
	}
	if c.Market.VerifyAttempts < 1 {
		errs = append(errs, "market: verify_attempts must be >= 1")
	}
	if len(c.Market.VerifyBackoff) > 0 && len(c.Market.VerifyBackoff) < c.Market.VerifyAttempts {
		errs = append(errs, "market: verify_backoff must cover verify_attempts entries")
	}
	if c.Market.TxScanLimit < 1 {
		errs = append(errs, "market: tx_scan_limit must be >= 1")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
