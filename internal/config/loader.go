package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STICKR_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known STICKR_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Telegram ──
	setStr(&cfg.Telegram.BotToken, "STICKR_TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Telegram.BotUsername, "STICKR_TELEGRAM_BOT_USERNAME")
	setStr(&cfg.Telegram.EncryptedTokenPath, "STICKR_TELEGRAM_ENCRYPTED_TOKEN_PATH")
	setStr(&cfg.Telegram.TokenPassword, "STICKR_TELEGRAM_TOKEN_PASSWORD")
	setStr(&cfg.Telegram.WebhookBaseURL, "STICKR_TELEGRAM_WEBHOOK_BASE_URL")

	// ── TON ──
	setStr(&cfg.Ton.APIBase, "STICKR_TON_API_BASE")
	setStr(&cfg.Ton.DestinationWallet, "STICKR_TON_DESTINATION_WALLET")
	setStr(&cfg.Ton.Network, "STICKR_TON_NETWORK")

	// ── Market ──
	setFloat64(&cfg.Market.StarsPerTon, "STICKR_MARKET_STARS_PER_TON")
	setInt(&cfg.Market.VerifyAttempts, "STICKR_MARKET_VERIFY_ATTEMPTS")
	setDuration(&cfg.Market.PollInterval, "STICKR_MARKET_POLL_INTERVAL")
	setInt(&cfg.Market.TxScanLimit, "STICKR_MARKET_TX_SCAN_LIMIT")

	// ── Database ──
	setStr(&cfg.Database.DSN, "STICKR_DATABASE_DSN")
	setStr(&cfg.Database.Host, "STICKR_DATABASE_HOST")
	setInt(&cfg.Database.Port, "STICKR_DATABASE_PORT")
	setStr(&cfg.Database.Database, "STICKR_DATABASE_NAME")
	setStr(&cfg.Database.User, "STICKR_DATABASE_USER")
	setStr(&cfg.Database.Password, "STICKR_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "STICKR_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "STICKR_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "STICKR_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "STICKR_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STICKR_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STICKR_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STICKR_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STICKR_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STICKR_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STICKR_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STICKR_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STICKR_S3_REGION")
	setStr(&cfg.S3.Bucket, "STICKR_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STICKR_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STICKR_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STICKR_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STICKR_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "STICKR_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "STICKR_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STICKR_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "STICKR_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "STICKR_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "STICKR_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "STICKR_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "STICKR_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "STICKR_MODE")
	setStr(&cfg.LogLevel, "STICKR_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
