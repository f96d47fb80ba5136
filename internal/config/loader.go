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
// built-in defaults, applies SENTINEL_* environment variable overrides, and
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

// applyEnvOverrides reads well-known SENTINEL_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SENTINEL_DATABASE_DSN")
	setStr(&cfg.Database.Host, "SENTINEL_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SENTINEL_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SENTINEL_DATABASE_NAME")
	setStr(&cfg.Database.User, "SENTINEL_DATABASE_USER")
	setStr(&cfg.Database.Password, "SENTINEL_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SENTINEL_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SENTINEL_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SENTINEL_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SENTINEL_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SENTINEL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SENTINEL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SENTINEL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SENTINEL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SENTINEL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SENTINEL_REDIS_TLS_ENABLED")

	// ── Engine ──
	setInt(&cfg.Engine.BatchSize, "SENTINEL_ENGINE_BATCH_SIZE")
	setInt(&cfg.Engine.Workers, "SENTINEL_ENGINE_WORKERS")
	setDuration(&cfg.Engine.ItemDelay, "SENTINEL_ENGINE_ITEM_DELAY")
	setDuration(&cfg.Engine.RunCeiling, "SENTINEL_ENGINE_RUN_CEILING")
	setDuration(&cfg.Engine.CallTimeout, "SENTINEL_ENGINE_CALL_TIMEOUT")
	setDuration(&cfg.Engine.Interval, "SENTINEL_ENGINE_INTERVAL")
	setDuration(&cfg.Engine.LockTTL, "SENTINEL_ENGINE_LOCK_TTL")
	setDuration(&cfg.Engine.KillSwitchCooldown, "SENTINEL_ENGINE_KILL_SWITCH_COOLDOWN")

	// ── Price feed ──
	setStr(&cfg.PriceFeed.BaseURL, "SENTINEL_PRICE_FEED_BASE_URL")
	setStr(&cfg.PriceFeed.APIKey, "SENTINEL_PRICE_FEED_API_KEY")
	setDuration(&cfg.PriceFeed.Timeout, "SENTINEL_PRICE_FEED_TIMEOUT")
	setDuration(&cfg.PriceFeed.CacheMaxAge, "SENTINEL_PRICE_FEED_CACHE_MAX_AGE")
	setDuration(&cfg.PriceFeed.CacheTTL, "SENTINEL_PRICE_FEED_CACHE_TTL")
	setInt(&cfg.PriceFeed.RateLimit, "SENTINEL_PRICE_FEED_RATE_LIMIT")
	setDuration(&cfg.PriceFeed.RateWindow, "SENTINEL_PRICE_FEED_RATE_WINDOW")
	setStr(&cfg.PriceFeed.WSURL, "SENTINEL_PRICE_FEED_WS_URL")
	setBool(&cfg.PriceFeed.StreamEnabled, "SENTINEL_PRICE_FEED_STREAM_ENABLED")
	setStringSlice(&cfg.PriceFeed.StreamSymbols, "SENTINEL_PRICE_FEED_STREAM_SYMBOLS")

	// ── Order gateway ──
	setStr(&cfg.OrderGateway.BaseURL, "SENTINEL_ORDER_GATEWAY_BASE_URL")
	setStr(&cfg.OrderGateway.APIKey, "SENTINEL_ORDER_GATEWAY_API_KEY")
	setDuration(&cfg.OrderGateway.Timeout, "SENTINEL_ORDER_GATEWAY_TIMEOUT")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "SENTINEL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "SENTINEL_S3_REGION")
	setStr(&cfg.S3.Bucket, "SENTINEL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "SENTINEL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "SENTINEL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "SENTINEL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "SENTINEL_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SENTINEL_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SENTINEL_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.Prefix, "SENTINEL_ARCHIVE_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SENTINEL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SENTINEL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SENTINEL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SENTINEL_NOTIFY_EVENTS")

	// ── Kill switch (trigger/reset modes) ──
	setStr(&cfg.KillSwitch.UserID, "SENTINEL_KILL_SWITCH_USER_ID")
	setStr(&cfg.KillSwitch.Exchange, "SENTINEL_KILL_SWITCH_EXCHANGE")
	setStr(&cfg.KillSwitch.Symbol, "SENTINEL_KILL_SWITCH_SYMBOL")
	setStr(&cfg.KillSwitch.Reason, "SENTINEL_KILL_SWITCH_REASON")
	setDuration(&cfg.KillSwitch.Cooldown, "SENTINEL_KILL_SWITCH_COOLDOWN")
	setStr(&cfg.KillSwitch.TriggeredBy, "SENTINEL_KILL_SWITCH_TRIGGERED_BY")

	// ── Top-level ──
	setStr(&cfg.Mode, "SENTINEL_MODE")
	setStr(&cfg.LogLevel, "SENTINEL_LOG_LEVEL")
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
