// Package config defines the top-level configuration for the position
// sentinel and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SENTINEL_* environment
// variables.
type Config struct {
	Database     DatabaseConfig     `toml:"database"`
	Redis        RedisConfig        `toml:"redis"`
	Engine       EngineConfig       `toml:"engine"`
	PriceFeed    PriceFeedConfig    `toml:"price_feed"`
	OrderGateway OrderGatewayConfig `toml:"order_gateway"`
	S3           S3Config           `toml:"s3"`
	Archive      ArchiveConfig      `toml:"archive"`
	Notify       NotifyConfig       `toml:"notify"`
	KillSwitch   KillSwitchConfig   `toml:"kill_switch"`
	Mode         string             `toml:"mode"`
	LogLevel     string             `toml:"log_level"`
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

// EngineConfig holds batch sizing, pacing and scheduling parameters.
type EngineConfig struct {
	BatchSize   int      `toml:"batch_size"`
	Workers     int      `toml:"workers"`
	ItemDelay   duration `toml:"item_delay"`
	RunCeiling  duration `toml:"run_ceiling"`
	CallTimeout duration `toml:"call_timeout"`
	// Interval is the pause between batch runs in daemon mode.
	Interval duration `toml:"interval"`
	// LockTTL bounds how long a crashed run can hold the daemon run lock.
	LockTTL duration `toml:"lock_ttl"`
	// KillSwitchCooldown is the reset cooldown applied to kill switches the
	// engine trips automatically on a daily loss breach.
	KillSwitchCooldown duration `toml:"kill_switch_cooldown"`
}

// PriceFeedConfig holds the price API endpoints and cache policy.
type PriceFeedConfig struct {
	BaseURL       string   `toml:"base_url"`
	APIKey        string   `toml:"api_key"`
	Timeout       duration `toml:"timeout"`
	CacheMaxAge   duration `toml:"cache_max_age"`
	CacheTTL      duration `toml:"cache_ttl"`
	RateLimit     int      `toml:"rate_limit"`
	RateWindow    duration `toml:"rate_window"`
	WSURL         string   `toml:"ws_url"`
	StreamEnabled bool     `toml:"stream_enabled"`
	// StreamSymbols lists "exchange:symbol" pairs to keep warm in the cache.
	StreamSymbols []string `toml:"stream_symbols"`
}

// OrderGatewayConfig holds the order-management API endpoint.
type OrderGatewayConfig struct {
	BaseURL string   `toml:"base_url"`
	APIKey  string   `toml:"api_key"`
	Timeout duration `toml:"timeout"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls event-log archival to cold storage.
type ArchiveConfig struct {
	Enabled       bool   `toml:"enabled"`
	RetentionDays int    `toml:"retention_days"`
	Prefix        string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// KillSwitchConfig describes the target of the kill-trigger and kill-reset
// modes. Empty scope fields widen the switch; all three empty means
// system-wide.
type KillSwitchConfig struct {
	UserID      string   `toml:"user_id"`
	Exchange    string   `toml:"exchange"`
	Symbol      string   `toml:"symbol"`
	Reason      string   `toml:"reason"`
	Cooldown    duration `toml:"cooldown"`
	TriggeredBy string   `toml:"triggered_by"`
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

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "sentinel",
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
			TLSEnabled: false,
		},
		Engine: EngineConfig{
			BatchSize:   50,
			Workers:     4,
			ItemDelay:   duration{0},
			RunCeiling:  duration{4 * time.Minute},
			CallTimeout: duration{10 * time.Second},
			Interval:    duration{5 * time.Minute},
			LockTTL:     duration{6 * time.Minute},

			KillSwitchCooldown: duration{30 * time.Minute},
		},
		PriceFeed: PriceFeedConfig{
			Timeout:       duration{10 * time.Second},
			CacheMaxAge:   duration{30 * time.Second},
			CacheTTL:      duration{5 * time.Minute},
			RateLimit:     20,
			RateWindow:    duration{time.Second},
			StreamEnabled: false,
			StreamSymbols: []string{},
		},
		OrderGateway: OrderGatewayConfig{
			Timeout: duration{10 * time.Second},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "sentinel-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 90,
			Prefix:        "events",
		},
		Notify: NotifyConfig{
			Events: []string{"close_triggered", "kill_switch_tripped", "risk_alert"},
		},
		KillSwitch: KillSwitchConfig{
			TriggeredBy: "operator",
		},
		Mode:     "run",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"run":          true,
	"daemon":       true,
	"kill-trigger": true,
	"kill-reset":   true,
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
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: run, daemon, kill-trigger, kill-reset)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Database.DSN == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty when dsn is not set")
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database name must not be empty when dsn is not set")
		}
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}

	if c.Engine.BatchSize <= 0 {
		errs = append(errs, "engine: batch_size must be positive")
	}
	if c.Engine.Workers <= 0 {
		errs = append(errs, "engine: workers must be positive")
	}
	if c.Engine.RunCeiling.Duration <= 0 {
		errs = append(errs, "engine: run_ceiling must be positive")
	}
	if strings.ToLower(c.Mode) == "daemon" {
		if c.Engine.Interval.Duration <= 0 {
			errs = append(errs, "engine: interval must be positive in daemon mode")
		}
		if c.Engine.LockTTL.Duration <= c.Engine.RunCeiling.Duration {
			errs = append(errs, "engine: lock_ttl must exceed run_ceiling so the lock outlives a full run")
		}
	}

	if strings.ToLower(c.Mode) == "kill-trigger" && c.KillSwitch.Reason == "" {
		errs = append(errs, "kill_switch: reason is required in kill-trigger mode")
	}

	if c.PriceFeed.BaseURL == "" {
		errs = append(errs, "price_feed: base_url must not be empty")
	}
	if c.PriceFeed.StreamEnabled && c.PriceFeed.WSURL == "" {
		errs = append(errs, "price_feed: ws_url is required when stream_enabled is set")
	}

	if c.OrderGateway.BaseURL == "" {
		errs = append(errs, "order_gateway: base_url must not be empty")
	}

	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required when archive is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region is required when archive is enabled")
		}
		if c.Archive.RetentionDays <= 0 {
			errs = append(errs, "archive: retention_days must be positive")
		}
	}

	if c.Notify.TelegramToken != "" && c.Notify.TelegramChatID == "" {
		errs = append(errs, "notify: telegram_chat_id is required when telegram_token is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
