package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/rwallach/sentinel/internal/blob/s3"
	"github.com/rwallach/sentinel/internal/cache/redis"
	"github.com/rwallach/sentinel/internal/config"
	"github.com/rwallach/sentinel/internal/domain"
	"github.com/rwallach/sentinel/internal/engine"
	"github.com/rwallach/sentinel/internal/feed"
	"github.com/rwallach/sentinel/internal/gateway"
	"github.com/rwallach/sentinel/internal/notify"
	"github.com/rwallach/sentinel/internal/reconcile"
	"github.com/rwallach/sentinel/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	PositionStore   domain.PositionStore
	TradeStore      domain.TradeStore
	OrderStore      domain.OrderStore
	RiskLimitStore  domain.RiskLimitStore
	AccountStore    domain.AccountStore
	KillSwitchStore domain.KillSwitchStore
	EventStore      domain.EventStore

	// Redis collaborators
	PriceCache  domain.PriceCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Price feed
	Quoter   domain.PriceQuoter
	Streamer *feed.Streamer

	// Engine
	Runner          *engine.Runner
	KillSwitchAdmin *engine.KillSwitchAdmin

	// Cold storage
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.PositionStore = postgres.NewPositionStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.OrderStore = postgres.NewOrderStore(pool)
	deps.RiskLimitStore = postgres.NewRiskLimitStore(pool)
	deps.AccountStore = postgres.NewAccountStore(pool)
	deps.KillSwitchStore = postgres.NewKillSwitchStore(pool)
	deps.EventStore = postgres.NewEventStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.PriceCache = redis.NewPriceCache(redisClient, cfg.PriceFeed.CacheTTL.Duration)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Price feed ---
	quoteClient := feed.NewQuoteClient(feed.QuoteClientConfig{
		BaseURL:    cfg.PriceFeed.BaseURL,
		APIKey:     cfg.PriceFeed.APIKey,
		Timeout:    cfg.PriceFeed.Timeout.Duration,
		RateLimit:  cfg.PriceFeed.RateLimit,
		RateWindow: cfg.PriceFeed.RateWindow.Duration,
	}, deps.RateLimiter)
	deps.Quoter = feed.NewQuoteService(deps.PriceCache, quoteClient, cfg.PriceFeed.CacheMaxAge.Duration, logger)

	if cfg.PriceFeed.StreamEnabled {
		deps.Streamer = feed.NewStreamer(cfg.PriceFeed.WSURL, cfg.PriceFeed.StreamSymbols, deps.PriceCache, logger)
	}

	// --- Order gateway + reconciler ---
	orderClient := gateway.NewOrderClient(gateway.OrderClientConfig{
		BaseURL: cfg.OrderGateway.BaseURL,
		APIKey:  cfg.OrderGateway.APIKey,
		Timeout: cfg.OrderGateway.Timeout.Duration,
	})
	reconciler := reconcile.New(deps.OrderStore, orderClient, deps.EventStore, logger)

	// --- S3 cold storage ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		writer := s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(writer, deps.EventStore, cfg.Archive.Prefix, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Engine ---
	deps.KillSwitchAdmin = engine.NewKillSwitchAdmin(deps.KillSwitchStore, deps.EventStore, deps.Notifier, logger)

	processor := engine.NewProcessor(engine.ProcessorConfig{
		Positions:          deps.PositionStore,
		Trades:             deps.TradeStore,
		Accounts:           deps.AccountStore,
		Limits:             deps.RiskLimitStore,
		KillSwitches:       deps.KillSwitchStore,
		Events:             deps.EventStore,
		Quoter:             deps.Quoter,
		Reconciler:         reconciler,
		Bus:                deps.SignalBus,
		Alerter:            deps.Notifier,
		KillAdmin:          deps.KillSwitchAdmin,
		CallTimeout:        cfg.Engine.CallTimeout.Duration,
		KillSwitchCooldown: cfg.Engine.KillSwitchCooldown.Duration,
	}, logger)

	deps.Runner = engine.NewRunner(deps.PositionStore, processor, engine.RunnerConfig{
		BatchSize:  cfg.Engine.BatchSize,
		Workers:    cfg.Engine.Workers,
		ItemDelay:  cfg.Engine.ItemDelay.Duration,
		RunCeiling: cfg.Engine.RunCeiling.Duration,
	}, logger)

	return deps, cleanup, nil
}
