package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/estetica-booking/internal/config"
	"github.com/wolfman30/estetica-booking/internal/payments"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// Ledger backends accepted by LEDGER_BACKEND.
const (
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerPostgres = "postgres"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool opens and pings a pgx pool, or returns nil for an empty URL.
func BuildPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("postgres pool ready")
	return pool, nil
}

// BuildLedger picks the checkout ledger named by LEDGER_BACKEND. The returned
// cleanup releases the backing connection and is never nil.
func BuildLedger(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (payments.Ledger, func(), error) {
	if cfg == nil {
		return nil, func() {}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.LedgerBackend {
	case "", LedgerMemory:
		logger.Info("checkout ledger: in-memory")
		return payments.NewMemoryLedger(), func() {}, nil
	case LedgerRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, func() {}, fmt.Errorf("bootstrap: redis ledger requires a reachable REDIS_ADDR")
		}
		logger.Info("checkout ledger: redis", "addr", cfg.RedisAddr)
		return payments.NewRedisLedger(client, cfg.LedgerTTL), func() { _ = client.Close() }, nil
	case LedgerPostgres:
		pool, err := BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, func() {}, err
		}
		if pool == nil {
			return nil, func() {}, fmt.Errorf("bootstrap: postgres ledger requires DATABASE_URL")
		}
		logger.Info("checkout ledger: postgres")
		return payments.NewPostgresLedger(pool), pool.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("bootstrap: unknown ledger backend %q", cfg.LedgerBackend)
	}
}
