package main

import (
	"context"
	"time"

	"github.com/radiusdt/vector-attribution/internal/attribution"
	"github.com/radiusdt/vector-attribution/internal/cache"
	"github.com/radiusdt/vector-attribution/internal/config"
	"github.com/radiusdt/vector-attribution/internal/database"
	"github.com/radiusdt/vector-attribution/internal/httpserver"
	"github.com/radiusdt/vector-attribution/internal/metrics"
	"github.com/radiusdt/vector-attribution/internal/storage"
	"go.uber.org/zap"
)

// backends holds the connections the engine reads from. A backend that is
// disabled or unreachable is replaced by its in-memory store.
type backends struct {
	stores attribution.Stores
	health map[string]httpserver.HealthCheck

	clickhouse *database.ClickHouseDB
	postgres   *database.PostgresDB
	redis      *database.RedisDB

	logger *zap.Logger
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) *backends {
	b := &backends{
		health: make(map[string]httpserver.HealthCheck),
		logger: logger,
	}

	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, using in-memory event store", zap.Error(err))
		} else {
			b.clickhouse = ch
			b.health["clickhouse"] = ch.Health
		}
	}
	if b.clickhouse != nil {
		events := storage.NewClickHouseEventStore(b.clickhouse.Conn, storage.ClickHouseTables{
			Database:    cfg.ClickHouse.Database,
			Touchpoints: cfg.ClickHouse.TouchpointsTable,
			Spend:       cfg.ClickHouse.SpendTable,
		})
		b.stores.Touchpoints = events
		b.stores.Spend = events
	} else {
		events := storage.NewInMemoryEventStore()
		b.stores.Touchpoints = events
		b.stores.Spend = events
	}

	if cfg.Database.Enabled {
		pg, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Warn("PostgreSQL not available, using in-memory shop and hierarchy stores", zap.Error(err))
		} else {
			b.postgres = pg
			b.health["postgres"] = pg.Health
		}
	}
	if b.postgres != nil {
		b.stores.Shops = storage.NewPostgresShopStore(b.postgres.Pool)
		b.stores.Hierarchy = storage.NewPostgresHierarchyStore(b.postgres.Pool)
	} else {
		b.stores.Shops = storage.NewInMemoryShopStore()
		b.stores.Hierarchy = storage.NewInMemoryHierarchyStore()
	}

	if cfg.Redis.Enabled && cfg.Cache.Enabled {
		rdb, err := database.NewRedisDB(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, report caching disabled", zap.Error(err))
		} else {
			b.redis = rdb
			b.health["redis"] = rdb.Health
		}
	}

	return b
}

// reportCache returns the Redis report cache, or nil when Redis is not
// connected.
func (b *backends) reportCache(cfg config.CacheConfig) *cache.ReportCache {
	if b.redis == nil {
		return nil
	}
	return cache.NewReportCache(b.redis.Client, cfg.TTL, cfg.KeyPrefix)
}

// reportStats publishes connection pool gauges until ctx is done.
func (b *backends) reportStats(ctx context.Context, m *metrics.Metrics) {
	if b.postgres == nil || m == nil {
		return
	}
	go b.postgres.ReportStats(ctx, m, 15*time.Second)
}

func (b *backends) Close() {
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			b.logger.Warn("failed to close Redis", zap.Error(err))
		}
	}
	if b.postgres != nil {
		b.postgres.Close()
	}
	if b.clickhouse != nil {
		if err := b.clickhouse.Close(); err != nil {
			b.logger.Warn("failed to close ClickHouse", zap.Error(err))
		}
	}
}
