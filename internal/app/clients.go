package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/learnhub-backend/internal/data/db"
	"github.com/yungbote/learnhub-backend/internal/platform/gcp"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/platform/redisx"
)

type Clients struct {
	Postgres *db.PostgresService
	// Redis is nil when REDIS_ADDR is unset.
	Redis *goredis.Client
	// Bucket is nil when object storage is disabled.
	Bucket gcp.BucketService
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	pg, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		return Clients{}, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(cfg.EnablePolicies, cfg.Postgres.User); err != nil {
		pg.Close()
		return Clients{}, fmt.Errorf("postgres automigrate: %w", err)
	}

	rdb, err := redisx.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		// redis only backs the sweep lock and rate limiting; run without it
		log.Warn("redis unavailable; using in-process lock and no rate limiting", "error", err)
		rdb = nil
	}

	bucket, err := gcp.NewBucketService(ctx, log)
	if err != nil {
		log.Warn("Could not init BucketService; badge images disabled", "error", err)
		bucket = nil
	}
	return Clients{Postgres: pg, Redis: rdb, Bucket: bucket}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
}
