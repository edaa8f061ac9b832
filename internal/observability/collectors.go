package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

// StartPostgresCollector registers database/sql pool stats of db under the
// given handle label. Registering the same handle twice is a no-op.
func (m *Metrics) StartPostgresCollector(_ context.Context, log *logger.Logger, handle string, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	m.dbMu.Lock()
	defer m.dbMu.Unlock()
	if m.dbHandles[handle] {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: postgres stats unavailable", "handle", handle, "error", err)
		}
		return
	}
	if err := m.registry.Register(collectors.NewDBStatsCollector(sqlDB, handle)); err != nil {
		if log != nil {
			log.Warn("metrics: postgres collector not registered", "handle", handle, "error", err)
		}
		return
	}
	m.dbHandles[handle] = true
}

// StartRedisCollector pings rdb periodically. The client is owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}
