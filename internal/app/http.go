package app

import (
	"context"

	httpserver "github.com/yungbote/learnhub-backend/internal/http"
	httpH "github.com/yungbote/learnhub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnhub-backend/internal/http/middleware"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/platform/redisx"
)

func wireServer(log *logger.Logger, cfg Config, clients Clients, s Services, metrics *observability.Metrics) *httpserver.Server {
	log.Info("Wiring router...")
	checks := map[string]httpH.Pinger{
		"postgres": func(ctx context.Context) error {
			sqlDB, err := clients.Postgres.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	var limiter httpMW.WindowCounter
	if clients.Redis != nil {
		rdb := clients.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		limiter = redisx.NewWindowCounter(rdb, "learnhub:rate_limit:")
	}

	serviceName := ""
	if observability.TracingEnabled() {
		serviceName = cfg.ServiceName
	}

	return httpserver.NewServer(httpserver.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ExposeMetrics:      cfg.MetricsAddr == "",
		ServiceName:        serviceName,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimiter:        limiter,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, s.Auth),

		LessonProgressHandler: httpH.NewLessonProgressHandler(s.LessonProgress),
		CourseHandler:         httpH.NewCourseHandler(s.Progress, s.Completion, s.Enrollments, s.Badges),
		BadgeHandler:          httpH.NewBadgeHandler(s.Badges),
		AdminHandler:          httpH.NewAdminHandler(s.CourseAdmin, s.Badges, s.Scheduler),
		HealthHandler:         httpH.NewHealthHandler(checks),
	})
}
