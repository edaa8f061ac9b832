package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/learnhub-backend/internal/http/handlers"
	httpMW "github.com/yungbote/learnhub-backend/internal/http/middleware"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	// ExposeMetrics serves /metrics on the API listener.
	ExposeMetrics bool

	// ServiceName enables otelgin spans when set.
	ServiceName string
	CORSOrigins []string

	RateLimiter        httpMW.WindowCounter
	RateLimitPerMinute int

	AuthMiddleware *httpMW.AuthMiddleware

	LessonProgressHandler *httpH.LessonProgressHandler
	CourseHandler         *httpH.CourseHandler
	BadgeHandler          *httpH.BadgeHandler
	AdminHandler          *httpH.AdminHandler
	HealthHandler         *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil && cfg.ExposeMetrics {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Lesson progress
		if cfg.LessonProgressHandler != nil {
			protected.POST("/lesson-progress/update",
				httpMW.RateLimit(cfg.Log, cfg.RateLimiter, cfg.Metrics, cfg.RateLimitPerMinute, time.Minute),
				cfg.LessonProgressHandler.Update,
			)
		}

		// Courses & enrollments
		if cfg.CourseHandler != nil {
			protected.GET("/courses/:id/progress", cfg.CourseHandler.GetProgress)
			protected.POST("/courses/:id/completion", cfg.CourseHandler.CheckCompletion)
			protected.POST("/courses/:id/enroll", cfg.CourseHandler.Enroll)
			protected.POST("/courses/:id/stop", cfg.CourseHandler.Stop)
			protected.GET("/courses/:id/badge", cfg.CourseHandler.GetBadge)
			protected.GET("/enrollments", cfg.CourseHandler.ListEnrollments)
		}

		// Badges
		if cfg.BadgeHandler != nil {
			protected.GET("/badges/me", cfg.BadgeHandler.ListMine)
		}
	}

	if cfg.AdminHandler != nil && cfg.AuthMiddleware != nil {
		admin := protected.Group("/admin")
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
		admin.POST("/courses", cfg.AdminHandler.CreateCourse)
		admin.POST("/courses/:id/lessons", cfg.AdminHandler.CreateLesson)
		admin.PATCH("/lessons/:id", cfg.AdminHandler.PatchLesson)
		admin.PUT("/courses/:id/badge", cfg.AdminHandler.UpsertCourseBadge)
		admin.POST("/badges/reconcile", cfg.AdminHandler.Reconcile)
	}

	return r
}
