package app

import (
	"fmt"

	"github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/jobs/reconcile"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/platform/redisx"
	"github.com/yungbote/learnhub-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	Progress       services.ProgressService
	Badges         services.BadgeService
	Completion     services.CompletionService
	LessonProgress services.LessonProgressService
	Enrollments    services.EnrollmentService
	CourseAdmin    services.CourseAdminService
	Reconcile      services.ReconcileService

	Scheduler *reconcile.Scheduler
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, r Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	pg := clients.Postgres

	style, err := services.LoadBadgeStyle(cfg.BadgeStylePath)
	if err != nil {
		return Services{}, fmt.Errorf("badge style: %w", err)
	}
	artist, err := services.NewBadgeArtist()
	if err != nil {
		log.Warn("Could not init BadgeArtist; badges will have no image", "error", err)
		artist = nil
	}

	var privileged = pg.Privileged()
	if !pg.SplitRoles() {
		privileged = nil
	}
	writes := aggregates.NewTwoTierWritePolicy(pg.DB(), privileged, aggregates.NewObservabilityHooks(metrics), log)

	progress := services.NewProgressService(log, r.Course, r.Lesson, r.LessonProgress)
	badges := services.NewBadgeService(log, services.BadgeServiceDeps{
		CourseRepo:      r.Course,
		CourseBadgeRepo: r.CourseBadge,
		UserBadgeRepo:   r.UserBadge,
		Writes:          writes,
		Style:           style,
		Artist:          artist,
		Bucket:          clients.Bucket,
		Metrics:         metrics,
	})
	completion := services.NewCompletionService(log, progress, r.Enrollment, r.LessonProgress, badges, metrics)
	sweep := services.NewReconcileService(log, r.Enrollment, r.CourseBadge, r.UserBadge, badges, metrics, cfg.ReconcileConcurrency)

	var locker redisx.Locker = redisx.NewLocalLocker()
	if clients.Redis != nil {
		locker = redisx.NewLocker(clients.Redis, "learnhub:lock:")
	}

	return Services{
		Auth:           services.NewAuthService(log, cfg.JWTSecretKey, cfg.JWTIssuer),
		Progress:       progress,
		Badges:         badges,
		Completion:     completion,
		LessonProgress: services.NewLessonProgressService(log, aggregates.NewGormTxRunner(pg.DB()), r.Lesson, r.Enrollment, r.LessonProgress, completion, metrics),
		Enrollments:    services.NewEnrollmentService(log, r.Course, r.Enrollment),
		CourseAdmin:    services.NewCourseAdminService(log, r.Course, r.Lesson),
		Reconcile:      sweep,
		Scheduler: reconcile.NewScheduler(log, sweep, locker, reconcile.Config{
			Spec:       cfg.ReconcileCron,
			RunTimeout: cfg.ReconcileTimeout,
		}),
	}, nil
}
