package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type SweepOptions struct {
	// UserID limits the sweep to one user's completed enrollments.
	UserID *uuid.UUID
	// DryRun counts what would be written without writing it.
	DryRun bool
}

type SweepFailure struct {
	CourseID uuid.UUID  `json:"course_id"`
	UserID   *uuid.UUID `json:"user_id,omitempty"`
	Error    string     `json:"error"`
}

type SweepReport struct {
	CoursesScanned     int            `json:"courses_scanned"`
	EnrollmentsScanned int            `json:"enrollments_scanned"`
	BadgesCreated      int            `json:"badges_created"`
	BadgesAwarded      int            `json:"badges_awarded"`
	ImagesRepaired     int            `json:"images_repaired"`
	DryRun             bool           `json:"dry_run"`
	Failures           []SweepFailure `json:"failures,omitempty"`
	Duration           time.Duration  `json:"duration_ns"`
}

type ReconcileService interface {
	// Sweep awards every badge a completed enrollment is missing. Per-course
	// failures are reported, not returned; the error is for the scan itself.
	Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error)
}

type reconcileService struct {
	log             *logger.Logger
	enrollmentRepo  repos.EnrollmentRepo
	courseBadgeRepo repos.CourseBadgeRepo
	userBadgeRepo   repos.UserBadgeRepo
	badges          BadgeService
	metrics         *observability.Metrics
	concurrency     int
}

func NewReconcileService(
	log *logger.Logger,
	enrollmentRepo repos.EnrollmentRepo,
	courseBadgeRepo repos.CourseBadgeRepo,
	userBadgeRepo repos.UserBadgeRepo,
	badges BadgeService,
	metrics *observability.Metrics,
	concurrency int,
) ReconcileService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &reconcileService{
		log:             log.With("service", "ReconcileService"),
		enrollmentRepo:  enrollmentRepo,
		courseBadgeRepo: courseBadgeRepo,
		userBadgeRepo:   userBadgeRepo,
		badges:          badges,
		metrics:         metrics,
		concurrency:     concurrency,
	}
}

type courseResult struct {
	created  int
	awarded  int
	images   int
	failures []SweepFailure
}

func (s *reconcileService) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	start := time.Now()
	report := &SweepReport{DryRun: opts.DryRun}

	completed, err := s.enrollmentRepo.ListCompleted(dbctx.New(ctx), opts.UserID)
	if err != nil {
		s.metrics.ObserveSweep("error", time.Since(start), 0, 0)
		return nil, dataagg.MapError("reconcile.sweep", err)
	}
	byCourse := map[uuid.UUID][]*types.Enrollment{}
	var order []uuid.UUID
	for _, e := range completed {
		if _, ok := byCourse[e.CourseID]; !ok {
			order = append(order, e.CourseID)
		}
		byCourse[e.CourseID] = append(byCourse[e.CourseID], e)
	}
	report.CoursesScanned = len(order)
	report.EnrollmentsScanned = len(completed)

	existing, err := s.courseBadgeRepo.GetByCourseIDs(dbctx.New(ctx), order)
	if err != nil {
		s.metrics.ObserveSweep("error", time.Since(start), 0, 0)
		return nil, dataagg.MapError("reconcile.sweep", err)
	}
	badgeByCourse := make(map[uuid.UUID]*types.CourseBadge, len(existing))
	for _, b := range existing {
		badgeByCourse[b.CourseID] = b
	}

	ctx = WithIssueSource(ctx, "reconcile")
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, courseID := range order {
		enrollments := byCourse[courseID]
		badge := badgeByCourse[courseID]
		g.Go(func() error {
			res := s.sweepCourse(gctx, courseID, badge, enrollments, opts.DryRun)
			mu.Lock()
			report.BadgesCreated += res.created
			report.BadgesAwarded += res.awarded
			report.ImagesRepaired += res.images
			report.Failures = append(report.Failures, res.failures...)
			mu.Unlock()
			// one course failing never stops the others
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	status := "ok"
	if len(report.Failures) > 0 {
		status = "partial"
	}
	if !opts.DryRun {
		s.metrics.ObserveSweep(status, report.Duration, report.BadgesCreated, report.BadgesAwarded)
	}
	s.log.Info("reconciliation sweep finished",
		"courses", report.CoursesScanned,
		"enrollments", report.EnrollmentsScanned,
		"badges_created", report.BadgesCreated,
		"badges_awarded", report.BadgesAwarded,
		"images_repaired", report.ImagesRepaired,
		"failures", len(report.Failures),
		"dry_run", opts.DryRun,
		"elapsed_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// sweepCourse repairs one course. badge is the preloaded definition, nil when
// the course has none yet.
func (s *reconcileService) sweepCourse(ctx context.Context, courseID uuid.UUID, badge *types.CourseBadge, enrollments []*types.Enrollment, dryRun bool) courseResult {
	var res courseResult
	fail := func(userID *uuid.UUID, err error) {
		res.failures = append(res.failures, SweepFailure{CourseID: courseID, UserID: userID, Error: err.Error()})
		s.log.Warn("reconcile: repair failed", "course_id", courseID, "error", err)
	}

	if dryRun {
		if badge == nil {
			res.created = 1
			res.awarded = len(enrollments)
			return res
		}
		for _, e := range enrollments {
			held, err := s.userBadgeRepo.Get(dbctx.New(ctx), e.UserID, badge.ID)
			if err != nil {
				uid := e.UserID
				fail(&uid, err)
				continue
			}
			if held == nil {
				res.awarded++
			}
		}
		return res
	}

	if badge == nil {
		ensured, created, err := s.badges.EnsureCourseBadge(ctx, courseID)
		if err != nil {
			fail(nil, err)
			return res
		}
		if created {
			res.created++
		}
		badge = ensured
	} else {
		repaired, err := s.badges.RepairArt(ctx, badge)
		if err != nil {
			// a missing image never blocks awards
			fail(nil, err)
		}
		if repaired {
			res.images++
		}
	}
	for _, e := range enrollments {
		_, awarded, err := s.badges.Award(ctx, e.UserID, badge)
		if err != nil {
			uid := e.UserID
			fail(&uid, err)
			continue
		}
		if awarded {
			res.awarded++
		}
	}
	return res
}
