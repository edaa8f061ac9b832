package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

// CompletionOutcome is the result of one completion check. BadgeErr is set
// when the course was completed but issuance failed; the enrollment stays
// completed and the reconciliation sweep awards the badge later.
type CompletionOutcome struct {
	Progress       *CourseProgress
	Completed      bool
	NewlyCompleted bool
	Badge          *types.UserBadge
	BadgeAwarded   bool
	BadgeErr       error
}

type CompletionService interface {
	Evaluate(ctx context.Context, userID, courseID uuid.UUID) (*CompletionOutcome, error)
}

type completionService struct {
	log            *logger.Logger
	progress       ProgressService
	enrollmentRepo repos.EnrollmentRepo
	progressRepo   repos.LessonProgressRepo
	badges         BadgeService
	metrics        *observability.Metrics
	now            func() time.Time
}

func NewCompletionService(
	log *logger.Logger,
	progress ProgressService,
	enrollmentRepo repos.EnrollmentRepo,
	progressRepo repos.LessonProgressRepo,
	badges BadgeService,
	metrics *observability.Metrics,
) CompletionService {
	return &completionService{
		log:            log.With("service", "CompletionService"),
		progress:       progress,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		badges:         badges,
		metrics:        metrics,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *completionService) Evaluate(ctx context.Context, userID, courseID uuid.UUID) (*CompletionOutcome, error) {
	const op = "completion.evaluate"
	prog, err := s.progress.ComputeCourseProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	enrollment, err := s.enrollmentRepo.Get(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if enrollment == nil {
		return nil, domainagg.Precondition(op, "user is not enrolled in course %s", courseID)
	}

	now := s.now()
	spent, err := s.progressRepo.SumTimeSpent(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if _, err := s.enrollmentRepo.UpdateProgress(dbc, userID, courseID, prog.AveragePercent, spent, now); err != nil {
		return nil, dataagg.MapError(op, err)
	}

	out := &CompletionOutcome{Progress: prog, Completed: prog.Completed}
	if !prog.Completed {
		return out, nil
	}

	flipped, err := s.enrollmentRepo.MarkCompleted(dbc, userID, courseID, now)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	out.NewlyCompleted = flipped
	if flipped {
		s.metrics.IncCourseCompletion()
		s.log.Info("course completed", "user_id", userID, "course_id", courseID)
	}

	// Issuance is idempotent, so an already-completed course still heals a
	// missing award here.
	res, err := s.badges.IssueForCourse(ctx, userID, courseID)
	if err != nil {
		out.BadgeErr = err
		s.metrics.IncBadgeIssueFailure("issue")
		s.log.Error("badge issuance failed after completion", "user_id", userID, "course_id", courseID, "error", err)
		return out, nil
	}
	out.Badge = res.UserBadge
	out.BadgeAwarded = res.Awarded
	return out, nil
}
