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

// UpdateLessonProgressInput carries one progress report. TimeSpentSeconds is
// the caller's cumulative total for the lesson; a smaller value than the
// stored one never lowers it. Nil Notes keeps the stored notes.
type UpdateLessonProgressInput struct {
	UserID           uuid.UUID `validate:"required"`
	LessonID         uuid.UUID `validate:"required"`
	CourseID         uuid.UUID `validate:"required"`
	Progress         int       `validate:"gte=0,lte=100"`
	Completed        bool
	TimeSpentSeconds int64   `validate:"gte=0"`
	Notes            *string `validate:"omitempty,max=10000"`
}

type LessonProgressResult struct {
	LessonProgress *types.LessonProgress
	// Completion is nil when the completion check itself failed.
	Completion *CompletionOutcome
}

type LessonProgressService interface {
	UpdateLessonProgress(ctx context.Context, in UpdateLessonProgressInput) (*LessonProgressResult, error)
}

type lessonProgressService struct {
	log            *logger.Logger
	tx             dataagg.TxRunner
	lessonRepo     repos.LessonRepo
	enrollmentRepo repos.EnrollmentRepo
	progressRepo   repos.LessonProgressRepo
	completion     CompletionService
	metrics        *observability.Metrics
}

func NewLessonProgressService(
	log *logger.Logger,
	tx dataagg.TxRunner,
	lessonRepo repos.LessonRepo,
	enrollmentRepo repos.EnrollmentRepo,
	progressRepo repos.LessonProgressRepo,
	completion CompletionService,
	metrics *observability.Metrics,
) LessonProgressService {
	return &lessonProgressService{
		log:            log.With("service", "LessonProgressService"),
		tx:             tx,
		lessonRepo:     lessonRepo,
		enrollmentRepo: enrollmentRepo,
		progressRepo:   progressRepo,
		completion:     completion,
		metrics:        metrics,
	}
}

func (s *lessonProgressService) UpdateLessonProgress(ctx context.Context, in UpdateLessonProgressInput) (*LessonProgressResult, error) {
	const op = "lesson_progress.update"
	if err := validateInput(op, in); err != nil {
		s.metrics.IncLessonUpdate("invalid")
		return nil, err
	}

	dbc := dbctx.New(ctx)
	lesson, err := s.lessonRepo.GetByID(dbc, in.LessonID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if lesson == nil || lesson.CourseID != in.CourseID || !lesson.Published {
		s.metrics.IncLessonUpdate("not_found")
		return nil, domainagg.NotFound(op, "lesson %s not found in course %s", in.LessonID, in.CourseID)
	}
	enrollment, err := s.enrollmentRepo.Get(dbc, in.UserID, in.CourseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if enrollment == nil {
		s.metrics.IncLessonUpdate("not_enrolled")
		return nil, domainagg.Precondition(op, "user is not enrolled in course %s", in.CourseID)
	}

	percent := in.Progress
	if in.Completed {
		percent = 100
	}

	var stored *types.LessonProgress
	err = s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		notes := ""
		if in.Notes != nil {
			notes = *in.Notes
		} else {
			prev, err := s.progressRepo.Get(dbc, in.UserID, in.LessonID)
			if err != nil {
				return err
			}
			if prev != nil {
				notes = prev.Notes
			}
		}
		row, err := s.progressRepo.Upsert(dbc, &types.LessonProgress{
			UserID:           in.UserID,
			LessonID:         in.LessonID,
			CourseID:         in.CourseID,
			ProgressPercent:  percent,
			Completed:        in.Completed,
			TimeSpentSeconds: in.TimeSpentSeconds,
			Notes:            notes,
			LastAccessedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		stored = row
		return nil
	})
	if err != nil {
		s.metrics.IncLessonUpdate("error")
		return nil, dataagg.MapError(op, err)
	}
	s.metrics.IncLessonUpdate("ok")

	out := &LessonProgressResult{LessonProgress: stored}
	outcome, err := s.completion.Evaluate(ctx, in.UserID, in.CourseID)
	if err != nil {
		s.log.Error("completion check failed after lesson update", "user_id", in.UserID, "course_id", in.CourseID, "error", err)
		return out, nil
	}
	out.Completion = outcome
	return out, nil
}
