package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

// CourseProgress is a user's standing in one course. Computable is false when
// the course has no published lessons; the other fields are zero then.
type CourseProgress struct {
	CourseID         uuid.UUID `json:"course_id"`
	TotalLessons     int       `json:"total_lessons"`
	CompletedLessons int       `json:"completed_lessons"`
	AveragePercent   float64   `json:"average_percent"`
	Completed        bool      `json:"completed"`
	Computable       bool      `json:"computable"`
}

type ProgressService interface {
	ComputeCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error)
}

type progressService struct {
	log          *logger.Logger
	courseRepo   repos.CourseRepo
	lessonRepo   repos.LessonRepo
	progressRepo repos.LessonProgressRepo
}

func NewProgressService(
	log *logger.Logger,
	courseRepo repos.CourseRepo,
	lessonRepo repos.LessonRepo,
	progressRepo repos.LessonProgressRepo,
) ProgressService {
	return &progressService{
		log:          log.With("service", "ProgressService"),
		courseRepo:   courseRepo,
		lessonRepo:   lessonRepo,
		progressRepo: progressRepo,
	}
}

func (s *progressService) ComputeCourseProgress(ctx context.Context, userID, courseID uuid.UUID) (*CourseProgress, error) {
	const op = "progress.compute"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, domainagg.Validation(op, "user and course are required")
	}

	var (
		course  *types.Course
		lessons []*types.Lesson
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		course, err = s.courseRepo.GetByID(dbctx.New(gctx), courseID)
		return err
	})
	g.Go(func() (err error) {
		lessons, err = s.lessonRepo.ListPublishedByCourse(dbctx.New(gctx), courseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if course == nil {
		return nil, domainagg.NotFound(op, "course %s not found", courseID)
	}

	out := &CourseProgress{CourseID: courseID, TotalLessons: len(lessons)}
	if len(lessons) == 0 {
		return out, nil
	}
	out.Computable = true

	lessonIDs := make([]uuid.UUID, 0, len(lessons))
	for _, l := range lessons {
		lessonIDs = append(lessonIDs, l.ID)
	}
	rows, err := s.progressRepo.ListByUserAndLessons(dbctx.New(ctx), userID, lessonIDs)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	out.CompletedLessons, out.AveragePercent = summarize(len(lessons), rows)
	out.Completed = out.TotalLessons > 0 && out.CompletedLessons >= out.TotalLessons
	return out, nil
}

// summarize averages over every published lesson; lessons without a row count
// as 0%. rows must already be restricted to those lessons.
func summarize(total int, rows []*types.LessonProgress) (completed int, average float64) {
	if total <= 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range rows {
		if r == nil {
			continue
		}
		if r.Completed {
			completed++
		}
		sum += r.ProgressPercent
	}
	avg := float64(sum) / float64(total)
	return completed, math.Round(avg*100) / 100
}
