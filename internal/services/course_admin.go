package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type CreateCourseInput struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Level       string `json:"level" validate:"omitempty,oneof=beginner intermediate advanced"`
	Published   bool   `json:"published"`
}

type CreateLessonInput struct {
	Title     string `json:"title" validate:"required,max=200"`
	Index     int    `json:"index" validate:"gte=0"`
	Published bool   `json:"published"`
}

type CourseAdminService interface {
	CreateCourse(ctx context.Context, in CreateCourseInput) (*types.Course, error)
	CreateLesson(ctx context.Context, courseID uuid.UUID, in CreateLessonInput) (*types.Lesson, error)
	SetLessonPublished(ctx context.Context, lessonID uuid.UUID, published bool) (*types.Lesson, error)
}

type courseAdminService struct {
	log        *logger.Logger
	courseRepo repos.CourseRepo
	lessonRepo repos.LessonRepo
}

func NewCourseAdminService(log *logger.Logger, courseRepo repos.CourseRepo, lessonRepo repos.LessonRepo) CourseAdminService {
	return &courseAdminService{
		log:        log.With("service", "CourseAdminService"),
		courseRepo: courseRepo,
		lessonRepo: lessonRepo,
	}
}

func (s *courseAdminService) CreateCourse(ctx context.Context, in CreateCourseInput) (*types.Course, error) {
	const op = "course_admin.create_course"
	in.Title = strings.TrimSpace(in.Title)
	in.Level = strings.ToLower(strings.TrimSpace(in.Level))
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	created, err := s.courseRepo.Create(dbctx.New(ctx), []*types.Course{{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Level:       in.Level,
		Published:   in.Published,
	}})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("course created", "course_id", created[0].ID)
	return created[0], nil
}

func (s *courseAdminService) CreateLesson(ctx context.Context, courseID uuid.UUID, in CreateLessonInput) (*types.Lesson, error) {
	const op = "course_admin.create_lesson"
	in.Title = strings.TrimSpace(in.Title)
	if err := validateInput(op, in); err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if course == nil {
		return nil, domainagg.NotFound(op, "course %s not found", courseID)
	}
	created, err := s.lessonRepo.Create(dbc, []*types.Lesson{{
		CourseID:  courseID,
		Index:     in.Index,
		Title:     in.Title,
		Published: in.Published,
	}})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return created[0], nil
}

// SetLessonPublished changes which lessons count towards completion. It does
// not revisit enrollments that are already completed.
func (s *courseAdminService) SetLessonPublished(ctx context.Context, lessonID uuid.UUID, published bool) (*types.Lesson, error) {
	const op = "course_admin.set_lesson_published"
	row, err := s.lessonRepo.SetPublished(dbctx.New(ctx), lessonID, published)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if row == nil {
		return nil, domainagg.NotFound(op, "lesson %s not found", lessonID)
	}
	return row, nil
}
