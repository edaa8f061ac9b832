package services

import (
	"context"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type EnrollmentService interface {
	// Enroll is idempotent; created reports whether a new row was written.
	Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)
	Stop(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error)
}

type enrollmentService struct {
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
}

func NewEnrollmentService(log *logger.Logger, courseRepo repos.CourseRepo, enrollmentRepo repos.EnrollmentRepo) EnrollmentService {
	return &enrollmentService{
		log:            log.With("service", "EnrollmentService"),
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
	const op = "enrollment.enroll"
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, false, domainagg.Validation(op, "user and course are required")
	}
	dbc := dbctx.New(ctx)
	course, err := s.courseRepo.GetByID(dbc, courseID)
	if err != nil {
		return nil, false, dataagg.MapError(op, err)
	}
	if course == nil || !course.Published {
		return nil, false, domainagg.NotFound(op, "course %s not found", courseID)
	}
	row, created, err := s.enrollmentRepo.Enroll(dbc, userID, courseID)
	if err != nil {
		return nil, false, dataagg.MapError(op, err)
	}
	if created {
		s.log.Info("user enrolled", "user_id", userID, "course_id", courseID)
	}
	return row, created, nil
}

func (s *enrollmentService) Stop(ctx context.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	const op = "enrollment.stop"
	dbc := dbctx.New(ctx)
	row, err := s.enrollmentRepo.Get(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if row == nil {
		return nil, domainagg.NotFound(op, "enrollment for course %s not found", courseID)
	}
	if row.Status != types.EnrollmentInProgress {
		return row, nil
	}
	if _, err := s.enrollmentRepo.Stop(dbc, userID, courseID); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	row, err = s.enrollmentRepo.Get(dbc, userID, courseID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return row, nil
}

func (s *enrollmentService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	rows, err := s.enrollmentRepo.ListByUser(dbctx.New(ctx), userID)
	if err != nil {
		return nil, dataagg.MapError("enrollment.list", err)
	}
	return rows, nil
}
