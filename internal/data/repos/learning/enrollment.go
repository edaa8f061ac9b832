package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type EnrollmentRepo interface {
	// Enroll creates the (user, course) enrollment if missing and returns the stored row.
	Enroll(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error)
	Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error)
	ListCompleted(dbc dbctx.Context, userID *uuid.UUID) ([]*types.Enrollment, error)
	// UpdateProgress refreshes activity fields; progress is left alone on completed rows.
	UpdateProgress(dbc dbctx.Context, userID, courseID uuid.UUID, progress float64, timeSpent int64, at time.Time) (bool, error)
	// MarkCompleted flips status to completed once. It reports whether this call did the flip.
	MarkCompleted(dbc dbctx.Context, userID, courseID uuid.UUID, at time.Time) (bool, error)
	// Stop moves an in-progress enrollment to stopped.
	Stop(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) Enroll(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, bool, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, false, nil
	}
	now := time.Now().UTC()
	row := &types.Enrollment{
		ID:         uuid.New(),
		UserID:     userID,
		CourseID:   courseID,
		Status:     types.EnrollmentInProgress,
		EnrolledAt: now,
	}
	res := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0
	stored, err := r.Get(dbc, userID, courseID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (r *enrollmentRepo) Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.Enrollment, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Enrollment
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *enrollmentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListCompleted returns completed enrollments, optionally scoped to one user,
// grouped by course.
func (r *enrollmentRepo) ListCompleted(dbc dbctx.Context, userID *uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	q := dbc.Conn(r.db).Where("status = ?", types.EnrollmentCompleted)
	if userID != nil && *userID != uuid.Nil {
		q = q.Where("user_id = ?", *userID)
	}
	if err := q.Order("course_id ASC").Order("completed_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) UpdateProgress(dbc dbctx.Context, userID, courseID uuid.UUID, progress float64, timeSpent int64, at time.Time) (bool, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"progress":           gorm.Expr("CASE WHEN status = ? THEN progress ELSE ? END", types.EnrollmentCompleted, progress),
			"time_spent_seconds": timeSpent,
			"last_accessed_at":   at,
			"updated_at":         at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) MarkCompleted(dbc dbctx.Context, userID, courseID uuid.UUID, at time.Time) (bool, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status <> ?", userID, courseID, types.EnrollmentCompleted).
		Updates(map[string]interface{}{
			"status":       types.EnrollmentCompleted,
			"completed_at": at,
			"progress":     100,
			"updated_at":   at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *enrollmentRepo) Stop(dbc dbctx.Context, userID, courseID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return false, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.Enrollment{}).
		Where("user_id = ? AND course_id = ? AND status = ?", userID, courseID, types.EnrollmentInProgress).
		Updates(map[string]interface{}{
			"status":     types.EnrollmentStopped,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
