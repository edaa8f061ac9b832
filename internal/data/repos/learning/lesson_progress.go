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

type LessonProgressRepo interface {
	// Upsert writes the (user, lesson) row last-write-wins, except that
	// time_spent_seconds never decreases. It returns the stored row.
	Upsert(dbc dbctx.Context, row *types.LessonProgress) (*types.LessonProgress, error)
	Get(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error)
	ListByUserAndLessons(dbc dbctx.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error)
	SumTimeSpent(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error)
}

type lessonProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return &lessonProgressRepo{db: db, log: baseLog.With("repo", "LessonProgressRepo")}
}

func ClampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func (r *lessonProgressRepo) Upsert(dbc dbctx.Context, row *types.LessonProgress) (*types.LessonProgress, error) {
	if row == nil || row.UserID == uuid.Nil || row.LessonID == uuid.Nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.ProgressPercent = ClampPercent(row.ProgressPercent)
	if row.TimeSpentSeconds < 0 {
		row.TimeSpentSeconds = 0
	}
	if row.LastAccessedAt.IsZero() {
		row.LastAccessedAt = now
	}
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}

	updates := clause.AssignmentColumns([]string{
		"course_id",
		"progress_percent",
		"completed",
		"notes",
		"last_accessed_at",
		"updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "time_spent_seconds"},
		Value: gorm.Expr(
			"CASE WHEN lesson_progress.time_spent_seconds > excluded.time_spent_seconds " +
				"THEN lesson_progress.time_spent_seconds ELSE excluded.time_spent_seconds END",
		),
	})

	err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
			DoUpdates: updates,
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.Get(dbc, row.UserID, row.LessonID)
}

func (r *lessonProgressRepo) Get(dbc dbctx.Context, userID, lessonID uuid.UUID) (*types.LessonProgress, error) {
	if userID == uuid.Nil || lessonID == uuid.Nil {
		return nil, nil
	}
	var row types.LessonProgress
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *lessonProgressRepo) ListByUserAndLessons(dbc dbctx.Context, userID uuid.UUID, lessonIDs []uuid.UUID) ([]*types.LessonProgress, error) {
	var out []*types.LessonProgress
	if userID == uuid.Nil || len(lessonIDs) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND lesson_id IN ?", userID, lessonIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lessonProgressRepo) SumTimeSpent(dbc dbctx.Context, userID, courseID uuid.UUID) (int64, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return 0, nil
	}
	var total int64
	if err := dbc.Conn(r.db).
		Model(&types.LessonProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Select("COALESCE(SUM(time_spent_seconds), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
