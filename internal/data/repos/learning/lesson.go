package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error)
	GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error)
	ListPublishedByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error)
	CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error)
	SetPublished(dbc dbctx.Context, lessonID uuid.UUID, published bool) (*types.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, lessons []*types.Lesson) ([]*types.Lesson, error) {
	if len(lessons) == 0 {
		return []*types.Lesson{}, nil
	}
	if err := dbc.Conn(r.db).Create(&lessons).Error; err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, lessonID uuid.UUID) (*types.Lesson, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	var row types.Lesson
	if err := dbc.Conn(r.db).Where("id = ?", lessonID).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// ListPublishedByCourse returns the course's published lessons in index order.
func (r *lessonRepo) ListPublishedByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Lesson, error) {
	var results []*types.Lesson
	if courseID == uuid.Nil {
		return results, nil
	}
	if err := dbc.Conn(r.db).
		Where("course_id = ? AND published = ?", courseID, true).
		Order("position ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *lessonRepo) CountByCourse(dbc dbctx.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	if courseID == uuid.Nil {
		return 0, nil
	}
	if err := dbc.Conn(r.db).Model(&types.Lesson{}).Where("course_id = ?", courseID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *lessonRepo) SetPublished(dbc dbctx.Context, lessonID uuid.UUID, published bool) (*types.Lesson, error) {
	if lessonID == uuid.Nil {
		return nil, nil
	}
	res := dbc.Conn(r.db).
		Model(&types.Lesson{}).
		Where("id = ?", lessonID).
		Updates(map[string]interface{}{
			"published":  published,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.GetByID(dbc, lessonID)
}
