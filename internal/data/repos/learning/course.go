package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type CourseRepo interface {
	Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error)
	GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error)
	GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error)
	ListPublished(dbc dbctx.Context, limit int) ([]*types.Course, error)
	SetPublished(dbc dbctx.Context, courseID uuid.UUID, published bool) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

func (r *courseRepo) Create(dbc dbctx.Context, courses []*types.Course) ([]*types.Course, error) {
	if len(courses) == 0 {
		return []*types.Course{}, nil
	}
	if err := dbc.Conn(r.db).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// GetByID returns nil, nil when the course does not exist.
func (r *courseRepo) GetByID(dbc dbctx.Context, courseID uuid.UUID) (*types.Course, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var row types.Course
	if err := dbc.Conn(r.db).
		Where("id = ?", courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *courseRepo) GetByIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.Course, error) {
	var results []*types.Course
	if len(courseIDs) == 0 {
		return results, nil
	}
	if err := dbc.Conn(r.db).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) ListPublished(dbc dbctx.Context, limit int) ([]*types.Course, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var results []*types.Course
	if err := dbc.Conn(r.db).
		Where("published = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *courseRepo) SetPublished(dbc dbctx.Context, courseID uuid.UUID, published bool) error {
	if courseID == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).
		Model(&types.Course{}).
		Where("id = ?", courseID).
		Updates(map[string]interface{}{
			"published":  published,
			"updated_at": time.Now().UTC(),
		}).Error
}
