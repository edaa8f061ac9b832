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

type CourseBadgeRepo interface {
	GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseBadge, error)
	GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CourseBadge, error)
	// Create inserts row. A second definition for the same course fails with a
	// uniqueness violation, which callers are expected to tolerate.
	Create(dbc dbctx.Context, row *types.CourseBadge) error
	// Upsert replaces the definition fields of the course's badge.
	Upsert(dbc dbctx.Context, row *types.CourseBadge) (*types.CourseBadge, error)
	SetImageURL(dbc dbctx.Context, badgeID uuid.UUID, imageURL string) error
}

type courseBadgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseBadgeRepo(db *gorm.DB, baseLog *logger.Logger) CourseBadgeRepo {
	return &courseBadgeRepo{db: db, log: baseLog.With("repo", "CourseBadgeRepo")}
}

func (r *courseBadgeRepo) GetByCourseID(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseBadge, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var row types.CourseBadge
	if err := dbc.Conn(r.db).
		Where("course_id = ?", courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *courseBadgeRepo) GetByCourseIDs(dbc dbctx.Context, courseIDs []uuid.UUID) ([]*types.CourseBadge, error) {
	var out []*types.CourseBadge
	if len(courseIDs) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("course_id IN ?", courseIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseBadgeRepo) Create(dbc dbctx.Context, row *types.CourseBadge) error {
	if row == nil || row.CourseID == uuid.Nil {
		return nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return dbc.Conn(r.db).Create(row).Error
}

func (r *courseBadgeRepo) Upsert(dbc dbctx.Context, row *types.CourseBadge) (*types.CourseBadge, error) {
	if row == nil || row.CourseID == uuid.Nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	err := dbc.Conn(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"description",
				"color",
				"image_url",
				"metadata",
				"updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		return nil, err
	}
	return r.GetByCourseID(dbc, row.CourseID)
}

func (r *courseBadgeRepo) SetImageURL(dbc dbctx.Context, badgeID uuid.UUID, imageURL string) error {
	if badgeID == uuid.Nil {
		return nil
	}
	return dbc.Conn(r.db).
		Model(&types.CourseBadge{}).
		Where("id = ?", badgeID).
		Updates(map[string]interface{}{
			"image_url":  imageURL,
			"updated_at": time.Now().UTC(),
		}).Error
}
