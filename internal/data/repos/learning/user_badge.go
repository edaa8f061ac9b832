package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type UserBadgeRepo interface {
	Get(dbc dbctx.Context, userID, badgeID uuid.UUID) (*types.UserBadge, error)
	// Create inserts row; an existing (user, badge) award fails with a uniqueness violation.
	Create(dbc dbctx.Context, row *types.UserBadge) error
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error)
	CountByBadge(dbc dbctx.Context, badgeID uuid.UUID) (int64, error)
}

type userBadgeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserBadgeRepo(db *gorm.DB, baseLog *logger.Logger) UserBadgeRepo {
	return &userBadgeRepo{db: db, log: baseLog.With("repo", "UserBadgeRepo")}
}

func (r *userBadgeRepo) Get(dbc dbctx.Context, userID, badgeID uuid.UUID) (*types.UserBadge, error) {
	if userID == uuid.Nil || badgeID == uuid.Nil {
		return nil, nil
	}
	var row types.UserBadge
	if err := dbc.Conn(r.db).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *userBadgeRepo) Create(dbc dbctx.Context, row *types.UserBadge) error {
	if row == nil || row.UserID == uuid.Nil || row.BadgeID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.AwardedAt.IsZero() {
		row.AwardedAt = time.Now().UTC()
	}
	return dbc.Conn(r.db).Omit("Badge").Create(row).Error
}

// ListByUser returns the user's awards with their badge definitions, newest first.
func (r *userBadgeRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.UserBadge, error) {
	var out []*types.UserBadge
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userBadgeRepo) CountByBadge(dbc dbctx.Context, badgeID uuid.UUID) (int64, error) {
	var n int64
	if badgeID == uuid.Nil {
		return 0, nil
	}
	if err := dbc.Conn(r.db).Model(&types.UserBadge{}).Where("badge_id = ?", badgeID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
