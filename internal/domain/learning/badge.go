package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CourseBadge is the single badge definition of a course. It is created
// lazily by the first completion and shared by every awarded user.
type CourseBadge struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_course_badge_course" json:"course_id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description;type:text" json:"description"`
	Color       string         `gorm:"column:color;not null" json:"color"`
	ImageURL    string         `gorm:"column:image_url" json:"image_url,omitempty"`
	Metadata    datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (CourseBadge) TableName() string { return "course_badge" }

// UserBadge records that a user holds a course badge. (user_id, badge_id) is unique.
type UserBadge struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_user_badge,priority:1" json:"user_id"`
	BadgeID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_user_badge_user_badge,priority:2;index" json:"badge_id"`
	CourseID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"course_id"`
	AwardedAt time.Time    `gorm:"column:awarded_at;not null" json:"awarded_at"`
	Badge     *CourseBadge `gorm:"foreignKey:BadgeID;references:ID" json:"badge,omitempty"`
}

func (UserBadge) TableName() string { return "user_badge" }
