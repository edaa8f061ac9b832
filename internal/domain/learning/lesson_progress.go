package learning

import (
	"time"

	"github.com/google/uuid"
)

// LessonProgress is keyed by (user_id, lesson_id); course_id is carried for
// course-scoped reads.
type LessonProgress struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson,priority:1;index:idx_lesson_progress_user_course,priority:1" json:"user_id"`
	LessonID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_lesson_progress_user_lesson,priority:2" json:"lesson_id"`
	CourseID         uuid.UUID `gorm:"type:uuid;not null;index:idx_lesson_progress_user_course,priority:2" json:"course_id"`
	ProgressPercent  int       `gorm:"column:progress_percent;not null;default:0" json:"progress_percent"`
	Completed        bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	TimeSpentSeconds int64     `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	Notes            string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	LastAccessedAt   time.Time `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (LessonProgress) TableName() string { return "lesson_progress" }
