package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentInProgress EnrollmentStatus = "in_progress"
	EnrollmentCompleted  EnrollmentStatus = "completed"
	EnrollmentStopped    EnrollmentStatus = "stopped"
)

// Enrollment is a user's registration in a course. Status only reaches
// "completed" through the completion check.
type Enrollment struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:1" json:"user_id"`
	CourseID         uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_enrollment_user_course,priority:2;index" json:"course_id"`
	Status           EnrollmentStatus `gorm:"column:status;not null;default:'in_progress';index" json:"status"`
	Progress         float64          `gorm:"column:progress;not null;default:0" json:"progress"`
	TimeSpentSeconds int64            `gorm:"column:time_spent_seconds;not null;default:0" json:"time_spent_seconds"`
	EnrolledAt       time.Time        `gorm:"column:enrolled_at;not null" json:"enrolled_at"`
	CompletedAt      *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	LastAccessedAt   *time.Time       `gorm:"column:last_accessed_at" json:"last_accessed_at,omitempty"`
	CreatedAt        time.Time        `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"not null" json:"updated_at"`
}

func (Enrollment) TableName() string { return "enrollment" }

func (e *Enrollment) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	if e.Status == "" {
		e.Status = EnrollmentInProgress
	}
	return nil
}

func (e *Enrollment) IsCompleted() bool {
	return e != nil && e.Status == EnrollmentCompleted
}
