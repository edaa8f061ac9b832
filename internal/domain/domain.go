package domain

import "github.com/yungbote/learnhub-backend/internal/domain/learning"

type (
	Course           = learning.Course
	Lesson           = learning.Lesson
	Enrollment       = learning.Enrollment
	EnrollmentStatus = learning.EnrollmentStatus
	LessonProgress   = learning.LessonProgress
	CourseBadge      = learning.CourseBadge
	UserBadge        = learning.UserBadge
	CourseLevel      = learning.CourseLevel
)

const (
	EnrollmentInProgress = learning.EnrollmentInProgress
	EnrollmentCompleted  = learning.EnrollmentCompleted
	EnrollmentStopped    = learning.EnrollmentStopped

	LevelBeginner     = learning.LevelBeginner
	LevelIntermediate = learning.LevelIntermediate
	LevelAdvanced     = learning.LevelAdvanced
	LevelUnknown      = learning.LevelUnknown
)

var (
	Levels     = learning.Levels
	ParseLevel = learning.ParseLevel
)

// Models lists every table owned by this service, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Course{},
		&Lesson{},
		&Enrollment{},
		&LessonProgress{},
		&CourseBadge{},
		&UserBadge{},
	}
}
