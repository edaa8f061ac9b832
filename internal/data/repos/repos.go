package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/data/repos/learning"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type EnrollmentRepo = learning.EnrollmentRepo
type LessonProgressRepo = learning.LessonProgressRepo
type CourseBadgeRepo = learning.CourseBadgeRepo
type UserBadgeRepo = learning.UserBadgeRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return learning.NewEnrollmentRepo(db, baseLog)
}

func NewLessonProgressRepo(db *gorm.DB, baseLog *logger.Logger) LessonProgressRepo {
	return learning.NewLessonProgressRepo(db, baseLog)
}

func NewCourseBadgeRepo(db *gorm.DB, baseLog *logger.Logger) CourseBadgeRepo {
	return learning.NewCourseBadgeRepo(db, baseLog)
}

func NewUserBadgeRepo(db *gorm.DB, baseLog *logger.Logger) UserBadgeRepo {
	return learning.NewUserBadgeRepo(db, baseLog)
}
