package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/learnhub-backend/internal/data/repos"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type Repos struct {
	Course         repos.CourseRepo
	Lesson         repos.LessonRepo
	Enrollment     repos.EnrollmentRepo
	LessonProgress repos.LessonProgressRepo
	CourseBadge    repos.CourseBadgeRepo
	UserBadge      repos.UserBadgeRepo
}

// wireRepos binds every repo to the primary handle; privileged writes go
// through the write policy, not the repos.
func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:         repos.NewCourseRepo(db, log),
		Lesson:         repos.NewLessonRepo(db, log),
		Enrollment:     repos.NewEnrollmentRepo(db, log),
		LessonProgress: repos.NewLessonProgressRepo(db, log),
		CourseBadge:    repos.NewCourseBadgeRepo(db, log),
		UserBadge:      repos.NewUserBadgeRepo(db, log),
	}
}
