package services

import (
	"testing"

	"gorm.io/gorm"

	dataagg "github.com/yungbote/learnhub-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/learnhub-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/learnhub-backend/internal/data/repos"
	"github.com/yungbote/learnhub-backend/internal/data/repos/testutil"
)

// harness wires the progress core on sqlite. With split roles, primary is a
// separate handle on the same file so tests can make it reject writes.
type harness struct {
	db      *gorm.DB // privileged
	primary *gorm.DB
	hooks   *aggtest.HooksRecorder

	courseRepo      repos.CourseRepo
	lessonRepo      repos.LessonRepo
	enrollmentRepo  repos.EnrollmentRepo
	progressRepo    repos.LessonProgressRepo
	courseBadgeRepo repos.CourseBadgeRepo
	userBadgeRepo   repos.UserBadgeRepo

	progress    ProgressService
	badges      BadgeService
	completion  CompletionService
	lessons     LessonProgressService
	enrollments EnrollmentService
	reconcile   ReconcileService
}

func newHarness(t *testing.T, splitRoles bool) *harness {
	t.Helper()
	db := testutil.DB(t)
	primary := db
	if splitRoles {
		primary = testutil.Peer(t, db)
	}
	return buildHarness(t, db, primary)
}

func buildHarness(t *testing.T, privileged, primary *gorm.DB) *harness {
	t.Helper()
	log := testutil.Logger(t)
	h := &harness{db: privileged, primary: primary, hooks: &aggtest.HooksRecorder{}}

	h.courseRepo = repos.NewCourseRepo(primary, log)
	h.lessonRepo = repos.NewLessonRepo(primary, log)
	h.enrollmentRepo = repos.NewEnrollmentRepo(primary, log)
	h.progressRepo = repos.NewLessonProgressRepo(primary, log)
	h.courseBadgeRepo = repos.NewCourseBadgeRepo(primary, log)
	h.userBadgeRepo = repos.NewUserBadgeRepo(primary, log)

	var priv *gorm.DB
	if privileged != primary {
		priv = privileged
	}
	writes := dataagg.NewTwoTierWritePolicy(primary, priv, h.hooks, log)

	h.progress = NewProgressService(log, h.courseRepo, h.lessonRepo, h.progressRepo)
	h.badges = NewBadgeService(log, BadgeServiceDeps{
		CourseRepo:      h.courseRepo,
		CourseBadgeRepo: h.courseBadgeRepo,
		UserBadgeRepo:   h.userBadgeRepo,
		Writes:          writes,
		Style:           DefaultBadgeStyle(),
	})
	h.completion = NewCompletionService(log, h.progress, h.enrollmentRepo, h.progressRepo, h.badges, nil)
	h.lessons = NewLessonProgressService(log, dataagg.NewGormTxRunner(primary), h.lessonRepo, h.enrollmentRepo, h.progressRepo, h.completion, nil)
	h.enrollments = NewEnrollmentService(log, h.courseRepo, h.enrollmentRepo)
	h.reconcile = NewReconcileService(log, h.enrollmentRepo, h.courseBadgeRepo, h.userBadgeRepo, h.badges, nil, 2)
	return h
}
