package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/learnhub-backend/internal/domain"
)

func SeedCourse(tb testing.TB, db *gorm.DB, title, level string) *types.Course {
	tb.Helper()
	row := &types.Course{
		ID:        uuid.New(),
		Title:     title,
		Level:     level,
		Published: true,
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return row
}

// SeedLessons creates n published lessons for course, indexed from 1.
func SeedLessons(tb testing.TB, db *gorm.DB, courseID uuid.UUID, n int) []*types.Lesson {
	tb.Helper()
	out := make([]*types.Lesson, 0, n)
	for i := 1; i <= n; i++ {
		row := &types.Lesson{
			ID:        uuid.New(),
			CourseID:  courseID,
			Index:     i,
			Title:     fmt.Sprintf("Lesson %d", i),
			Published: true,
		}
		if err := db.Create(row).Error; err != nil {
			tb.Fatalf("seed lesson: %v", err)
		}
		out = append(out, row)
	}
	return out
}

func SeedDraftLesson(tb testing.TB, db *gorm.DB, courseID uuid.UUID, index int) *types.Lesson {
	tb.Helper()
	row := &types.Lesson{ID: uuid.New(), CourseID: courseID, Index: index, Title: "Draft"}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed draft lesson: %v", err)
	}
	return row
}

func SeedEnrollment(tb testing.TB, db *gorm.DB, userID, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	row := &types.Enrollment{
		ID:         uuid.New(),
		UserID:     userID,
		CourseID:   courseID,
		Status:     types.EnrollmentInProgress,
		EnrolledAt: time.Now().UTC(),
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return row
}

func SeedProgress(tb testing.TB, db *gorm.DB, userID uuid.UUID, lesson *types.Lesson, percent int, completed bool) *types.LessonProgress {
	tb.Helper()
	row := &types.LessonProgress{
		ID:              uuid.New(),
		UserID:          userID,
		LessonID:        lesson.ID,
		CourseID:        lesson.CourseID,
		ProgressPercent: percent,
		Completed:       completed,
		LastAccessedAt:  time.Now().UTC(),
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed progress: %v", err)
	}
	return row
}

func SeedCourseBadge(tb testing.TB, db *gorm.DB, courseID uuid.UUID, name string) *types.CourseBadge {
	tb.Helper()
	row := &types.CourseBadge{
		ID:       uuid.New(),
		CourseID: courseID,
		Name:     name,
		Color:    "#8B5CF6",
	}
	if err := db.Create(row).Error; err != nil {
		tb.Fatalf("seed course badge: %v", err)
	}
	return row
}

func CountCourseBadges(tb testing.TB, db *gorm.DB, courseID uuid.UUID) int64 {
	tb.Helper()
	var n int64
	if err := db.Model(&types.CourseBadge{}).Where("course_id = ?", courseID).Count(&n).Error; err != nil {
		tb.Fatalf("count course badges: %v", err)
	}
	return n
}

func CountUserBadges(tb testing.TB, db *gorm.DB, userID uuid.UUID) int64 {
	tb.Helper()
	var n int64
	if err := db.Model(&types.UserBadge{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		tb.Fatalf("count user badges: %v", err)
	}
	return n
}

// RejectWrites makes every create or update on table fail on db with err,
// the way a row-level-security policy would.
func RejectWrites(tb testing.TB, db *gorm.DB, table string, err error) {
	tb.Helper()
	reject := func(tx *gorm.DB) {
		if tx.Statement != nil && tx.Statement.Table == table {
			_ = tx.AddError(err)
		}
	}
	name := "testutil:reject_" + table
	if e := db.Callback().Create().Before("gorm:create").Register(name, reject); e != nil {
		tb.Fatalf("register create callback: %v", e)
	}
	if e := db.Callback().Update().Before("gorm:update").Register(name, reject); e != nil {
		tb.Fatalf("register update callback: %v", e)
	}
}
