package learning

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/learnhub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
)

func TestLessonProgressUpsertLastWriteWins(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(t.Context())
	repo := NewLessonProgressRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, db, "Linux", "intermediate")
	lessons := testutil.SeedLessons(t, db, course.ID, 2)
	userID := uuid.New()

	first, err := repo.Upsert(dbc, &types.LessonProgress{
		UserID: userID, LessonID: lessons[0].ID, CourseID: course.ID,
		ProgressPercent: 40, TimeSpentSeconds: 300, Notes: "tab a",
	})
	if err != nil || first == nil {
		t.Fatalf("Upsert: row=%v err=%v", first, err)
	}
	second, err := repo.Upsert(dbc, &types.LessonProgress{
		UserID: userID, LessonID: lessons[0].ID, CourseID: course.ID,
		ProgressPercent: 20, TimeSpentSeconds: 120, Notes: "tab b",
	})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("row id: want=%v got=%v", first.ID, second.ID)
	}
	if second.ProgressPercent != 20 || second.Notes != "tab b" {
		t.Fatalf("last write: progress=%d notes=%q", second.ProgressPercent, second.Notes)
	}
	if second.TimeSpentSeconds != 300 {
		t.Fatalf("time spent must not decrease: want=300 got=%d", second.TimeSpentSeconds)
	}

	third, err := repo.Upsert(dbc, &types.LessonProgress{
		UserID: userID, LessonID: lessons[0].ID, CourseID: course.ID,
		ProgressPercent: 100, Completed: true, TimeSpentSeconds: 450,
	})
	if err != nil {
		t.Fatalf("Upsert third: %v", err)
	}
	if !third.Completed || third.TimeSpentSeconds != 450 {
		t.Fatalf("third: completed=%v time=%d", third.Completed, third.TimeSpentSeconds)
	}

	var n int64
	db.Model(&types.LessonProgress{}).Where("user_id = ?", userID).Count(&n)
	if n != 1 {
		t.Fatalf("rows: want=1 got=%d", n)
	}

	if _, err := repo.Upsert(dbc, &types.LessonProgress{
		UserID: userID, LessonID: lessons[1].ID, CourseID: course.ID, TimeSpentSeconds: 50,
	}); err != nil {
		t.Fatalf("Upsert lesson 2: %v", err)
	}
	total, err := repo.SumTimeSpent(dbc, userID, course.ID)
	if err != nil || total != 500 {
		t.Fatalf("SumTimeSpent: want=500 got=%d err=%v", total, err)
	}

	rows, err := repo.ListByUserAndLessons(dbc, userID, []uuid.UUID{lessons[0].ID, lessons[1].ID})
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByUserAndLessons: len=%d err=%v", len(rows), err)
	}
}

func TestLessonProgressUpsertClampsPercent(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(t.Context())
	repo := NewLessonProgressRepo(db, testutil.Logger(t))

	course := testutil.SeedCourse(t, db, "Clamp", "")
	lessons := testutil.SeedLessons(t, db, course.ID, 1)
	userID := uuid.New()

	for _, in := range []int{150, -10} {
		row, err := repo.Upsert(dbc, &types.LessonProgress{
			UserID: userID, LessonID: lessons[0].ID, CourseID: course.ID, ProgressPercent: in,
		})
		if err != nil {
			t.Fatalf("Upsert(%d): %v", in, err)
		}
		if row.ProgressPercent < 0 || row.ProgressPercent > 100 {
			t.Fatalf("Upsert(%d): stored %d outside [0,100]", in, row.ProgressPercent)
		}
	}
}
