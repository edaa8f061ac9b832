package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	aggtest "github.com/yungbote/learnhub-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/learnhub-backend/internal/data/repos/testutil"
	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/platform/dbctx"
)

func TestUpdateLessonProgressRejectsOutOfRangeProgress(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Range", "beginner")
	lesson := testutil.SeedLessons(t, h.db, course.ID, 1)[0]
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)

	for _, p := range []int{150, -10} {
		_, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
			UserID: user, LessonID: lesson.ID, CourseID: course.ID, Progress: p,
		})
		if !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("progress=%d: want validation got=%v", p, err)
		}
	}
	row, err := h.progressRepo.Get(dbctx.New(t.Context()), user, lesson.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row != nil {
		t.Fatalf("rejected input must not write a row, got=%+v", row)
	}
}

func TestUpdateLessonProgressPreconditions(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Pre", "beginner")
	other := testutil.SeedCourse(t, h.db, "Other", "beginner")
	lesson := testutil.SeedLessons(t, h.db, course.ID, 1)[0]
	draft := testutil.SeedDraftLesson(t, h.db, course.ID, 2)
	user := uuid.New()

	_, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lesson.ID, CourseID: course.ID, Progress: 10,
	})
	if !domainagg.IsCode(err, domainagg.CodePreconditionFailed) {
		t.Fatalf("not enrolled: want precondition_failed got=%v", err)
	}

	testutil.SeedEnrollment(t, h.db, user, course.ID)
	_, err = h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lesson.ID, CourseID: other.ID, Progress: 10,
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("wrong course: want not_found got=%v", err)
	}
	_, err = h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: draft.ID, CourseID: course.ID, Progress: 10,
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("draft lesson: want not_found got=%v", err)
	}
}

func TestUpdateLessonProgressCompletedForcesFullProgress(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Force", "beginner")
	lessons := testutil.SeedLessons(t, h.db, course.ID, 2)
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)

	res, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lessons[0].ID, CourseID: course.ID, Progress: 40, Completed: true,
	})
	if err != nil {
		t.Fatalf("UpdateLessonProgress: %v", err)
	}
	if res.LessonProgress.ProgressPercent != 100 || !res.LessonProgress.Completed {
		t.Fatalf("want 100%% completed got=%+v", res.LessonProgress)
	}
	if res.Completion == nil || res.Completion.Completed {
		t.Fatalf("one of two lessons must not complete the course, got=%+v", res.Completion)
	}
	enr, _ := h.enrollmentRepo.Get(dbctx.New(t.Context()), user, course.ID)
	if enr.Progress != 50 || enr.Status != types.EnrollmentInProgress {
		t.Fatalf("enrollment: want progress=50 in_progress got=%v %s", enr.Progress, enr.Status)
	}
}

func TestUpdateLessonProgressTimeSpentNeverDecreases(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Time", "beginner")
	lessons := testutil.SeedLessons(t, h.db, course.ID, 2)
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)
	notes := "first pass"

	steps := []struct {
		spent int64
		want  int64
	}{{120, 120}, {60, 120}, {300, 300}}
	for i, st := range steps {
		in := UpdateLessonProgressInput{
			UserID: user, LessonID: lessons[0].ID, CourseID: course.ID, Progress: 20 * (i + 1), TimeSpentSeconds: st.spent,
		}
		if i == 0 {
			in.Notes = &notes
		}
		res, err := h.lessons.UpdateLessonProgress(t.Context(), in)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if res.LessonProgress.TimeSpentSeconds != st.want {
			t.Fatalf("step %d time spent: want=%d got=%d", i, st.want, res.LessonProgress.TimeSpentSeconds)
		}
		if res.LessonProgress.Notes != notes {
			t.Fatalf("step %d notes: want=%q got=%q", i, notes, res.LessonProgress.Notes)
		}
	}
	if _, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lessons[1].ID, CourseID: course.ID, Progress: 5, TimeSpentSeconds: 45,
	}); err != nil {
		t.Fatalf("second lesson: %v", err)
	}
	enr, _ := h.enrollmentRepo.Get(dbctx.New(t.Context()), user, course.ID)
	if enr.TimeSpentSeconds != 345 {
		t.Fatalf("enrollment time spent: want=345 got=%d", enr.TimeSpentSeconds)
	}
}

// A three-lesson course completed lesson by lesson ends with one completed
// enrollment, one course badge and one award.
func TestUpdateLessonProgressCompletesCourseAndAwardsBadge(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Go Basics", "beginner")
	lessons := testutil.SeedLessons(t, h.db, course.ID, 3)
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)

	var last *LessonProgressResult
	for i, l := range lessons {
		res, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
			UserID: user, LessonID: l.ID, CourseID: course.ID, Progress: 100, Completed: true, TimeSpentSeconds: 60,
		})
		if err != nil {
			t.Fatalf("lesson %d: %v", i, err)
		}
		if i < len(lessons)-1 && res.Completion.Completed {
			t.Fatalf("lesson %d: course completed too early", i)
		}
		last = res
	}
	out := last.Completion
	if out == nil || !out.Completed || !out.NewlyCompleted || !out.BadgeAwarded || out.BadgeErr != nil {
		t.Fatalf("final outcome: got=%+v", out)
	}

	enr, _ := h.enrollmentRepo.Get(dbctx.New(t.Context()), user, course.ID)
	if enr.Status != types.EnrollmentCompleted || enr.CompletedAt == nil || enr.Progress != 100 {
		t.Fatalf("enrollment: got=%+v", enr)
	}
	badge, err := h.badges.GetCourseBadge(t.Context(), course.ID)
	if err != nil {
		t.Fatalf("GetCourseBadge: %v", err)
	}
	if badge.Name != "Go Basics Completion Badge" || badge.Color != "#F5C518" {
		t.Fatalf("badge: want yellow 'Go Basics Completion Badge' got=%q %q", badge.Name, badge.Color)
	}
	if badge.Description != "Awarded for completing Go Basics." {
		t.Fatalf("description: got=%q", badge.Description)
	}
	if n := testutil.CountUserBadges(t, h.db, user); n != 1 {
		t.Fatalf("user badges: want=1 got=%d", n)
	}

	// re-reporting a lesson is a no-op for completion
	res, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lessons[0].ID, CourseID: course.ID, Progress: 100, Completed: true,
	})
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	if res.Completion.NewlyCompleted || res.Completion.BadgeAwarded {
		t.Fatalf("repeat must not complete or award again, got=%+v", res.Completion)
	}
	if n := testutil.CountUserBadges(t, h.db, user); n != 1 {
		t.Fatalf("user badges after repeat: want=1 got=%d", n)
	}
}

func TestConcurrentLessonUpdatesCompleteOnce(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Parallel", "intermediate")
	lessons := testutil.SeedLessons(t, h.db, course.ID, 6)
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		flips int
		errs  []error
	)
	for _, l := range lessons {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.lessons.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
				UserID: user, LessonID: l.ID, CourseID: course.ID, Progress: 100, Completed: true,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Completion != nil && res.Completion.NewlyCompleted {
				flips++
			}
		}()
	}
	wg.Wait()
	if len(errs) > 0 {
		t.Fatalf("updates failed: %v", errs)
	}
	if flips != 1 {
		t.Fatalf("newly completed: want=1 got=%d", flips)
	}
	if n := testutil.CountCourseBadges(t, h.db, course.ID); n != 1 {
		t.Fatalf("course badges: want=1 got=%d", n)
	}
	if n := testutil.CountUserBadges(t, h.db, user); n != 1 {
		t.Fatalf("user badges: want=1 got=%d", n)
	}
}

func TestUpdateLessonProgressTxBeginFailureSkipsCompletion(t *testing.T) {
	h := newHarness(t, false)
	course := testutil.SeedCourse(t, h.db, "Tx", "beginner")
	lesson := testutil.SeedLessons(t, h.db, course.ID, 1)[0]
	user := uuid.New()
	testutil.SeedEnrollment(t, h.db, user, course.ID)

	runner := &aggtest.InjectedTxRunner{FailBegin: errors.New("begin refused")}
	svc := NewLessonProgressService(testutil.Logger(t), runner, h.lessonRepo, h.enrollmentRepo, h.progressRepo, h.completion, nil)
	_, err := svc.UpdateLessonProgress(t.Context(), UpdateLessonProgressInput{
		UserID: user, LessonID: lesson.ID, CourseID: course.ID, Progress: 100, Completed: true,
	})
	if err == nil {
		t.Fatalf("want error when the transaction cannot begin")
	}
	if runner.BeginCalls != 1 || runner.CommitCalls != 0 {
		t.Fatalf("tx calls: want begin=1 commit=0 got begin=%d commit=%d", runner.BeginCalls, runner.CommitCalls)
	}
	row, _ := h.progressRepo.Get(dbctx.New(t.Context()), user, lesson.ID)
	if row != nil {
		t.Fatalf("failed tx must not write a row, got=%+v", row)
	}
	enr, _ := h.enrollmentRepo.Get(dbctx.New(t.Context()), user, course.ID)
	if enr.Status == types.EnrollmentCompleted {
		t.Fatalf("completion must not run after a failed write")
	}
}
