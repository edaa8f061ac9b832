package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/learnhub-backend/internal/domain"
	domainagg "github.com/yungbote/learnhub-backend/internal/domain/aggregates"
	"github.com/yungbote/learnhub-backend/internal/jobs/reconcile"
	"github.com/yungbote/learnhub-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnhub-backend/internal/services"
)

type fakeLessonProgress struct {
	got services.UpdateLessonProgressInput
	res *services.LessonProgressResult
	err error
}

func (f *fakeLessonProgress) UpdateLessonProgress(_ context.Context, in services.UpdateLessonProgressInput) (*services.LessonProgressResult, error) {
	f.got = in
	return f.res, f.err
}

type fakeCompletion struct {
	out *services.CompletionOutcome
	err error
}

func (f *fakeCompletion) Evaluate(context.Context, uuid.UUID, uuid.UUID) (*services.CompletionOutcome, error) {
	return f.out, f.err
}

type fakeProgress struct {
	out *services.CourseProgress
	err error
}

func (f *fakeProgress) ComputeCourseProgress(context.Context, uuid.UUID, uuid.UUID) (*services.CourseProgress, error) {
	return f.out, f.err
}

type fakeRunner struct {
	got services.SweepOptions
	err error
}

func (f *fakeRunner) RunOnce(_ context.Context, opts services.SweepOptions) (*services.SweepReport, error) {
	f.got = opts
	if f.err != nil {
		return nil, f.err
	}
	return &services.SweepReport{DryRun: opts.DryRun}, nil
}

func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID}))
		c.Next()
	}
}

func send(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func lessonRouter(svc services.LessonProgressService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewLessonProgressHandler(svc)
	r.POST("/update", asUser(userID), h.Update)
	r.POST("/anon", h.Update)
	return r
}

func TestUpdateLessonProgressSuccess(t *testing.T) {
	user, lesson, course := uuid.New(), uuid.New(), uuid.New()
	svc := &fakeLessonProgress{res: &services.LessonProgressResult{
		LessonProgress: &types.LessonProgress{ProgressPercent: 100, Completed: true},
		Completion:     &services.CompletionOutcome{Completed: true, BadgeAwarded: true},
	}}
	r := lessonRouter(svc, user)

	rec := send(r, http.MethodPost, "/update", gin.H{
		"lessonId": lesson, "courseId": course, "progress": 100, "completed": true, "timeSpent": 42,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	var out updateLessonProgressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := updateLessonProgressResponse{Success: true, Completed: true, Progress: 100, BadgeAwarded: true, CourseCompleted: true}
	if out != want {
		t.Fatalf("body: want=%+v got=%+v", want, out)
	}
	if svc.got.UserID != user || svc.got.LessonID != lesson || svc.got.TimeSpentSeconds != 42 {
		t.Fatalf("service input: got=%+v", svc.got)
	}
}

func TestUpdateLessonProgressRoundsFractionalPercent(t *testing.T) {
	cases := map[float64]int{50.5: 51, 33.33: 33, 99.49: 99, 0.2: 0}
	for in, want := range cases {
		svc := &fakeLessonProgress{res: &services.LessonProgressResult{
			LessonProgress: &types.LessonProgress{ProgressPercent: want},
		}}
		r := lessonRouter(svc, uuid.New())
		rec := send(r, http.MethodPost, "/update", gin.H{"lessonId": uuid.New(), "courseId": uuid.New(), "progress": in})
		if rec.Code != http.StatusOK {
			t.Fatalf("progress=%v: want=200 got=%d body=%s", in, rec.Code, rec.Body.String())
		}
		if svc.got.Progress != want {
			t.Fatalf("progress=%v: want=%d got=%d", in, want, svc.got.Progress)
		}
	}
}

func TestUpdateLessonProgressReportsPendingBadge(t *testing.T) {
	svc := &fakeLessonProgress{res: &services.LessonProgressResult{
		LessonProgress: &types.LessonProgress{ProgressPercent: 100, Completed: true},
		Completion:     &services.CompletionOutcome{Completed: true, BadgeErr: errors.New("bucket down")},
	}}
	r := lessonRouter(svc, uuid.New())

	rec := send(r, http.MethodPost, "/update", gin.H{"lessonId": uuid.New(), "courseId": uuid.New(), "progress": 100, "completed": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	var out updateLessonProgressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.CourseCompleted || out.BadgeAwarded || !out.BadgePending {
		t.Fatalf("want completed with pending badge, got=%+v", out)
	}
}

func TestUpdateLessonProgressErrorMapping(t *testing.T) {
	body := gin.H{"lessonId": uuid.New(), "courseId": uuid.New(), "progress": 50}
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domainagg.Validation("op", "progress must be between 0 and 100"), http.StatusBadRequest, "validation_failed"},
		{"not found", domainagg.NotFound("op", "lesson missing"), http.StatusNotFound, "not_found"},
		{"not enrolled", domainagg.Precondition("op", "not enrolled"), http.StatusConflict, "precondition_failed"},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := lessonRouter(&fakeLessonProgress{err: tc.err}, uuid.New())
			rec := send(r, http.MethodPost, "/update", body)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d", tc.status, rec.Code)
			}
			if got := errorCode(t, rec); got != tc.code {
				t.Fatalf("code: want=%s got=%s", tc.code, got)
			}
		})
	}
}

func TestUpdateLessonProgressRejectsBadRequests(t *testing.T) {
	svc := &fakeLessonProgress{}
	r := lessonRouter(svc, uuid.New())

	if rec := send(r, http.MethodPost, "/update", gin.H{"lessonId": "nope", "courseId": uuid.New(), "progress": 1}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: want=400 got=%d", rec.Code)
	}
	if rec := send(r, http.MethodPost, "/update", gin.H{"lessonId": uuid.New(), "courseId": uuid.New()}); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing progress: want=400 got=%d", rec.Code)
	}
	if rec := send(r, http.MethodPost, "/anon", gin.H{"lessonId": uuid.New(), "courseId": uuid.New(), "progress": 1}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: want=401 got=%d", rec.Code)
	}
	if svc.got.UserID != uuid.Nil {
		t.Fatalf("service must not be called, got=%+v", svc.got)
	}
}

func courseRouter(h *CourseHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser(uuid.New()))
	r.GET("/courses/:id/progress", h.GetProgress)
	r.POST("/courses/:id/completion", h.CheckCompletion)
	return r
}

func TestCheckCompletionDistinguishesIncompleteFromFailure(t *testing.T) {
	course := uuid.New()
	path := "/courses/" + course.String() + "/completion"

	incomplete := courseRouter(NewCourseHandler(nil, &fakeCompletion{out: &services.CompletionOutcome{
		Progress: &services.CourseProgress{TotalLessons: 3, CompletedLessons: 2, Computable: true},
	}}, nil, nil))
	rec := send(incomplete, http.MethodPost, path, nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "course_incomplete" {
		t.Fatalf("incomplete: code=%d body=%s", rec.Code, rec.Body.String())
	}

	failed := courseRouter(NewCourseHandler(nil, &fakeCompletion{err: errors.New("write failed")}, nil, nil))
	if rec := send(failed, http.MethodPost, path, nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("write failure: want=500 got=%d", rec.Code)
	}

	done := courseRouter(NewCourseHandler(nil, &fakeCompletion{out: &services.CompletionOutcome{
		Completed: true, BadgeErr: errors.New("policy"),
	}}, nil, nil))
	rec = send(done, http.MethodPost, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("completed: want=200 got=%d", rec.Code)
	}
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["badgePending"] != true || body["badgeAwarded"] != false {
		t.Fatalf("completed body: got=%v", body)
	}

	if rec := send(done, http.MethodPost, "/courses/not-a-uuid/completion", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", rec.Code)
	}
}

func TestGetProgressNotComputable(t *testing.T) {
	course := uuid.New()
	h := NewCourseHandler(&fakeProgress{out: &services.CourseProgress{CourseID: course}}, nil, nil, nil)
	rec := send(courseRouter(h), http.MethodGet, "/courses/"+course.String()+"/progress", nil)
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "not_computable" {
		t.Fatalf("not computable: code=%d body=%s", rec.Code, rec.Body.String())
	}

	h = NewCourseHandler(&fakeProgress{out: &services.CourseProgress{CourseID: course, TotalLessons: 2, Computable: true}}, nil, nil, nil)
	if rec := send(courseRouter(h), http.MethodGet, "/courses/"+course.String()+"/progress", nil); rec.Code != http.StatusOK {
		t.Fatalf("computable: want=200 got=%d", rec.Code)
	}
}

func TestReconcileHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &fakeRunner{}
	r := gin.New()
	r.POST("/reconcile", NewAdminHandler(nil, nil, runner).Reconcile)

	user := uuid.New()
	rec := send(r, http.MethodPost, "/reconcile", gin.H{"userId": user, "dryRun": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if runner.got.UserID == nil || *runner.got.UserID != user || !runner.got.DryRun {
		t.Fatalf("options: got=%+v", runner.got)
	}

	runner.err = reconcile.ErrSkipped
	if rec := send(r, http.MethodPost, "/reconcile", nil); rec.Code != http.StatusConflict {
		t.Fatalf("lock held: want=409 got=%d", rec.Code)
	}

	off := gin.New()
	off.POST("/reconcile", NewAdminHandler(nil, nil, nil).Reconcile)
	if rec := send(off, http.MethodPost, "/reconcile", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no runner: want=503 got=%d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", NewHealthHandler(nil).HealthCheck)
	r.GET("/down", NewHealthHandler(map[string]Pinger{
		"postgres": func(context.Context) error { return errors.New("refused") },
	}).HealthCheck)

	if rec := send(r, http.MethodGet, "/ok", nil); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("ok: code=%d body=%q", rec.Code, rec.Body.String())
	}
	if rec := send(r, http.MethodGet, "/down", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("down: want=503 got=%d", rec.Code)
	}
}
