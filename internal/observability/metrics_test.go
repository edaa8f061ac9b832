package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.IncAggregateRetry("op")
	m.IncBadgeAwarded("request")
	m.ObserveSweep("ok", time.Second, 1, 2)
	m.StartPostgresCollector(t.Context(), nil, "primary", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler: want=503 got=%d", rec.Code)
	}
}

func TestCountersTrackDomainEvents(t *testing.T) {
	m := New()
	m.IncAggregateRetry("badge.award")
	m.IncAggregateRetry("badge.award")
	m.ObserveSweep("ok", 2*time.Second, 1, 3)
	m.IncCourseCompletion()

	if got := testutil.ToFloat64(m.writeRetries.WithLabelValues("badge.award")); got != 2 {
		t.Fatalf("retries: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.sweepRepaired.WithLabelValues("user_badge")); got != 3 {
		t.Fatalf("repaired user_badge: want=3 got=%v", got)
	}
	if got := testutil.ToFloat64(m.courseCompletions); got != 1 {
		t.Fatalf("completions: want=1 got=%v", got)
	}
	if got := testutil.CollectAndCount(m.sweepDuration); got != 1 {
		t.Fatalf("sweep duration series: want=1 got=%d", got)
	}
}

func TestHandlerExposesSeries(t *testing.T) {
	m := New()
	m.ObserveAPI("POST", "/api/lesson-progress/update", "200", 20*time.Millisecond)
	m.IncBadgeCreated("reconcile")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	out := rec.Body.String()
	for _, want := range []string{
		`lh_api_requests_total{method="POST",route="/api/lesson-progress/update",status="200"} 1`,
		`lh_api_request_duration_seconds_bucket{method="POST",route="/api/lesson-progress/update",status="200",le="0.025"} 1`,
		`lh_course_badges_created_total{source="reconcile"} 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing series %q in:\n%s", want, out)
		}
	}
}

func TestPostgresCollectorRegistersOncePerHandle(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	m := New()
	m.StartPostgresCollector(t.Context(), nil, "primary", db)
	m.StartPostgresCollector(t.Context(), nil, "primary", db)

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() != "go_sql_open_connections" {
			continue
		}
		found = true
		if n := len(f.GetMetric()); n != 1 {
			t.Fatalf("open connections series: want=1 got=%d", n)
		}
		if got := f.GetMetric()[0].GetLabel()[0].GetValue(); got != "primary" {
			t.Fatalf("db_name label: want=primary got=%s", got)
		}
	}
	if !found {
		t.Fatalf("go_sql_open_connections not registered")
	}
}
