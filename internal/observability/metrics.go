package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/learnhub-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge
	rateLimited *prometheus.CounterVec

	writeOps       *prometheus.CounterVec
	writeLatency   *prometheus.HistogramVec
	writeConflicts *prometheus.CounterVec
	writeRetries   *prometheus.CounterVec

	lessonUpdates      *prometheus.CounterVec
	courseCompletions  prometheus.Counter
	badgesCreated      *prometheus.CounterVec
	badgesAwarded      *prometheus.CounterVec
	badgeIssueFailures *prometheus.CounterVec

	sweepRuns     *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	sweepRepaired *prometheus.CounterVec

	redisUp prometheus.Gauge

	dbMu      sync.Mutex
	dbHandles map[string]bool
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("METRICS_ENABLED"))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS")))
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init returns the process-wide metrics, or nil when METRICS_ENABLED is off.
// Every method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

// New builds a metrics set on its own registry, so tests never share series.
func New() *Metrics {
	latency := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_api_requests_total", Help: "API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "lh_api_request_duration_seconds", Help: "API latency by method/route/status.", Buckets: latency,
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lh_api_inflight_requests", Help: "In-flight API requests.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_api_rate_limited_total", Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),

		writeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_write_operations_total", Help: "Policy-guarded writes by operation/outcome.",
		}, []string{"op", "status"}),
		writeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "lh_write_duration_seconds", Help: "Policy-guarded write latency.", Buckets: latency,
		}, []string{"op", "status"}),
		writeConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_write_conflicts_total", Help: "Writes that hit a uniqueness conflict.",
		}, []string{"op"}),
		writeRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_write_privileged_retries_total", Help: "Writes retried on the privileged handle.",
		}, []string{"op"}),

		lessonUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_lesson_progress_updates_total", Help: "Lesson progress upserts by outcome.",
		}, []string{"status"}),
		courseCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lh_course_completions_total", Help: "Enrollments transitioned to completed.",
		}),
		badgesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_course_badges_created_total", Help: "Course badge definitions created.",
		}, []string{"source"}),
		badgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_user_badges_awarded_total", Help: "User badges awarded.",
		}, []string{"source"}),
		badgeIssueFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_badge_issue_failures_total", Help: "Badge issuance failures by step.",
		}, []string{"step"}),

		sweepRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_reconcile_runs_total", Help: "Reconciliation sweeps by outcome.",
		}, []string{"status"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "lh_reconcile_duration_seconds", Help: "Reconciliation sweep duration.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		sweepRepaired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lh_reconcile_repaired_total", Help: "Rows repaired by reconciliation.",
		}, []string{"kind"}),

		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lh_redis_up", Help: "1 when the last redis ping succeeded.",
		}),

		dbHandles: map[string]bool{},
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight, m.rateLimited,
		m.writeOps, m.writeLatency, m.writeConflicts, m.writeRetries,
		m.lessonUpdates, m.courseCompletions, m.badgesCreated, m.badgesAwarded, m.badgeIssueFailures,
		m.sweepRuns, m.sweepDuration, m.sweepRepaired,
		m.redisUp,
	)
	return m
}

// Registry exposes the underlying registry for extra collectors and tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && log != nil {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) IncRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.writeOps.WithLabelValues(op, status).Inc()
	m.writeLatency.WithLabelValues(op, status).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.writeConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.writeRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) IncLessonUpdate(status string) {
	if m == nil {
		return
	}
	m.lessonUpdates.WithLabelValues(status).Inc()
}

func (m *Metrics) IncCourseCompletion() {
	if m == nil {
		return
	}
	m.courseCompletions.Inc()
}

func (m *Metrics) IncBadgeCreated(source string) {
	if m == nil {
		return
	}
	m.badgesCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) IncBadgeAwarded(source string) {
	if m == nil {
		return
	}
	m.badgesAwarded.WithLabelValues(source).Inc()
}

func (m *Metrics) IncBadgeIssueFailure(step string) {
	if m == nil {
		return
	}
	m.badgeIssueFailures.WithLabelValues(step).Inc()
}

// ObserveSweep records one reconciliation run.
func (m *Metrics) ObserveSweep(status string, dur time.Duration, created, awarded int) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(status).Inc()
	m.sweepDuration.Observe(dur.Seconds())
	m.sweepRepaired.WithLabelValues("course_badge").Add(float64(created))
	m.sweepRepaired.WithLabelValues("user_badge").Add(float64(awarded))
}
