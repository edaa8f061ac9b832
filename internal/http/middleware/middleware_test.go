package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/learnhub-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/services"
)

func newAuthRouter(t *testing.T) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	auth := services.NewAuthService(logger.NewNop(), "secret", "")
	am := NewAuthMiddleware(logger.NewNop(), auth)
	r := gin.New()
	g := r.Group("/", am.RequireAuth())
	g.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetRequestData(c.Request.Context()).UserID.String())
	})
	g.GET("/admin", am.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, auth
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth(t *testing.T) {
	r, auth := newAuthRouter(t)
	user := uuid.New()
	tok, err := auth.IssueAccessToken(user, "", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if rec := do(r, http.MethodGet, "/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
	if rec := do(r, http.MethodGet, "/me", "garbage.token.value"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: want=%d got=%d", http.StatusUnauthorized, rec.Code)
	}
	rec := do(r, http.MethodGet, "/me", tok)
	if rec.Code != http.StatusOK || rec.Body.String() != user.String() {
		t.Fatalf("valid token: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	r, auth := newAuthRouter(t)
	learner, _ := auth.IssueAccessToken(uuid.New(), "learner", time.Minute)
	admin, _ := auth.IssueAccessToken(uuid.New(), "admin", time.Minute)

	if rec := do(r, http.MethodGet, "/admin", learner); rec.Code != http.StatusForbidden {
		t.Fatalf("learner: want=%d got=%d", http.StatusForbidden, rec.Code)
	}
	if rec := do(r, http.MethodGet, "/admin", admin); rec.Code != http.StatusNoContent {
		t.Fatalf("admin: want=%d got=%d", http.StatusNoContent, rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://learn.example.com"}))
	r.OPTIONS("/api/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodOptions, "/api/x", nil)
	req.Header.Set("Origin", "https://learn.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusNoContent)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://learn.example.com" {
		t.Fatalf("unexpected allow-origin header: got=%q", got)
	}
}

type fakeCounter struct {
	mu   sync.Mutex
	hits map[string]int64
	err  error
}

func (f *fakeCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hits == nil {
		f.hits = map[string]int64{}
	}
	f.hits[key]++
	return f.hits[key], window / 2, nil
}

func rateLimitedRouter(counter WindowCounter, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{UserID: userID}))
		c.Next()
	})
	r.POST("/update", RateLimit(logger.NewNop(), counter, nil, 2, time.Minute), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	r := rateLimitedRouter(&fakeCounter{}, uuid.New())
	for i := 0; i < 2; i++ {
		if rec := do(r, http.MethodPost, "/update", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: want=200 got=%d", i+1, rec.Code)
		}
	}
	rec := do(r, http.MethodPost, "/update", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: want=%d got=%d", http.StatusTooManyRequests, rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("Retry-After: want=30 got=%q", got)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := rateLimitedRouter(&fakeCounter{err: errors.New("redis down")}, uuid.New())
	for i := 0; i < 5; i++ {
		if rec := do(r, http.MethodPost, "/update", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: want=200 got=%d", i+1, rec.Code)
		}
	}
}

func TestAttachTraceContextEchoesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	var seen *ctxutil.TraceData
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("X-Request-Id: want=req-123 got=%q", got)
	}
	if seen == nil || seen.RequestID != "req-123" || seen.TraceID == "" {
		t.Fatalf("trace data: got=%+v", seen)
	}
}
