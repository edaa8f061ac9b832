package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/learnhub-backend/internal/http/response"
	"github.com/yungbote/learnhub-backend/internal/observability"
	"github.com/yungbote/learnhub-backend/internal/platform/ctxutil"
	"github.com/yungbote/learnhub-backend/internal/platform/logger"
	"github.com/yungbote/learnhub-backend/internal/platform/redisx"
)

// WindowCounter is satisfied by *redisx.WindowCounter.
type WindowCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

var _ WindowCounter = (*redisx.WindowCounter)(nil)

// RateLimit caps authenticated callers to limit requests per window on the
// route it guards. A nil counter or non-positive limit disables it. Counter
// errors let the request through.
func RateLimit(log *logger.Logger, counter WindowCounter, m *observability.Metrics, limit int, window time.Duration) gin.HandlerFunc {
	if counter == nil || limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		key := fmt.Sprintf("%s:%s", route, rd.UserID)
		count, ttl, err := counter.Hit(c.Request.Context(), key, window)
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable", "route", route, "error", err)
			}
			c.Next()
			return
		}
		if count > int64(limit) {
			m.IncRateLimited(route)
			secs := int(ttl.Round(time.Second) / time.Second)
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			response.RespondError(c, http.StatusTooManyRequests, "rate_limited", errors.New("too many requests"))
			c.Abort()
			return
		}
		c.Next()
	}
}
