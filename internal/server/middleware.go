package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/factuur/pkg/log/ctxlogger"
	"github.com/smallbiznis/factuur/pkg/telemetry"
	"github.com/smallbiznis/factuur/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const headerSource = "X-Source-Shop"

// CorrelationMiddleware ensures every request context carries a correlation
// ID so log lines across the run can be joined.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := correlation.EnsureCorrelationID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogMiddleware logs each request and feeds the API metrics.
func RequestLogMiddleware(metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		took := time.Since(start)
		status := c.Writer.Status()
		source := c.GetHeader(headerSource)

		metrics.ObserveAPIRequest(c.Request.Method, strconv.Itoa(status), source, took)
		ctxlogger.FromContext(c.Request.Context()).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.String("source", source),
			zap.Duration("took", took),
		)
	}
}

// CompletionRateLimit throttles completion requests per source shop with the
// shared redis token bucket. A broken limiter fails open: completing an
// invoice matters more than throttling precision.
func (s *Server) CompletionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		result, err := s.limiter.Allow(c.Request.Context(), c.GetHeader(headerSource))
		if err != nil {
			s.log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
