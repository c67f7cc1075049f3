package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	pkglogger "github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/metrics"
	"github.com/commentd/pkg/trace"
)

// RequestID tags each request with an id, taking the caller's X-Request-ID
// when present. The id rides the request context into services and queue
// payloads so a comment can be followed across process boundaries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(trace.HeaderName())
		if id == "" {
			id = trace.NewRequestID()
		}
		ctx := trace.WithContext(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName(), id)
		c.Next()
	}
}

// RequestLogger writes one line per request and records its latency.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(status), duration)
		pkglogger.WithRequest(c.Request.Context(), logger).Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		)
	}
}

// Recovery turns handler panics into a generic 500 instead of killing the
// connection.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				pkglogger.WithRequest(c.Request.Context(), logger).Error("handler panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", r),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
