package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockflow/pkg/logger"
)

// Logger middleware puts log into the request context and logs each request
// with timing and status. Must run after Trace so entries carry the request id.
func Logger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithContext(c.Request.Context())
		kv := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", path,
			"query", query,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			kv = append(kv, "error", errs)
		}

		switch {
		case status >= 500:
			entry.Errorw("http request", kv...)
		case status >= 400:
			entry.Warnw("http request", kv...)
		default:
			entry.Infow("http request", kv...)
		}
	}
}
