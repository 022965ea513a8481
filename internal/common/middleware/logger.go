package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"lara-bot/internal/common/logger"
)

// Logger writes one line per request. Probe endpoints log at debug level.
func Logger(quiet ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(quiet))
	for _, p := range quiet {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		ev := logger.Info()
		if _, ok := skip[path]; ok && c.Writer.Status() < 500 {
			ev = logger.Debug()
		}
		if raw != "" {
			path = path + "?" + raw
		}
		ev.
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("body_size", c.Writer.Size()).
			Msg("Request processed")
	}
}
