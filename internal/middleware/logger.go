package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/access-policy/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		l := log.WithContext(c.Request.Context()).ZL
		event := l.Info()
		msg := "Request processed"
		switch {
		case status >= 500:
			event = l.Error()
			msg = "Server error"
		case status >= 400:
			event = l.Warn()
			msg = "Client error"
		}

		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("user_agent", c.Request.UserAgent()).
			Msg(msg)
	}
}
