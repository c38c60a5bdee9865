package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

// Logger logs one line per request; level follows the status class.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", c.GetString(ContextRequestID),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		switch {
		case status >= 500:
			err := errors.New("server error")
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			log.Error(err, "Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
