package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bloodlink-api/pkg/logger"
)

// ErrorHandler logs the errors handlers attached with c.Error. The response
// itself has already been written by httputil.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			log.Error(e.Err, "Request error",
				"request_id", c.GetString(ContextRequestID),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
				"client_ip", c.ClientIP(),
			)
		}
	}
}
