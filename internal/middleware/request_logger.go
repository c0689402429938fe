package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"support_chat/pkg/logger"
)

func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}

		statusCode := c.Writer.Status()
		keyvals := []interface{}{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", statusCode,
			"latency", time.Since(start),
		}

		switch {
		case statusCode >= 500:
			log.Error("HTTP request", keyvals...)
		case statusCode >= 400:
			log.Warn("HTTP request", keyvals...)
		default:
			log.Info("HTTP request", keyvals...)
		}
	}
}
