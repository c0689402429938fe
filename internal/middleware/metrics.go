package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"support_chat/internal/metrics"
)

// Metrics учитывает запросы по шаблону маршрута, чтобы id не раздували кардинальность
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
