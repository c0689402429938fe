package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"support_chat/internal/metrics"
	"support_chat/internal/service"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit ограничивает число запросов в минуту на пользователя (или IP до аутентификации).
// endpoint - имя лимита в ключе и в метриках.
func (m *RateLimitMiddleware) Limit(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}

		subject := c.ClientIP()
		if id, ok := UserID(c); ok {
			subject = id.String()
		}
		key := fmt.Sprintf("%s:%s", endpoint, subject)

		allowed, err := m.rateLimitService.Allow(c.Request.Context(), key, limit, time.Minute)
		if err != nil {
			// Недоступный redis не должен останавливать чат
			m.log.Error("Rate limit check failed", "error", err, "key", key)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if !allowed {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			c.Header("X-RateLimit-Remaining", "0")
			abortWithError(c, errors.ErrRateLimited)
			return
		}

		c.Next()
	}
}
