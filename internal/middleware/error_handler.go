package middleware

import (
	"github.com/gin-gonic/gin"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// ErrorHandler превращает ошибки, добавленные через c.Error, в JSON ответ
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Проверяем есть ли ошибки
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		apiErr := errors.FromError(err)
		if apiErr.Code >= 500 {
			log.Error("Request failed", "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
		}

		c.JSON(apiErr.Code, apiErr)
	}
}

// Recovery отвечает 500 вместо обрыва соединения при панике обработчика
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Error("Panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		apiErr := errors.FromError(errors.ErrInternalServer)
		c.AbortWithStatusJSON(apiErr.Code, apiErr)
	})
}
