package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/pkg/errors"
)

// Ошибки пишутся через c.Error, ответ формирует middleware.ErrorHandler
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errors.ErrBadRequest, name)
	}
	return id, nil
}

func currentUser(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: user not authenticated", errors.ErrUnauthorized)
	}
	return id, nil
}

// pageQuery читает ?page=&size=; нормализацию делает сервис
func pageQuery(c *gin.Context) (domain.Page, error) {
	var page domain.Page
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return page, fmt.Errorf("%w: invalid page", errors.ErrBadRequest)
		}
		page.Number = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return page, fmt.Errorf("%w: invalid size", errors.ErrBadRequest)
		}
		page.Size = n
	}
	return page, nil
}

// pageResponse - формат страницы с числом страниц
func pageResponse[T any](r domain.PageResult[T]) gin.H {
	return gin.H{
		"content":        r.Items,
		"page":           r.Number,
		"size":           r.Size,
		"total_elements": r.Total,
		"total_pages":    r.TotalPages(),
	}
}
