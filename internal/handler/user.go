package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

// UserHandler отдает профиль из хранилища пользователей. Изменение профиля - в сервисе идентификации.
type UserHandler struct {
	userRepo repository.UserRepository
	log      logger.Logger
}

func NewUserHandler(userRepo repository.UserRepository, log logger.Logger) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
		log:      log,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
