package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"support_chat/internal/service"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	log                 logger.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		log:                 log,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		fail(c, err)
		return
	}

	notifications, err := h.notificationService.List(c.Request.Context(), userID, page.Normalize(20, 100))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(notifications))
}

func (h *NotificationHandler) ListUnread(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	notifications, err := h.notificationService.ListUnread(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	notificationID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	notification, err := h.notificationService.MarkRead(c.Request.Context(), notificationID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	marked, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	notificationID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	if err := h.notificationService.Delete(c.Request.Context(), notificationID, userID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type SystemNoticeRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"max=2000"`
}

func (h *NotificationHandler) BroadcastSystemNotice(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	var req SystemNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errors.ErrBadRequest, err))
		return
	}

	persisted, err := h.notificationService.BroadcastSystemNotice(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"persisted": persisted})
}
