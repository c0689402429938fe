package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/service"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type ChatHandler struct {
	chatService service.ChatService
	log         logger.Logger
}

func NewChatHandler(chatService service.ChatService, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		log:         log,
	}
}

func (h *ChatHandler) CreateRoom(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	room, err := h.chatService.CreateChatRoom(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *ChatHandler) GetRoom(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	room, err := h.chatService.GetRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *ChatHandler) ListWaiting(c *gin.Context) {
	rooms, err := h.chatService.ListWaitingRooms(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *ChatHandler) ListCustomerRooms(c *gin.Context) {
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

	rooms, err := h.chatService.ListCustomerRooms(c.Request.Context(), userID, page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(rooms))
}

func (h *ChatHandler) ListAdminRooms(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	var status *domain.ChatStatus
	if v := c.Query("status"); v != "" {
		s := domain.ChatStatus(v)
		if !s.Valid() {
			fail(c, fmt.Errorf("%w: unknown status %q", errors.ErrBadRequest, v))
			return
		}
		status = &s
	}

	rooms, err := h.chatService.ListAdminRooms(c.Request.Context(), userID, status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

type AssignAdminRequest struct {
	// AdminID не задан - администратор назначает себя
	AdminID *uuid.UUID `json:"admin_id"`
}

func (h *ChatHandler) AssignAdmin(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req AssignAdminRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, fmt.Errorf("%w: %v", errors.ErrBadRequest, err))
			return
		}
	}
	adminID := userID
	if req.AdminID != nil {
		adminID = *req.AdminID
	}

	room, err := h.chatService.AssignAdminToChatRoom(c.Request.Context(), roomID, adminID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

type SendMessageRequest struct {
	Content     string             `json:"content" binding:"required"`
	MessageType domain.MessageType `json:"message_type"`
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errors.ErrBadRequest, err))
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), roomID, userID, req.Content, req.MessageType)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	page, err := pageQuery(c)
	if err != nil {
		fail(c, err)
		return
	}

	messages, err := h.chatService.GetChatMessages(c.Request.Context(), roomID, userID, page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse(messages))
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	messages, err := h.chatService.GetChatHistory(c.Request.Context(), roomID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	count, err := h.chatService.GetUnreadMessageCount(c.Request.Context(), roomID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "unread_count": count})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	marked, err := h.chatService.MarkRead(c.Request.Context(), roomID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "marked": marked})
}

func (h *ChatHandler) CloseRoom(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	room, err := h.chatService.CloseChatRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
