package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

// StatsHandler - сводка и журнал аудита для администраторов
type StatsHandler struct {
	chatService  service.ChatService
	auditService service.AuditService
	log          logger.Logger
}

func NewStatsHandler(chatService service.ChatService, auditService service.AuditService, log logger.Logger) *StatsHandler {
	return &StatsHandler{
		chatService:  chatService,
		auditService: auditService,
		log:          log,
	}
}

func (h *StatsHandler) GetChatStats(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		fail(c, err)
		return
	}

	stats, err := h.chatService.Stats(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *StatsHandler) GetRoomAudit(c *gin.Context) {
	roomID, err := uuidParam(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	events, err := h.auditService.ListRoomEvents(c.Request.Context(), roomID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, events)
}
