package handler

import (
	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/repository"
	"support_chat/internal/service"
	"support_chat/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	User         *UserHandler
	Chat         *ChatHandler
	Notification *NotificationHandler
	Stats        *StatsHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	repos *repository.Repositories,
	hub *delivery.Hub,
	checks map[string]HealthCheck,
	cfg *config.Config,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(checks),
		User:         NewUserHandler(repos.Store.Users(), log),
		Chat:         NewChatHandler(services.Chat, log),
		Notification: NewNotificationHandler(services.Notification, log),
		Stats:        NewStatsHandler(services.Chat, services.Audit, log),
		WebSocket:    NewWebSocketHandler(hub, services.Chat, cfg, log),
	}
}
