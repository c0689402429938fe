package service

import (
	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

type Services struct {
	Chat         ChatService
	Notification NotificationService
	RateLimit    RateLimitService
	Audit        AuditService
	Cleanup      *CleanupJob
}

func NewServices(repos *repository.Repositories, channel delivery.Channel, cfg *config.Config, log logger.Logger) *Services {
	audit := NewAuditService(repos.Store, log)
	notifications := NewNotificationService(repos.Store, channel, audit, cfg.Notification.PersistBroadcast, log)
	registry := NewRoomRegistry(repos.Store, audit, log)
	messages := NewMessageLog(repos.Store, cfg.Chat.MaxMessageLength, log)

	services := &Services{
		Chat:         NewChatService(repos.Store, registry, messages, notifications, channel, cfg.Chat, log),
		Notification: notifications,
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
		Audit:        audit,
		Cleanup:      NewCleanupJob(notifications, cfg.Notification.Retention, cfg.Notification.CleanupInterval, log),
	}

	if cfg.Notification.PersistBroadcast {
		log.Info("System notices will be persisted per active user")
	}

	return services
}
