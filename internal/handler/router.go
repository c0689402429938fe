package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"support_chat/internal/config"
	"support_chat/internal/domain"
	"support_chat/internal/middleware"
	"support_chat/pkg/logger"
)

func NewRouter(
	handlers *Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler(log))

	router.GET("/health", handlers.Health.Check)
	router.GET("/health/ready", handlers.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAdmin := authMiddleware.RequireRole(domain.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(authMiddleware.RequireAuth())
	v1.Use(rateLimitMiddleware.Limit("requests", cfg.RateLimit.RequestsPerMinute))
	{
		v1.GET("/users/me", handlers.User.GetMe)

		chat := v1.Group("/chat")
		{
			chat.GET("/stats", requireAdmin, handlers.Stats.GetChatStats)

			rooms := chat.Group("/rooms")
			{
				rooms.POST("", handlers.Chat.CreateRoom)
				rooms.GET("/waiting", requireAdmin, handlers.Chat.ListWaiting)
				rooms.GET("/customer", handlers.Chat.ListCustomerRooms)
				rooms.GET("/admin", requireAdmin, handlers.Chat.ListAdminRooms)
				rooms.GET("/:id", handlers.Chat.GetRoom)
				rooms.POST("/:id/assign", requireAdmin, handlers.Chat.AssignAdmin)
				rooms.POST("/:id/messages",
					rateLimitMiddleware.Limit("messages", cfg.RateLimit.MessagesPerMinute),
					handlers.Chat.SendMessage)
				rooms.GET("/:id/messages", handlers.Chat.GetMessages)
				rooms.GET("/:id/history", handlers.Chat.GetHistory)
				rooms.GET("/:id/unread-count", handlers.Chat.UnreadCount)
				rooms.POST("/:id/read", handlers.Chat.MarkRead)
				rooms.POST("/:id/close", handlers.Chat.CloseRoom)
				rooms.GET("/:id/audit", requireAdmin, handlers.Stats.GetRoomAudit)
			}
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", handlers.Notification.List)
			notifications.GET("/unread", handlers.Notification.ListUnread)
			notifications.GET("/unread-count", handlers.Notification.UnreadCount)
			notifications.POST("/read-all", handlers.Notification.MarkAllRead)
			notifications.POST("/system", requireAdmin, handlers.Notification.BroadcastSystemNotice)
			notifications.POST("/:id/read", handlers.Notification.MarkRead)
			notifications.DELETE("/:id", handlers.Notification.Delete)
		}
	}

	// Токен передается в ?token=
	router.GET("/ws", authMiddleware.RequireAuth(), handlers.WebSocket.Handle)

	return router
}
