package delivery

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"support_chat/internal/domain"
)

const (
	// TopicAdmin - новые комнаты в очереди ожидания, для всех администраторов
	TopicAdmin = "broadcast:admin"
	// TopicSystem - системные объявления для всех подключенных пользователей
	TopicSystem = "broadcast:system"

	roomTopicPrefix = "room:"
	userTopicPrefix = "user:"
)

func RoomTopic(roomID uuid.UUID) string {
	return roomTopicPrefix + roomID.String()
}

func UserTopic(userID uuid.UUID) string {
	return userTopicPrefix + userID.String()
}

// RoomIDFromTopic разбирает топик комнаты
func RoomIDFromTopic(topic string) (uuid.UUID, bool) {
	if !strings.HasPrefix(topic, roomTopicPrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(topic, roomTopicPrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Channel - доставка push-событий подписчикам. Методы не блокируются и не возвращают ошибок:
// доставка не более одного раза, потери логируются.
type Channel interface {
	PublishToRoom(ctx context.Context, roomID uuid.UUID, event domain.Event)
	PublishToUser(ctx context.Context, userID uuid.UUID, event domain.Event)
	Broadcast(ctx context.Context, topic string, event domain.Event)
}

// Publisher - транспорт, который отправляет событие в топик
type Publisher interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
}
