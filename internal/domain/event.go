package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType - тип push-события, доставляемого подписчикам
type EventType string

const (
	EventRoomCreated         EventType = "room.created"
	EventRoomAssigned        EventType = "room.assigned"
	EventRoomClosed          EventType = "room.closed"
	// EventRoomAccessRevoked - служебное событие топика комнаты: хаб отписывает пользователя
	// и клиентам его не пересылает
	EventRoomAccessRevoked   EventType = "room.access_revoked"
	EventMessageCreated      EventType = "message.created"
	EventMessagesRead        EventType = "messages.read"
	EventNotificationCreated EventType = "notification.created"
	EventSystemNotice        EventType = "notification.system"
)

// Event - конверт push-события. Payload сериализуется один раз при создании,
// чтобы все подписчики получали одинаковые байты.
type Event struct {
	Type    EventType       `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

func NewEvent(eventType EventType, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw, SentAt: time.Now().UTC()}, nil
}

// MessagesReadPayload - уведомление собеседника о прочтении
type MessagesReadPayload struct {
	RoomID   uuid.UUID `json:"room_id"`
	ReaderID uuid.UUID `json:"reader_id"`
	Count    int64     `json:"count"`
}

// RoomAccessRevokedPayload - пользователь больше не участник комнаты
type RoomAccessRevokedPayload struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id"`
}

// SystemNoticePayload - широковещательное объявление без персональной записи
type SystemNoticePayload struct {
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`
}
