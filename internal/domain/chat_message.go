package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeFile   MessageType = "FILE"
	MessageTypeSystem MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}

// ChatMessage - сообщение комнаты. Порядок: SentAt, затем ID.
// После создания меняется только ReadByRecipient (false -> true).
type ChatMessage struct {
	ID              int64       `json:"id"`
	RoomID          uuid.UUID   `json:"room_id"`
	SenderID        *uuid.UUID  `json:"sender_id,omitempty"`
	Content         string      `json:"content"`
	MessageType     MessageType `json:"message_type"`
	SentAt          time.Time   `json:"sent_at"`
	ReadByRecipient bool        `json:"read_by_recipient"`
}

func (m *ChatMessage) IsSystem() bool {
	return m.MessageType == MessageTypeSystem
}

func (m *ChatMessage) IsFrom(userID uuid.UUID) bool {
	return m.SenderID != nil && *m.SenderID == userID
}

// CountsAsUnreadFor - сообщение собеседника, которое пользователь еще не прочитал.
// Системные сообщения в подсчет не входят.
func (m *ChatMessage) CountsAsUnreadFor(userID uuid.UUID) bool {
	return !m.IsSystem() && !m.IsFrom(userID) && !m.ReadByRecipient
}

func (m *ChatMessage) Clone() *ChatMessage {
	c := *m
	if m.SenderID != nil {
		id := *m.SenderID
		c.SenderID = &id
	}
	return &c
}

// MessageOrder - направление сортировки истории
type MessageOrder int

const (
	OrderAscending MessageOrder = iota
	OrderDescending
)
