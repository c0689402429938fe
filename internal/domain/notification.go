package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationCommentOnPost  NotificationType = "COMMENT_ON_POST"
	NotificationReplyToComment NotificationType = "REPLY_TO_COMMENT"
	NotificationChatMessage    NotificationType = "CHAT_MESSAGE"
	NotificationSystemNotice   NotificationType = "SYSTEM_NOTICE"
	NotificationAccountUpdate  NotificationType = "ACCOUNT_UPDATE"
)

var notificationTypeInfo = map[NotificationType]struct{ displayName, description string }{
	NotificationCommentOnPost:  {"Comment", "Someone commented on your post"},
	NotificationReplyToComment: {"Reply", "Someone replied to your comment"},
	NotificationChatMessage:    {"Chat message", "You have a new support chat message"},
	NotificationSystemNotice:   {"System notice", "System announcement"},
	NotificationAccountUpdate:  {"Account update", "Your account information was updated"},
}

func NotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationCommentOnPost,
		NotificationReplyToComment,
		NotificationChatMessage,
		NotificationSystemNotice,
		NotificationAccountUpdate,
	}
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypeInfo[t]
	return ok
}

func (t NotificationType) DisplayName() string {
	return notificationTypeInfo[t].displayName
}

func (t NotificationType) Description() string {
	return notificationTypeInfo[t].description
}

// Notification хранит денормализованные данные (имя автора, id связанной сущности),
// поэтому переживает удаление того, что ее вызвало.
type Notification struct {
	ID              uuid.UUID        `json:"id"`
	RecipientID     uuid.UUID        `json:"recipient_id"`
	Title           string           `json:"title"`
	Content         string           `json:"content"`
	Type            NotificationType `json:"type"`
	RelatedEntityID *string          `json:"related_entity_id,omitempty"`
	ActorName       *string          `json:"actor_name,omitempty"`
	Read            bool             `json:"read"`
	CreatedAt       time.Time        `json:"created_at"`
	ReadAt          *time.Time       `json:"read_at,omitempty"`
}

func (n *Notification) MarkRead(now time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	t := now
	n.ReadAt = &t
	return true
}

func (n *Notification) Clone() *Notification {
	c := *n
	if n.RelatedEntityID != nil {
		v := *n.RelatedEntityID
		c.RelatedEntityID = &v
	}
	if n.ActorName != nil {
		v := *n.ActorName
		c.ActorName = &v
	}
	if n.ReadAt != nil {
		v := *n.ReadAt
		c.ReadAt = &v
	}
	return &c
}
