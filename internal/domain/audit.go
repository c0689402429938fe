package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog - журнал переходов состояния комнат и служебных рассылок
type AuditLog struct {
	ID          int64                  `json:"id"`
	EventTime   time.Time              `json:"event_time"`
	ActorUserID *uuid.UUID             `json:"actor_user_id,omitempty"`
	ActorRole   string                 `json:"actor_role"`
	RoomID      *uuid.UUID             `json:"room_id,omitempty"`
	EventType   string                 `json:"event_type"`
	Payload     map[string]interface{} `json:"payload"`
}

const (
	ActorRoleCustomer = "customer"
	ActorRoleAdmin    = "admin"
	ActorRoleSystem   = "system"
)

const (
	EventTypeChatRoomCreated    = "CHAT_ROOM_CREATED"
	EventTypeAdminAssigned      = "CHAT_ADMIN_ASSIGNED"
	EventTypeAdminReassigned    = "CHAT_ADMIN_REASSIGNED"
	EventTypeChatRoomClosed     = "CHAT_ROOM_CLOSED"
	EventTypeSystemNoticeIssued = "SYSTEM_NOTICE_ISSUED"
)
