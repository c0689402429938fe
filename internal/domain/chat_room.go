package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatStatus string

const (
	ChatStatusWaiting ChatStatus = "WAITING"
	ChatStatusActive  ChatStatus = "ACTIVE"
	ChatStatusClosed  ChatStatus = "CLOSED"
)

// OpenChatStatuses - статусы, при которых клиент не может открыть новую комнату
var OpenChatStatuses = []ChatStatus{ChatStatusWaiting, ChatStatusActive}

func (s ChatStatus) Valid() bool {
	switch s {
	case ChatStatusWaiting, ChatStatusActive, ChatStatusClosed:
		return true
	}
	return false
}

func (s ChatStatus) IsOpen() bool {
	return s == ChatStatusWaiting || s == ChatStatusActive
}

// ChatRoom - сессия поддержки: один клиент, не больше одного администратора.
// ClosedAt задан тогда и только тогда, когда Status == CLOSED.
type ChatRoom struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	AdminID    *uuid.UUID `json:"admin_id,omitempty"`
	Status     ChatStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	Version    int64      `json:"version"`
}

func NewChatRoom(customerID uuid.UUID, now time.Time) *ChatRoom {
	return &ChatRoom{
		ID:         uuid.New(),
		CustomerID: customerID,
		Status:     ChatStatusWaiting,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (r *ChatRoom) IsWaiting() bool { return r.Status == ChatStatusWaiting }
func (r *ChatRoom) IsActive() bool  { return r.Status == ChatStatusActive }
func (r *ChatRoom) IsClosed() bool  { return r.Status == ChatStatusClosed }

func (r *ChatRoom) IsCustomer(userID uuid.UUID) bool {
	return r.CustomerID == userID
}

func (r *ChatRoom) IsAdmin(userID uuid.UUID) bool {
	return r.AdminID != nil && *r.AdminID == userID
}

// HasAccess - участник комнаты: клиент или назначенный администратор
func (r *ChatRoom) HasAccess(userID uuid.UUID) bool {
	return r.IsCustomer(userID) || r.IsAdmin(userID)
}

// CounterpartOf возвращает второго участника. ok=false, если его нет (комната еще ждет администратора)
// или userID не участник.
func (r *ChatRoom) CounterpartOf(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case r.IsCustomer(userID):
		if r.AdminID == nil {
			return uuid.Nil, false
		}
		return *r.AdminID, true
	case r.IsAdmin(userID):
		return r.CustomerID, true
	default:
		return uuid.Nil, false
	}
}

// AssignAdmin переводит комнату в ACTIVE. changed=false, если этот администратор уже назначен.
func (r *ChatRoom) AssignAdmin(adminID uuid.UUID, now time.Time) (changed bool, err error) {
	if r.IsClosed() {
		return false, ErrRoomClosed
	}
	if r.IsActive() && r.IsAdmin(adminID) {
		return false, nil
	}
	id := adminID
	r.AdminID = &id
	r.Status = ChatStatusActive
	r.UpdatedAt = now
	r.Version++
	return true, nil
}

// Close переводит комнату в CLOSED. Повторное закрытие ничего не меняет.
func (r *ChatRoom) Close(now time.Time) (changed bool) {
	if r.IsClosed() {
		return false
	}
	closedAt := now
	r.Status = ChatStatusClosed
	r.ClosedAt = &closedAt
	r.UpdatedAt = now
	r.Version++
	return true
}

func (r *ChatRoom) Clone() *ChatRoom {
	if r == nil {
		return nil
	}
	c := *r
	if r.AdminID != nil {
		id := *r.AdminID
		c.AdminID = &id
	}
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}
