package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// RoomRegistry владеет комнатами и их конечным автоматом.
// Изменяющие методы работают внутри единицы работы, переданной вызывающим.
type RoomRegistry interface {
	CreateRoom(ctx context.Context, tx repository.Store, customerID uuid.UUID) (*domain.ChatRoom, error)
	AssignAdmin(ctx context.Context, tx repository.Store, roomID, adminID uuid.UUID) (*AssignResult, error)
	CloseRoom(ctx context.Context, tx repository.Store, roomID, requesterID uuid.UUID) (*CloseResult, error)
	HasAccess(ctx context.Context, roomID, userID uuid.UUID) bool
	Get(ctx context.Context, roomID uuid.UUID) (*domain.ChatRoom, error)
	ListWaiting(ctx context.Context, limit int) ([]*domain.ChatRoom, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatRoom], error)
	ListByAdmin(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*domain.ChatRoom, error)
	CountByStatus(ctx context.Context) (map[domain.ChatStatus]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type AssignResult struct {
	Room *domain.ChatRoom
	// PreviousAdminID задан при переназначении на другого администратора
	PreviousAdminID *uuid.UUID
	Changed         bool
}

type CloseResult struct {
	Room           *domain.ChatRoom
	Changed        bool
	PreviousStatus domain.ChatStatus
}

type roomRegistry struct {
	store repository.Store
	audit AuditService
	now   func() time.Time
	log   logger.Logger
}

func NewRoomRegistry(store repository.Store, audit AuditService, log logger.Logger) RoomRegistry {
	return &roomRegistry{
		store: store,
		audit: audit,
		now:   utcNow,
		log:   log,
	}
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func (r *roomRegistry) CreateRoom(ctx context.Context, tx repository.Store, customerID uuid.UUID) (*domain.ChatRoom, error) {
	exists, err := tx.Rooms().ExistsOpenForCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("check open room: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: customer already has a waiting or active chat room", errors.ErrConflict)
	}

	room := domain.NewChatRoom(customerID, r.now())
	if err := tx.Rooms().Create(ctx, room); err != nil {
		return nil, err
	}

	if err := r.audit.WithTx(tx).LogEvent(ctx, &customerID, domain.ActorRoleCustomer, &room.ID,
		domain.EventTypeChatRoomCreated, nil); err != nil {
		return nil, err
	}

	return room, nil
}

func (r *roomRegistry) AssignAdmin(ctx context.Context, tx repository.Store, roomID, adminID uuid.UUID) (*AssignResult, error) {
	room, err := tx.Rooms().GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var previous *uuid.UUID
	if room.AdminID != nil && *room.AdminID != adminID {
		id := *room.AdminID
		previous = &id
	}

	changed, err := room.AssignAdmin(adminID, r.now())
	if err != nil {
		if errors.Is(err, domain.ErrRoomClosed) {
			return nil, fmt.Errorf("%w: cannot assign admin to a closed chat room", errors.ErrInvalidState)
		}
		return nil, err
	}
	if !changed {
		return &AssignResult{Room: room}, nil
	}

	if err := tx.Rooms().Update(ctx, room); err != nil {
		return nil, err
	}

	eventType := domain.EventTypeAdminAssigned
	payload := map[string]interface{}{"admin_id": adminID.String()}
	if previous != nil {
		eventType = domain.EventTypeAdminReassigned
		payload["previous_admin_id"] = previous.String()
	}
	if err := r.audit.WithTx(tx).LogEvent(ctx, &adminID, domain.ActorRoleAdmin, &room.ID, eventType, payload); err != nil {
		return nil, err
	}

	return &AssignResult{Room: room, PreviousAdminID: previous, Changed: true}, nil
}

func (r *roomRegistry) CloseRoom(ctx context.Context, tx repository.Store, roomID, requesterID uuid.UUID) (*CloseResult, error) {
	room, err := tx.Rooms().GetForUpdate(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasAccess(requesterID) {
		return nil, fmt.Errorf("close chat room: %w", errors.ErrAccessDenied)
	}

	previous := room.Status
	if !room.Close(r.now()) {
		return &CloseResult{Room: room, PreviousStatus: previous}, nil
	}

	if err := tx.Rooms().Update(ctx, room); err != nil {
		return nil, err
	}

	role := domain.ActorRoleCustomer
	if room.IsAdmin(requesterID) {
		role = domain.ActorRoleAdmin
	}
	payload := map[string]interface{}{"previous_status": string(previous)}
	if err := r.audit.WithTx(tx).LogEvent(ctx, &requesterID, role, &room.ID, domain.EventTypeChatRoomClosed, payload); err != nil {
		return nil, err
	}

	return &CloseResult{Room: room, Changed: true, PreviousStatus: previous}, nil
}

func (r *roomRegistry) HasAccess(ctx context.Context, roomID, userID uuid.UUID) bool {
	room, err := r.store.Rooms().GetByID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			r.log.Warn("Failed to check room access", "error", err, "room_id", roomID)
		}
		return false
	}
	return room.HasAccess(userID)
}

func (r *roomRegistry) Get(ctx context.Context, roomID uuid.UUID) (*domain.ChatRoom, error) {
	return r.store.Rooms().GetByID(ctx, roomID)
}

func (r *roomRegistry) ListWaiting(ctx context.Context, limit int) ([]*domain.ChatRoom, error) {
	rooms, err := r.store.Rooms().ListWaiting(ctx, limit)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*domain.ChatRoom{}
	}
	return rooms, nil
}

func (r *roomRegistry) ListByCustomer(ctx context.Context, customerID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatRoom], error) {
	rooms, total, err := r.store.Rooms().ListByCustomer(ctx, customerID, page)
	if err != nil {
		return domain.PageResult[*domain.ChatRoom]{}, err
	}
	return domain.NewPageResult(rooms, total, page), nil
}

func (r *roomRegistry) ListByAdmin(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*domain.ChatRoom, error) {
	return r.store.Rooms().ListByAdmin(ctx, adminID, status)
}

func (r *roomRegistry) CountByStatus(ctx context.Context) (map[domain.ChatStatus]int64, error) {
	return r.store.Rooms().CountByStatus(ctx)
}

func (r *roomRegistry) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.store.Rooms().CountCreatedSince(ctx, since)
}
