package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"support_chat/internal/domain"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type ChatRoomRepository interface {
	Create(ctx context.Context, room *domain.ChatRoom) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error)
	// GetForUpdate блокирует строку комнаты до конца транзакции
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error)
	// Update сохраняет комнату, если в хранилище версия room.Version-1
	Update(ctx context.Context, room *domain.ChatRoom) error
	ExistsOpenForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error)
	ListWaiting(ctx context.Context, limit int) ([]*domain.ChatRoom, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, page domain.Page) ([]*domain.ChatRoom, int64, error)
	ListByAdmin(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*domain.ChatRoom, error)
	CountByStatus(ctx context.Context) (map[domain.ChatStatus]int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
}

type chatRoomRepository struct {
	db  DBTX
	log logger.Logger
}

func NewChatRoomRepository(db DBTX, log logger.Logger) ChatRoomRepository {
	return &chatRoomRepository{db: db, log: log}
}

const chatRoomColumns = `id, customer_id, admin_id, status, created_at, updated_at, closed_at, version`

func scanChatRoom(row pgx.Row) (*domain.ChatRoom, error) {
	room := &domain.ChatRoom{}
	err := row.Scan(
		&room.ID, &room.CustomerID, &room.AdminID, &room.Status,
		&room.CreatedAt, &room.UpdatedAt, &room.ClosedAt, &room.Version,
	)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *chatRoomRepository) Create(ctx context.Context, room *domain.ChatRoom) error {
	query := `
		INSERT INTO chat_rooms (id, customer_id, admin_id, status, created_at, updated_at, closed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		room.ID, room.CustomerID, room.AdminID, room.Status,
		room.CreatedAt, room.UpdatedAt, room.ClosedAt, room.Version,
	)
	if err != nil {
		mapped := mapPgError(err)
		if errors.Is(mapped, errors.ErrConflict) {
			r.log.Warn("Customer already has an open chat room", "customer_id", room.CustomerID)
			return mapped
		}
		r.log.Error("Failed to create chat room", "error", err)
		return err
	}

	return nil
}

func (r *chatRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	query := `SELECT ` + chatRoomColumns + ` FROM chat_rooms WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *chatRoomRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	query := `SELECT ` + chatRoomColumns + ` FROM chat_rooms WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *chatRoomRepository) getOne(ctx context.Context, query string, id uuid.UUID) (*domain.ChatRoom, error) {
	room, err := scanChatRoom(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrRoomNotFound
		}
		r.log.Error("Failed to get chat room", "error", err, "room_id", id)
		return nil, err
	}
	return room, nil
}

func (r *chatRoomRepository) Update(ctx context.Context, room *domain.ChatRoom) error {
	query := `
		UPDATE chat_rooms
		SET admin_id = $2, status = $3, updated_at = $4, closed_at = $5, version = $6
		WHERE id = $1 AND version = $7
	`

	tag, err := r.db.Exec(ctx, query,
		room.ID, room.AdminID, room.Status, room.UpdatedAt, room.ClosedAt, room.Version, room.Version-1,
	)
	if err != nil {
		r.log.Error("Failed to update chat room", "error", err, "room_id", room.ID)
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		r.log.Warn("Chat room version mismatch", "room_id", room.ID, "version", room.Version)
		return fmt.Errorf("%w: chat room was modified concurrently", errors.ErrConflict)
	}

	return nil
}

func (r *chatRoomRepository) ExistsOpenForCustomer(ctx context.Context, customerID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM chat_rooms
			WHERE customer_id = $1 AND status IN ('WAITING', 'ACTIVE')
		)
	`

	var exists bool
	if err := r.db.QueryRow(ctx, query, customerID).Scan(&exists); err != nil {
		r.log.Error("Failed to check open chat room", "error", err)
		return false, err
	}
	return exists, nil
}

func (r *chatRoomRepository) ListWaiting(ctx context.Context, limit int) ([]*domain.ChatRoom, error) {
	query := `
		SELECT ` + chatRoomColumns + `
		FROM chat_rooms
		WHERE status = 'WAITING'
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	return r.list(ctx, query, limit)
}

func (r *chatRoomRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, page domain.Page) ([]*domain.ChatRoom, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_rooms WHERE customer_id = $1`, customerID).Scan(&total); err != nil {
		r.log.Error("Failed to count customer chat rooms", "error", err)
		return nil, 0, err
	}

	query := `
		SELECT ` + chatRoomColumns + `
		FROM chat_rooms
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rooms, err := r.list(ctx, query, customerID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

func (r *chatRoomRepository) ListByAdmin(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*domain.ChatRoom, error) {
	if status == nil {
		query := `
			SELECT ` + chatRoomColumns + `
			FROM chat_rooms
			WHERE admin_id = $1
			ORDER BY updated_at DESC
		`
		return r.list(ctx, query, adminID)
	}

	query := `
		SELECT ` + chatRoomColumns + `
		FROM chat_rooms
		WHERE admin_id = $1 AND status = $2
		ORDER BY updated_at DESC
	`
	return r.list(ctx, query, adminID, *status)
}

func (r *chatRoomRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ChatRoom, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list chat rooms", "error", err)
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.ChatRoom
	for rows.Next() {
		room, err := scanChatRoom(rows)
		if err != nil {
			r.log.Error("Failed to scan chat room", "error", err)
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate chat rooms", "error", err)
		return nil, err
	}

	return rooms, nil
}

func (r *chatRoomRepository) CountByStatus(ctx context.Context) (map[domain.ChatStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM chat_rooms GROUP BY status`)
	if err != nil {
		r.log.Error("Failed to count chat rooms by status", "error", err)
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.ChatStatus]int64{
		domain.ChatStatusWaiting: 0,
		domain.ChatStatusActive:  0,
		domain.ChatStatusClosed:  0,
	}
	for rows.Next() {
		var status domain.ChatStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			r.log.Error("Failed to scan chat room stats", "error", err)
			return nil, err
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

func (r *chatRoomRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_rooms WHERE created_at >= $1`, since).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count chat rooms created since", "error", err)
		return 0, err
	}
	return count, nil
}
