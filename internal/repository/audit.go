package repository

import (
	"context"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/pkg/logger"
)

type AuditRepository interface {
	CreateLog(ctx context.Context, log *domain.AuditLog) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.AuditLog, error)
}

type auditRepository struct {
	db  DBTX
	log logger.Logger
}

func NewAuditRepository(db DBTX, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateLog(ctx context.Context, auditLog *domain.AuditLog) error {
	query := `
		INSERT INTO audit_log (event_time, actor_user_id, actor_role, room_id, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		auditLog.EventTime, auditLog.ActorUserID, auditLog.ActorRole,
		auditLog.RoomID, auditLog.EventType, auditLog.Payload,
	).Scan(&auditLog.ID)

	if err != nil {
		r.log.Error("Failed to create audit log", "error", err)
		return err
	}

	return nil
}

func (r *auditRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, event_time, actor_user_id, actor_role, room_id, event_type, payload
		FROM audit_log
		WHERE room_id = $1
		ORDER BY event_time ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to list audit log", "error", err)
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		entry := &domain.AuditLog{}
		if err := rows.Scan(
			&entry.ID, &entry.EventTime, &entry.ActorUserID, &entry.ActorRole,
			&entry.RoomID, &entry.EventType, &entry.Payload,
		); err != nil {
			r.log.Error("Failed to scan audit log", "error", err)
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
