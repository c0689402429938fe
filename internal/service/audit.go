package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

type AuditService interface {
	LogEvent(ctx context.Context, actorUserID *uuid.UUID, actorRole string, roomID *uuid.UUID, eventType string, payload map[string]interface{}) error
	ListRoomEvents(ctx context.Context, roomID uuid.UUID) ([]*domain.AuditLog, error)
	// WithTx возвращает сервис, пишущий в переданную единицу работы
	WithTx(tx repository.Store) AuditService
}

type auditService struct {
	store repository.Store
	log   logger.Logger
}

func NewAuditService(store repository.Store, log logger.Logger) AuditService {
	return &auditService{
		store: store,
		log:   log,
	}
}

func (s *auditService) WithTx(tx repository.Store) AuditService {
	return &auditService{store: tx, log: s.log}
}

func (s *auditService) LogEvent(ctx context.Context, actorUserID *uuid.UUID, actorRole string, roomID *uuid.UUID, eventType string, payload map[string]interface{}) error {
	if payload == nil {
		payload = make(map[string]interface{})
	}

	auditLog := &domain.AuditLog{
		EventTime:   time.Now().UTC(),
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		RoomID:      roomID,
		EventType:   eventType,
		Payload:     payload,
	}

	return s.store.Audit().CreateLog(ctx, auditLog)
}

func (s *auditService) ListRoomEvents(ctx context.Context, roomID uuid.UUID) ([]*domain.AuditLog, error) {
	logs, err := s.store.Audit().ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []*domain.AuditLog{}
	}
	return logs, nil
}
