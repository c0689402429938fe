package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// MessageLog - упорядоченное хранилище сообщений комнаты и учет прочтения
type MessageLog interface {
	// Append вызывается внутри единицы работы, которая держит блокировку комнаты
	Append(ctx context.Context, tx repository.Store, room *domain.ChatRoom, senderID *uuid.UUID, content string, messageType domain.MessageType) (*domain.ChatMessage, error)
	History(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error)
	Page(ctx context.Context, roomID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatMessage], error)
	UnreadCount(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	LastMessage(ctx context.Context, roomID uuid.UUID) (*domain.ChatMessage, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountBySender(ctx context.Context, senderID uuid.UUID) (int64, error)
}

type messageLog struct {
	store            repository.Store
	maxMessageLength int
	now              func() time.Time
	log              logger.Logger
}

func NewMessageLog(store repository.Store, maxMessageLength int, log logger.Logger) MessageLog {
	return &messageLog{
		store:            store,
		maxMessageLength: maxMessageLength,
		now:              utcNow,
		log:              log,
	}
}

func (l *messageLog) validate(content string, messageType domain.MessageType) error {
	if !messageType.Valid() {
		return fmt.Errorf("%w: unknown message type %q", errors.ErrBadRequest, messageType)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: message content is empty", errors.ErrBadRequest)
	}
	if l.maxMessageLength > 0 && utf8.RuneCountInString(content) > l.maxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", errors.ErrBadRequest, l.maxMessageLength)
	}
	return nil
}

func (l *messageLog) Append(ctx context.Context, tx repository.Store, room *domain.ChatRoom, senderID *uuid.UUID, content string, messageType domain.MessageType) (*domain.ChatMessage, error) {
	if err := l.validate(content, messageType); err != nil {
		return nil, err
	}

	// Системные сообщения создает координатор при смене состояния
	if messageType != domain.MessageTypeSystem {
		if senderID == nil || !room.HasAccess(*senderID) {
			return nil, fmt.Errorf("send message: %w", errors.ErrAccessDenied)
		}
		if !room.IsActive() {
			return nil, fmt.Errorf("%w: messages can only be sent to an active chat room", errors.ErrInvalidState)
		}
	}

	// Время не убывает внутри комнаты даже при сдвиге часов
	sentAt := l.now()
	last, err := tx.Messages().LastByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if last != nil && last.SentAt.After(sentAt) {
		sentAt = last.SentAt
	}

	message := &domain.ChatMessage{
		RoomID:      room.ID,
		SenderID:    senderID,
		Content:     content,
		MessageType: messageType,
		SentAt:      sentAt,
	}
	if err := tx.Messages().Create(ctx, message); err != nil {
		return nil, err
	}

	return message, nil
}

func (l *messageLog) History(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	messages, err := l.store.Messages().ListByRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*domain.ChatMessage{}
	}
	return messages, nil
}

func (l *messageLog) Page(ctx context.Context, roomID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatMessage], error) {
	messages, total, err := l.store.Messages().ListByRoomPage(ctx, roomID, page)
	if err != nil {
		return domain.PageResult[*domain.ChatMessage]{}, err
	}
	return domain.NewPageResult(messages, total, page), nil
}

func (l *messageLog) UnreadCount(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	return l.store.Messages().CountUnread(ctx, roomID, userID)
}

func (l *messageLog) MarkAllRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	return l.store.Messages().MarkAllRead(ctx, roomID, userID)
}

func (l *messageLog) LastMessage(ctx context.Context, roomID uuid.UUID) (*domain.ChatMessage, error) {
	return l.store.Messages().LastByRoom(ctx, roomID)
}

func (l *messageLog) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return l.store.Messages().CountSince(ctx, since)
}

func (l *messageLog) CountBySender(ctx context.Context, senderID uuid.UUID) (int64, error) {
	return l.store.Messages().CountBySender(ctx, senderID)
}
