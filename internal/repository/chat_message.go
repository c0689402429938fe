package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"support_chat/internal/domain"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type ChatMessageRepository interface {
	// Create сохраняет сообщение и присваивает ему ID в порядке фиксации
	Create(ctx context.Context, message *domain.ChatMessage) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error)
	ListByRoomPage(ctx context.Context, roomID uuid.UUID, page domain.Page) ([]*domain.ChatMessage, int64, error)
	// LastByRoom возвращает nil, nil для комнаты без сообщений
	LastByRoom(ctx context.Context, roomID uuid.UUID) (*domain.ChatMessage, error)
	CountUnread(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountBySender(ctx context.Context, senderID uuid.UUID) (int64, error)
}

type chatMessageRepository struct {
	db  DBTX
	log logger.Logger
}

func NewChatMessageRepository(db DBTX, log logger.Logger) ChatMessageRepository {
	return &chatMessageRepository{db: db, log: log}
}

const chatMessageColumns = `id, room_id, sender_id, content, message_type, sent_at, read_by_recipient`

func scanChatMessage(row pgx.Row) (*domain.ChatMessage, error) {
	message := &domain.ChatMessage{}
	err := row.Scan(
		&message.ID, &message.RoomID, &message.SenderID, &message.Content,
		&message.MessageType, &message.SentAt, &message.ReadByRecipient,
	)
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (r *chatMessageRepository) Create(ctx context.Context, message *domain.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (room_id, sender_id, content, message_type, sent_at, read_by_recipient)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		message.RoomID, message.SenderID, message.Content,
		message.MessageType, message.SentAt, message.ReadByRecipient,
	).Scan(&message.ID)
	if err != nil {
		r.log.Error("Failed to create message", "error", err, "room_id", message.RoomID)
		return err
	}

	return nil
}

func (r *chatMessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY sent_at ASC, id ASC
	`
	return r.list(ctx, query, roomID)
}

func (r *chatMessageRepository) ListByRoomPage(ctx context.Context, roomID uuid.UUID, page domain.Page) ([]*domain.ChatMessage, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE room_id = $1`, roomID).Scan(&total); err != nil {
		r.log.Error("Failed to count messages", "error", err)
		return nil, 0, err
	}

	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	messages, err := r.list(ctx, query, roomID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (r *chatMessageRepository) LastByRoom(ctx context.Context, roomID uuid.UUID) (*domain.ChatMessage, error) {
	query := `
		SELECT ` + chatMessageColumns + `
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`

	message, err := scanChatMessage(r.db.QueryRow(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("Failed to get last message", "error", err, "room_id", roomID)
		return nil, err
	}
	return message, nil
}

func (r *chatMessageRepository) list(ctx context.Context, query string, args ...any) ([]*domain.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		message, err := scanChatMessage(rows)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate messages", "error", err)
		return nil, err
	}

	return messages, nil
}

// Системные сообщения и собственные сообщения пользователя не считаются непрочитанными
func (r *chatMessageRepository) CountUnread(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM chat_messages
		WHERE room_id = $1
		  AND message_type <> 'SYSTEM'
		  AND sender_id IS DISTINCT FROM $2
		  AND read_by_recipient = FALSE
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, roomID, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count unread messages", "error", err)
		return 0, err
	}
	return count, nil
}

func (r *chatMessageRepository) MarkAllRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE chat_messages
		SET read_by_recipient = TRUE
		WHERE room_id = $1
		  AND message_type <> 'SYSTEM'
		  AND sender_id IS DISTINCT FROM $2
		  AND read_by_recipient = FALSE
	`

	tag, err := r.db.Exec(ctx, query, roomID, userID)
	if err != nil {
		r.log.Error("Failed to mark messages as read", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *chatMessageRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE sent_at >= $1`, since).Scan(&count); err != nil {
		r.log.Error("Failed to count messages since", "error", err)
		return 0, err
	}
	return count, nil
}

func (r *chatMessageRepository) CountBySender(ctx context.Context, senderID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM chat_messages WHERE sender_id = $1`, senderID).Scan(&count); err != nil {
		r.log.Error("Failed to count messages by sender", "error", err)
		return 0, err
	}
	return count, nil
}
