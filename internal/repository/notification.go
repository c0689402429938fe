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

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	CreateMany(ctx context.Context, notifications []*domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, page domain.Page) ([]*domain.Notification, int64, error)
	ListUnread(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db  DBTX
	log logger.Logger
}

func NewNotificationRepository(db DBTX, log logger.Logger) NotificationRepository {
	return &notificationRepository{db: db, log: log}
}

const notificationColumns = `id, recipient_id, title, content, type, related_entity_id, actor_name, is_read, created_at, read_at`

const insertNotificationQuery = `
	INSERT INTO notifications (id, recipient_id, title, content, type, related_entity_id, actor_name, is_read, created_at, read_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	n := &domain.Notification{}
	err := row.Scan(
		&n.ID, &n.RecipientID, &n.Title, &n.Content, &n.Type,
		&n.RelatedEntityID, &n.ActorName, &n.Read, &n.CreatedAt, &n.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func notificationArgs(n *domain.Notification) []any {
	return []any{
		n.ID, n.RecipientID, n.Title, n.Content, n.Type,
		n.RelatedEntityID, n.ActorName, n.Read, n.CreatedAt, n.ReadAt,
	}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if _, err := r.db.Exec(ctx, insertNotificationQuery, notificationArgs(notification)...); err != nil {
		r.log.Error("Failed to create notification", "error", err, "recipient_id", notification.RecipientID)
		return err
	}
	return nil
}

func (r *notificationRepository) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(insertNotificationQuery, notificationArgs(n)...)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range notifications {
		if _, err := results.Exec(); err != nil {
			r.log.Error("Failed to create notifications batch", "error", err, "size", len(notifications))
			return err
		}
	}
	return nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrNotificationNotFound
		}
		r.log.Error("Failed to get notification", "error", err)
		return nil, err
	}
	return n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, page domain.Page) ([]*domain.Notification, int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`, recipientID).Scan(&total); err != nil {
		r.log.Error("Failed to count notifications", "error", err)
		return nil, 0, err
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	items, err := r.list(ctx, query, recipientID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient_id = $1 AND is_read = FALSE
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, recipientID)
}

func (r *notificationRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list notifications", "error", err)
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			r.log.Error("Failed to scan notification", "error", err)
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`
	if err := r.db.QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		r.log.Error("Failed to count unread notifications", "error", err)
		return 0, err
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) (bool, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE id = $1 AND is_read = FALSE`

	tag, err := r.db.Exec(ctx, query, id, readAt)
	if err != nil {
		r.log.Error("Failed to mark notification as read", "error", err)
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE recipient_id = $1 AND is_read = FALSE`

	tag, err := r.db.Exec(ctx, query, recipientID, readAt)
	if err != nil {
		r.log.Error("Failed to mark all notifications as read", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete notification", "error", err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		r.log.Error("Failed to cleanup read notifications", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE created_at < $1`, cutoff)
	if err != nil {
		r.log.Error("Failed to cleanup notifications", "error", err)
		return 0, err
	}
	return tag.RowsAffected(), nil
}
