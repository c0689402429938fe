package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/delivery"
	"support_chat/internal/domain"
	"support_chat/internal/metrics"
	"support_chat/internal/repository"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

type NotificationService interface {
	Notify(ctx context.Context, recipientID uuid.UUID, title, content string, notificationType domain.NotificationType, relatedEntityID *string) (*domain.Notification, error)
	NotifyComment(ctx context.Context, postAuthorID uuid.UUID, postID, commenterName string) (*domain.Notification, error)
	NotifyReply(ctx context.Context, commentAuthorID uuid.UUID, commentID, replierName string) (*domain.Notification, error)
	NotifyChatMessage(ctx context.Context, recipientID, roomID uuid.UUID, senderName string) (*domain.Notification, error)
	// BroadcastSystemNotice возвращает число сохраненных персональных записей
	BroadcastSystemNotice(ctx context.Context, actorID uuid.UUID, title, content string) (int, error)
	List(ctx context.Context, userID uuid.UUID, page domain.Page) (domain.PageResult[*domain.Notification], error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, notificationID, requesterID uuid.UUID) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, notificationID, requesterID uuid.UUID) error
	// Cleanup удаляет прочитанные уведомления старше cutoff
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	// CleanupAll удаляет все уведомления старше cutoff
	CleanupAll(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationService struct {
	store            repository.Store
	channel          delivery.Channel
	audit            AuditService
	persistBroadcast bool
	now              func() time.Time
	log              logger.Logger
}

func NewNotificationService(store repository.Store, channel delivery.Channel, audit AuditService, persistBroadcast bool, log logger.Logger) NotificationService {
	return &notificationService{
		store:            store,
		channel:          channel,
		audit:            audit,
		persistBroadcast: persistBroadcast,
		now:              utcNow,
		log:              log,
	}
}

func (s *notificationService) Notify(ctx context.Context, recipientID uuid.UUID, title, content string, notificationType domain.NotificationType, relatedEntityID *string) (*domain.Notification, error) {
	return s.notify(ctx, recipientID, title, content, notificationType, relatedEntityID, nil)
}

func (s *notificationService) notify(ctx context.Context, recipientID uuid.UUID, title, content string, notificationType domain.NotificationType, relatedEntityID, actorName *string) (*domain.Notification, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: notification title is empty", errors.ErrBadRequest)
	}
	if !notificationType.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", errors.ErrBadRequest, notificationType)
	}

	if _, err := s.store.Users().GetByID(ctx, recipientID); err != nil {
		return nil, err
	}

	notification := &domain.Notification{
		ID:              uuid.New(),
		RecipientID:     recipientID,
		Title:           title,
		Content:         content,
		Type:            notificationType,
		RelatedEntityID: relatedEntityID,
		ActorName:       actorName,
		CreatedAt:       s.now(),
	}
	if err := s.store.Notifications().Create(ctx, notification); err != nil {
		return nil, err
	}
	metrics.NotificationsCreated.WithLabelValues(string(notificationType)).Inc()

	s.push(ctx, recipientID, notification)

	return notification, nil
}

func (s *notificationService) push(ctx context.Context, recipientID uuid.UUID, notification *domain.Notification) {
	event, err := domain.NewEvent(domain.EventNotificationCreated, notification)
	if err != nil {
		s.log.Error("Failed to build notification event", "error", err)
		return
	}
	s.channel.PublishToUser(ctx, recipientID, event)
}

func (s *notificationService) NotifyComment(ctx context.Context, postAuthorID uuid.UUID, postID, commenterName string) (*domain.Notification, error) {
	return s.notify(ctx, postAuthorID,
		"New comment",
		fmt.Sprintf("%s commented on your post.", commenterName),
		domain.NotificationCommentOnPost, &postID, &commenterName)
}

func (s *notificationService) NotifyReply(ctx context.Context, commentAuthorID uuid.UUID, commentID, replierName string) (*domain.Notification, error) {
	return s.notify(ctx, commentAuthorID,
		"New reply",
		fmt.Sprintf("%s replied to your comment.", replierName),
		domain.NotificationReplyToComment, &commentID, &replierName)
}

func (s *notificationService) NotifyChatMessage(ctx context.Context, recipientID, roomID uuid.UUID, senderName string) (*domain.Notification, error) {
	related := roomID.String()
	return s.notify(ctx, recipientID,
		"New chat message",
		fmt.Sprintf("%s sent you a message.", senderName),
		domain.NotificationChatMessage, &related, &senderName)
}

func (s *notificationService) BroadcastSystemNotice(ctx context.Context, actorID uuid.UUID, title, content string) (int, error) {
	if strings.TrimSpace(title) == "" {
		return 0, fmt.Errorf("%w: notice title is empty", errors.ErrBadRequest)
	}

	now := s.now()
	persisted := 0

	if s.persistBroadcast {
		err := s.store.WithinTx(ctx, func(tx repository.Store) error {
			ids, err := tx.Users().ListActiveIDs(ctx)
			if err != nil {
				return err
			}

			notifications := make([]*domain.Notification, 0, len(ids))
			for _, id := range ids {
				notifications = append(notifications, &domain.Notification{
					ID:          uuid.New(),
					RecipientID: id,
					Title:       title,
					Content:     content,
					Type:        domain.NotificationSystemNotice,
					CreatedAt:   now,
				})
			}
			if err := tx.Notifications().CreateMany(ctx, notifications); err != nil {
				return err
			}
			persisted = len(notifications)
			return nil
		})
		if err != nil {
			return 0, fmt.Errorf("persist system notice: %w", err)
		}
		metrics.NotificationsCreated.WithLabelValues(string(domain.NotificationSystemNotice)).Add(float64(persisted))
	}

	payload := map[string]interface{}{"title": title, "persisted": persisted}
	if err := s.audit.LogEvent(ctx, &actorID, domain.ActorRoleAdmin, nil, domain.EventTypeSystemNoticeIssued, payload); err != nil {
		s.log.Warn("Failed to audit system notice", "error", err)
	}

	event, err := domain.NewEvent(domain.EventSystemNotice, domain.SystemNoticePayload{
		Title:     title,
		Content:   content,
		Type:      domain.NotificationSystemNotice,
		CreatedAt: now,
	})
	if err != nil {
		s.log.Error("Failed to build system notice event", "error", err)
		return persisted, nil
	}
	s.channel.Broadcast(ctx, delivery.TopicSystem, event)

	s.log.Info("System notice broadcast", "title", title, "persisted", persisted)
	return persisted, nil
}

func (s *notificationService) List(ctx context.Context, userID uuid.UUID, page domain.Page) (domain.PageResult[*domain.Notification], error) {
	items, total, err := s.store.Notifications().ListByRecipient(ctx, userID, page)
	if err != nil {
		return domain.PageResult[*domain.Notification]{}, err
	}
	return domain.NewPageResult(items, total, page), nil
}

func (s *notificationService) ListUnread(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	items, err := s.store.Notifications().ListUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	return items, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.Notifications().CountUnread(ctx, userID)
}

// owned загружает уведомление и проверяет, что оно принадлежит запросившему
func (s *notificationService) owned(ctx context.Context, notificationID, requesterID uuid.UUID) (*domain.Notification, error) {
	notification, err := s.store.Notifications().GetByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.RecipientID != requesterID {
		return nil, fmt.Errorf("notification: %w", errors.ErrAccessDenied)
	}
	return notification, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, requesterID uuid.UUID) (*domain.Notification, error) {
	notification, err := s.owned(ctx, notificationID, requesterID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if _, err := s.store.Notifications().MarkRead(ctx, notificationID, now); err != nil {
		return nil, err
	}
	notification.MarkRead(now)
	return notification, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID, s.now())
}

func (s *notificationService) Delete(ctx context.Context, notificationID, requesterID uuid.UUID) error {
	if _, err := s.owned(ctx, notificationID, requesterID); err != nil {
		return err
	}
	return s.store.Notifications().Delete(ctx, notificationID)
}

func (s *notificationService) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.store.Notifications().DeleteReadOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.NotificationsPurged.Add(float64(deleted))
	s.log.Info("Cleaned up read notifications", "count", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return deleted, nil
}

func (s *notificationService) CleanupAll(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.store.Notifications().DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	metrics.NotificationsPurged.Add(float64(deleted))
	s.log.Info("Cleaned up notifications", "count", deleted, "cutoff", cutoff.Format(time.RFC3339))
	return deleted, nil
}
