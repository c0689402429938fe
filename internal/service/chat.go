package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/domain"
	"support_chat/internal/metrics"
	"support_chat/internal/repository"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// ChatService - координатор чата поддержки. Каждая изменяющая операция выполняется
// одной единицей работы; публикация событий идет только после фиксации.
type ChatService interface {
	CreateChatRoom(ctx context.Context, customerID uuid.UUID) (*domain.ChatRoom, error)
	AssignAdminToChatRoom(ctx context.Context, roomID, adminID uuid.UUID) (*domain.ChatRoom, error)
	SendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, messageType domain.MessageType) (*domain.ChatMessage, error)
	CloseChatRoom(ctx context.Context, roomID, requesterID uuid.UUID) (*domain.ChatRoom, error)
	GetChatHistory(ctx context.Context, roomID, requesterID uuid.UUID) ([]*domain.ChatMessage, error)
	GetChatMessages(ctx context.Context, roomID, requesterID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatMessage], error)
	GetUnreadMessageCount(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error)
	ListWaitingRooms(ctx context.Context) ([]*domain.ChatRoom, error)
	ListCustomerRooms(ctx context.Context, customerID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatRoom], error)
	ListAdminRooms(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*RoomSummary, error)
	HasAccess(ctx context.Context, roomID, userID uuid.UUID) bool
	GetRoom(ctx context.Context, roomID, requesterID uuid.UUID) (*domain.ChatRoom, error)
	Stats(ctx context.Context, requesterID uuid.UUID) (*ChatStats, error)
}

// RoomSummary - комната с последним сообщением и числом непрочитанных для администратора
type RoomSummary struct {
	Room        *domain.ChatRoom    `json:"room"`
	LastMessage *domain.ChatMessage `json:"last_message,omitempty"`
	UnreadCount int64               `json:"unread_count"`
}

type ChatStats struct {
	RoomsByStatus       map[domain.ChatStatus]int64 `json:"rooms_by_status"`
	RoomsCreatedLastDay int64                       `json:"rooms_created_last_day"`
	MessagesLastDay     int64                       `json:"messages_last_day"`
	MessagesSentByYou   int64                       `json:"messages_sent_by_you"`
}

type chatService struct {
	store         repository.Store
	registry      RoomRegistry
	messages      MessageLog
	notifications NotificationService
	channel       delivery.Channel
	cfg           config.ChatConfig
	now           func() time.Time
	log           logger.Logger
}

func NewChatService(
	store repository.Store,
	registry RoomRegistry,
	messages MessageLog,
	notifications NotificationService,
	channel delivery.Channel,
	cfg config.ChatConfig,
	log logger.Logger,
) ChatService {
	return &chatService{
		store:         store,
		registry:      registry,
		messages:      messages,
		notifications: notifications,
		channel:       channel,
		cfg:           cfg,
		now:           utcNow,
		log:           log,
	}
}

// participant приводит пользователя к роли чата. Неактивные пользователи доступа не имеют.
func (s *chatService) participant(ctx context.Context, userID uuid.UUID) (domain.Participant, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return domain.Participant{}, err
	}
	p, ok := domain.ParticipantFromUser(user)
	if !ok {
		return domain.Participant{}, fmt.Errorf("inactive user: %w", errors.ErrAccessDenied)
	}
	return p, nil
}

// displayName не прерывает операцию, если имя получить не удалось
func (s *chatService) displayName(ctx context.Context, tx repository.Store, userID uuid.UUID, fallback string) string {
	user, err := tx.Users().GetByID(ctx, userID)
	if err != nil || user.DisplayName == "" {
		return fallback
	}
	return user.DisplayName
}

func (s *chatService) publishToRoom(ctx context.Context, roomID uuid.UUID, eventType domain.EventType, payload interface{}) {
	event, err := domain.NewEvent(eventType, payload)
	if err != nil {
		s.log.Error("Failed to build event", "error", err, "type", string(eventType))
		return
	}
	s.channel.PublishToRoom(ctx, roomID, event)
}

func (s *chatService) publishToUser(ctx context.Context, userID uuid.UUID, eventType domain.EventType, payload interface{}) {
	event, err := domain.NewEvent(eventType, payload)
	if err != nil {
		s.log.Error("Failed to build event", "error", err, "type", string(eventType))
		return
	}
	s.channel.PublishToUser(ctx, userID, event)
}

func (s *chatService) broadcast(ctx context.Context, topic string, eventType domain.EventType, payload interface{}) {
	event, err := domain.NewEvent(eventType, payload)
	if err != nil {
		s.log.Error("Failed to build event", "error", err, "type", string(eventType))
		return
	}
	s.channel.Broadcast(ctx, topic, event)
}

func (s *chatService) CreateChatRoom(ctx context.Context, customerID uuid.UUID) (*domain.ChatRoom, error) {
	customer, err := s.participant(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !customer.IsCustomer() {
		return nil, fmt.Errorf("only customers can open a support chat: %w", errors.ErrAccessDenied)
	}

	var room *domain.ChatRoom
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		room, err = s.registry.CreateRoom(ctx, tx, customerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.RoomsCreated.Inc()
	s.log.Info("Chat room created", "room_id", room.ID, "customer_id", customerID)

	s.broadcast(ctx, delivery.TopicAdmin, domain.EventRoomCreated, room)

	return room, nil
}

func (s *chatService) AssignAdminToChatRoom(ctx context.Context, roomID, adminID uuid.UUID) (*domain.ChatRoom, error) {
	admin, err := s.participant(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, fmt.Errorf("only admins can be assigned to a chat room: %w", errors.ErrAccessDenied)
	}

	var (
		result *AssignResult
		system *domain.ChatMessage
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.registry.AssignAdmin(ctx, tx, roomID, adminID)
		if err != nil || !result.Changed {
			return err
		}

		content := fmt.Sprintf("%s joined the chat.", admin.DisplayName)
		if result.PreviousAdminID != nil {
			previous := s.displayName(ctx, tx, *result.PreviousAdminID, "Previous agent")
			content = fmt.Sprintf("Chat reassigned from %s to %s.", previous, admin.DisplayName)
		}
		system, err = s.messages.Append(ctx, tx, result.Room, nil, content, domain.MessageTypeSystem)
		return err
	})
	if err != nil {
		return nil, err
	}

	room := result.Room
	if !result.Changed {
		return room, nil
	}

	kind := "initial"
	if result.PreviousAdminID != nil {
		kind = "reassign"
	}
	metrics.AdminAssignments.WithLabelValues(kind).Inc()
	metrics.MessagesSent.WithLabelValues(string(domain.MessageTypeSystem)).Inc()
	s.log.Info("Admin assigned to chat room", "room_id", room.ID, "admin_id", adminID, "kind", kind)

	// Отзыв идет первым в топике комнаты: следующие события прежний администратор уже не получит
	if result.PreviousAdminID != nil {
		s.publishToRoom(ctx, room.ID, domain.EventRoomAccessRevoked, domain.RoomAccessRevokedPayload{
			RoomID: room.ID,
			UserID: *result.PreviousAdminID,
		})
	}
	s.publishToRoom(ctx, room.ID, domain.EventRoomAssigned, room)
	s.publishToRoom(ctx, room.ID, domain.EventMessageCreated, system)
	s.publishToUser(ctx, room.CustomerID, domain.EventRoomAssigned, room)
	if result.PreviousAdminID != nil {
		s.publishToUser(ctx, *result.PreviousAdminID, domain.EventRoomAssigned, room)
	}

	return room, nil
}

func (s *chatService) SendMessage(ctx context.Context, roomID, senderID uuid.UUID, content string, messageType domain.MessageType) (*domain.ChatMessage, error) {
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	if messageType == domain.MessageTypeSystem {
		return nil, fmt.Errorf("%w: system messages cannot be sent by users", errors.ErrBadRequest)
	}

	sender, err := s.participant(ctx, senderID)
	if err != nil {
		return nil, err
	}

	var (
		room    *domain.ChatRoom
		message *domain.ChatMessage
	)
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		room, err = tx.Rooms().GetForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.HasAccess(senderID) {
			return fmt.Errorf("send message: %w", errors.ErrAccessDenied)
		}
		message, err = s.messages.Append(ctx, tx, room, &senderID, content, messageType)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.MessagesSent.WithLabelValues(string(messageType)).Inc()

	s.publishToRoom(ctx, roomID, domain.EventMessageCreated, message)

	if counterpart, ok := room.CounterpartOf(senderID); ok {
		if _, err := s.notifications.NotifyChatMessage(ctx, counterpart, roomID, sender.DisplayName); err != nil {
			s.log.Warn("Failed to notify chat counterpart", "error", err, "room_id", roomID, "recipient_id", counterpart)
		}
	}

	return message, nil
}

func (s *chatService) CloseChatRoom(ctx context.Context, roomID, requesterID uuid.UUID) (*domain.ChatRoom, error) {
	var (
		result *CloseResult
		system *domain.ChatMessage
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.registry.CloseRoom(ctx, tx, roomID, requesterID)
		if err != nil || !result.Changed {
			return err
		}

		name := s.displayName(ctx, tx, requesterID, "A participant")
		system, err = s.messages.Append(ctx, tx, result.Room, nil, fmt.Sprintf("%s closed the chat.", name), domain.MessageTypeSystem)
		return err
	})
	if err != nil {
		return nil, err
	}

	room := result.Room
	if !result.Changed {
		return room, nil
	}

	metrics.RoomsClosed.Inc()
	metrics.MessagesSent.WithLabelValues(string(domain.MessageTypeSystem)).Inc()
	s.log.Info("Chat room closed", "room_id", room.ID, "requester_id", requesterID)

	s.publishToRoom(ctx, room.ID, domain.EventRoomClosed, room)
	s.publishToRoom(ctx, room.ID, domain.EventMessageCreated, system)
	if result.PreviousStatus == domain.ChatStatusWaiting {
		// Комната уходит из очереди ожидания администраторов
		s.broadcast(ctx, delivery.TopicAdmin, domain.EventRoomClosed, room)
	}

	return room, nil
}

// accessibleRoom загружает комнату и проверяет, что userID ее участник
func (s *chatService) accessibleRoom(ctx context.Context, roomID, userID uuid.UUID) (*domain.ChatRoom, error) {
	room, err := s.registry.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasAccess(userID) {
		return nil, fmt.Errorf("chat room %s: %w", roomID, errors.ErrAccessDenied)
	}
	return room, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, roomID, requesterID uuid.UUID) ([]*domain.ChatMessage, error) {
	if _, err := s.accessibleRoom(ctx, roomID, requesterID); err != nil {
		return nil, err
	}
	return s.messages.History(ctx, roomID)
}

func (s *chatService) GetChatMessages(ctx context.Context, roomID, requesterID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatMessage], error) {
	if _, err := s.accessibleRoom(ctx, roomID, requesterID); err != nil {
		return domain.PageResult[*domain.ChatMessage]{}, err
	}
	return s.messages.Page(ctx, roomID, page.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize))
}

func (s *chatService) GetUnreadMessageCount(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	if _, err := s.accessibleRoom(ctx, roomID, userID); err != nil {
		return 0, err
	}
	return s.messages.UnreadCount(ctx, roomID, userID)
}

func (s *chatService) MarkRead(ctx context.Context, roomID, userID uuid.UUID) (int64, error) {
	if _, err := s.accessibleRoom(ctx, roomID, userID); err != nil {
		return 0, err
	}

	flipped, err := s.messages.MarkAllRead(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	if flipped > 0 {
		s.publishToRoom(ctx, roomID, domain.EventMessagesRead, domain.MessagesReadPayload{
			RoomID:   roomID,
			ReaderID: userID,
			Count:    flipped,
		})
	}
	return flipped, nil
}

func (s *chatService) ListWaitingRooms(ctx context.Context) ([]*domain.ChatRoom, error) {
	return s.registry.ListWaiting(ctx, s.cfg.WaitingListLimit)
}

func (s *chatService) ListCustomerRooms(ctx context.Context, customerID uuid.UUID, page domain.Page) (domain.PageResult[*domain.ChatRoom], error) {
	return s.registry.ListByCustomer(ctx, customerID, page.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize))
}

func (s *chatService) ListAdminRooms(ctx context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*RoomSummary, error) {
	rooms, err := s.registry.ListByAdmin(ctx, adminID, status)
	if err != nil {
		return nil, err
	}

	summaries := make([]*RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		last, err := s.messages.LastMessage(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.messages.UnreadCount(ctx, room.ID, adminID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &RoomSummary{Room: room, LastMessage: last, UnreadCount: unread})
	}
	return summaries, nil
}

func (s *chatService) HasAccess(ctx context.Context, roomID, userID uuid.UUID) bool {
	return s.registry.HasAccess(ctx, roomID, userID)
}

func (s *chatService) GetRoom(ctx context.Context, roomID, requesterID uuid.UUID) (*domain.ChatRoom, error) {
	return s.accessibleRoom(ctx, roomID, requesterID)
}

func (s *chatService) Stats(ctx context.Context, requesterID uuid.UUID) (*ChatStats, error) {
	since := s.now().Add(-24 * time.Hour)

	byStatus, err := s.registry.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	created, err := s.registry.CountCreatedSince(ctx, since)
	if err != nil {
		return nil, err
	}
	recent, err := s.messages.CountSince(ctx, since)
	if err != nil {
		return nil, err
	}
	own, err := s.messages.CountBySender(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	return &ChatStats{
		RoomsByStatus:       byStatus,
		RoomsCreatedLastDay: created,
		MessagesLastDay:     recent,
		MessagesSentByYou:   own,
	}, nil
}
