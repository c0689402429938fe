package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/domain"
	"support_chat/internal/repository"
	"support_chat/pkg/logger"
)

type published struct {
	topic string
	event domain.Event
}

// recordingChannel запоминает публикации вместо доставки
type recordingChannel struct {
	mu     sync.Mutex
	events []published
}

func (c *recordingChannel) record(topic string, event domain.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, published{topic: topic, event: event})
}

func (c *recordingChannel) PublishToRoom(_ context.Context, roomID uuid.UUID, event domain.Event) {
	c.record(delivery.RoomTopic(roomID), event)
}

func (c *recordingChannel) PublishToUser(_ context.Context, userID uuid.UUID, event domain.Event) {
	c.record(delivery.UserTopic(userID), event)
}

func (c *recordingChannel) Broadcast(_ context.Context, topic string, event domain.Event) {
	c.record(topic, event)
}

func (c *recordingChannel) on(topic string) []domain.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []domain.EventType
	for _, p := range c.events {
		if p.topic == topic {
			types = append(types, p.event.Type)
		}
	}
	return types
}

func (c *recordingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *recordingChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

type MockNotificationService struct {
	mock.Mock
	NotificationService
}

func (m *MockNotificationService) NotifyChatMessage(ctx context.Context, recipientID, roomID uuid.UUID, senderName string) (*domain.Notification, error) {
	args := m.Called(ctx, recipientID, roomID, senderName)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

// fakeClock - ручные часы для детерминированных тестов
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store         *repository.MemoryStore
	channel       *recordingChannel
	clock         *fakeClock
	chat          ChatService
	notifications NotificationService
	audit         AuditService

	customer  *domain.User
	customer2 *domain.User
	admin     *domain.User
	admin2    *domain.User
	outsider  *domain.User
}

var testChatConfig = config.ChatConfig{
	MaxMessageLength: 4000,
	DefaultPageSize:  20,
	MaxPageSize:      100,
	WaitingListLimit: 100,
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, false, nil)
}

func newFixtureWith(t *testing.T, persistBroadcast bool, notifications NotificationService) *fixture {
	t.Helper()

	f := &fixture{
		store:   repository.NewMemoryStore(),
		channel: &recordingChannel{},
		clock:   &fakeClock{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)},
	}
	log := logger.Nop()

	f.customer = f.addUser("Alice", domain.RoleCustomer)
	f.customer2 = f.addUser("Carol", domain.RoleCustomer)
	f.admin = f.addUser("Agent Smith", domain.RoleAdmin)
	f.admin2 = f.addUser("Agent Jones", domain.RoleAdmin)
	f.outsider = f.addUser("Mallory", domain.RoleCustomer)

	f.audit = NewAuditService(f.store, log)

	ns := NewNotificationService(f.store, f.channel, f.audit, persistBroadcast, log).(*notificationService)
	ns.now = f.clock.Now
	f.notifications = ns
	if notifications == nil {
		notifications = ns
	}

	registry := NewRoomRegistry(f.store, f.audit, log).(*roomRegistry)
	registry.now = f.clock.Now
	messages := NewMessageLog(f.store, testChatConfig.MaxMessageLength, log).(*messageLog)
	messages.now = f.clock.Now

	chat := NewChatService(f.store, registry, messages, notifications, f.channel, testChatConfig, log).(*chatService)
	chat.now = f.clock.Now
	f.chat = chat

	return f
}

func (f *fixture) addUser(name string, role domain.Role) *domain.User {
	u := &domain.User{
		ID:          uuid.New(),
		Email:       name + "@example.com",
		DisplayName: name,
		Role:        role,
		IsActive:    true,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.store.PutUser(u)
	return u
}

// activeRoom создает комнату клиента и назначает администратора
func (f *fixture) activeRoom(t *testing.T) *domain.ChatRoom {
	t.Helper()
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	room, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	return room
}
