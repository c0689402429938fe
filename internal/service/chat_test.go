package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"support_chat/internal/delivery"
	"support_chat/internal/domain"
	"support_chat/pkg/errors"
)

func TestCreateChatRoom_SecondOpenRoomConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusWaiting, room.Status)
	assert.Nil(t, room.AdminID)
	assert.Equal(t, []domain.EventType{domain.EventRoomCreated}, f.channel.on(delivery.TopicAdmin))

	_, err = f.chat.CreateChatRoom(ctx, f.customer.ID)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	// Активная комната тоже блокирует создание новой
	_, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	_, err = f.chat.CreateChatRoom(ctx, f.customer.ID)
	assert.True(t, errors.Is(err, errors.ErrConflict))
}

func TestCreateChatRoom_RoleChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.chat.CreateChatRoom(ctx, f.admin.ID)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))

	_, err = f.chat.CreateChatRoom(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	inactive := f.addUser("Ghost", domain.RoleCustomer)
	inactive.IsActive = false
	f.store.PutUser(inactive)
	_, err = f.chat.CreateChatRoom(ctx, inactive.ID)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
}

func TestConcurrentCreateChatRoom_OnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, errors.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, conflicts)
}

func TestAssignAdmin_ActivatesRoomAndGrantsAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	f.channel.reset()

	room, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusActive, room.Status)
	require.NotNil(t, room.AdminID)
	assert.Equal(t, f.admin.ID, *room.AdminID)

	assert.True(t, f.chat.HasAccess(ctx, room.ID, f.admin.ID))
	assert.True(t, f.chat.HasAccess(ctx, room.ID, f.customer.ID))
	assert.False(t, f.chat.HasAccess(ctx, room.ID, f.admin2.ID))
	assert.False(t, f.chat.HasAccess(ctx, room.ID, f.outsider.ID))
	assert.False(t, f.chat.HasAccess(ctx, uuid.New(), f.customer.ID))

	assert.Equal(t,
		[]domain.EventType{domain.EventRoomAssigned, domain.EventMessageCreated},
		f.channel.on(delivery.RoomTopic(room.ID)))
	assert.Equal(t, []domain.EventType{domain.EventRoomAssigned}, f.channel.on(delivery.UserTopic(f.customer.ID)))
}

func TestAssignAdmin_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.chat.AssignAdminToChatRoom(ctx, uuid.New(), f.admin.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)

	_, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.customer2.ID)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))

	_, err = f.chat.CloseChatRoom(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)

	_, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestAssignAdmin_SameAdminIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)
	f.channel.reset()

	again, err := f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, room.Version, again.Version)
	assert.Zero(t, f.channel.count())

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestClosedRoom_RejectsMessagesAndDoubleCloseIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	closed, err := f.chat.CloseChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	for _, sender := range []uuid.UUID{f.customer.ID, f.admin.ID} {
		_, err = f.chat.SendMessage(ctx, room.ID, sender, "anyone there?", domain.MessageTypeText)
		assert.True(t, errors.Is(err, errors.ErrInvalidState))
	}

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	f.channel.reset()

	f.clock.Advance(time.Hour)
	again, err := f.chat.CloseChatRoom(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusClosed, again.Status)
	assert.True(t, closed.ClosedAt.Equal(*again.ClosedAt))
	assert.Equal(t, closed.Version, again.Version)
	assert.Zero(t, f.channel.count())

	after, err := f.chat.GetChatHistory(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, history, after)
}

func TestCloseChatRoom_WaitingRoomByCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	f.channel.reset()

	closed, err := f.chat.CloseChatRoom(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusClosed, closed.Status)
	assert.Nil(t, closed.AdminID)

	assert.Equal(t, []domain.EventType{domain.EventRoomClosed}, f.channel.on(delivery.TopicAdmin))
	assert.Equal(t,
		[]domain.EventType{domain.EventRoomClosed, domain.EventMessageCreated},
		f.channel.on(delivery.RoomTopic(room.ID)))

	waiting, err := f.chat.ListWaitingRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, waiting)
}

func TestCloseChatRoom_RequiresParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	_, err := f.chat.CloseChatRoom(ctx, room.ID, f.outsider.ID)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
	_, err = f.chat.CloseChatRoom(ctx, room.ID, f.admin2.ID)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
	_, err = f.chat.CloseChatRoom(ctx, uuid.New(), f.customer.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	stored, err := f.chat.GetRoom(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
}

func TestSendMessage_HistoryOrderFollowsCommitOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	f.clock.Advance(time.Minute)
	_, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "first", domain.MessageTypeText)
	require.NoError(t, err)

	// Часы отстают: время следующего сообщения не должно уменьшиться
	f.clock.Advance(-30 * time.Second)
	_, err = f.chat.SendMessage(ctx, room.ID, f.admin.ID, "second", domain.MessageTypeText)
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, room.ID, f.customer.ID, "third", domain.MessageTypeText)
	require.NoError(t, err)

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	var contents []string
	for i, m := range history {
		contents = append(contents, m.Content)
		if i > 0 {
			assert.False(t, m.SentAt.Before(history[i-1].SentAt))
			assert.Greater(t, m.ID, history[i-1].ID)
		}
	}
	assert.Equal(t, []string{"first", "second", "third"}, contents[1:])
	assert.Equal(t, domain.MessageTypeSystem, history[0].MessageType)

	again, err := f.chat.GetChatHistory(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, history, again)

	page, err := f.chat.GetChatMessages(ctx, room.ID, f.admin.ID, domain.Page{Number: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages())
	require.Len(t, page.Items, 2)
	assert.Equal(t, "third", page.Items[0].Content)
	assert.Equal(t, "second", page.Items[1].Content)
}

func TestConcurrentSendMessage_HistoryIsConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := f.customer.ID
			if i%2 == 0 {
				sender = f.admin.ID
			}
			_, err := f.chat.SendMessage(ctx, room.ID, sender, fmt.Sprintf("m%d", i), domain.MessageTypeText)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, history, 21)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].SentAt.Before(history[i-1].SentAt))
		assert.Greater(t, history[i].ID, history[i-1].ID)
	}
}

func TestSendMessage_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	tests := []struct {
		name        string
		content     string
		messageType domain.MessageType
		want        error
	}{
		{"empty", "   ", domain.MessageTypeText, errors.ErrBadRequest},
		{"too long", strings.Repeat("я", 4001), domain.MessageTypeText, errors.ErrBadRequest},
		{"system from user", "hi", domain.MessageTypeSystem, errors.ErrBadRequest},
		{"unknown type", "hi", domain.MessageType("VIDEO"), errors.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, tt.content, tt.messageType)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	msg, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, strings.Repeat("я", 4000), "")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)

	msg, err = f.chat.SendMessage(ctx, room.ID, f.admin.ID, "https://cdn.example.com/a.png", domain.MessageTypeImage)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeImage, msg.MessageType)
}

func TestSendMessage_WaitingRoomIsNotActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)

	_, err = f.chat.SendMessage(ctx, room.ID, f.customer.ID, "hello?", domain.MessageTypeText)
	assert.True(t, errors.Is(err, errors.ErrInvalidState))
}

func TestSendMessage_PublishesAndNotifiesCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)
	f.channel.reset()

	msg, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "hello", domain.MessageTypeText)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventMessageCreated}, f.channel.on(delivery.RoomTopic(room.ID)))
	assert.Equal(t, []domain.EventType{domain.EventNotificationCreated}, f.channel.on(delivery.UserTopic(f.admin.ID)))
	assert.Empty(t, f.channel.on(delivery.UserTopic(f.customer.ID)))

	notifications, err := f.notifications.ListUnread(ctx, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, domain.NotificationChatMessage, notifications[0].Type)
	require.NotNil(t, notifications[0].RelatedEntityID)
	assert.Equal(t, room.ID.String(), *notifications[0].RelatedEntityID)
	require.NotNil(t, notifications[0].ActorName)
	assert.Equal(t, "Alice", *notifications[0].ActorName)
	assert.Equal(t, room.ID, msg.RoomID)
}

func TestSendMessage_NotificationFailureDoesNotFailSend(t *testing.T) {
	notifications := &MockNotificationService{}
	f := newFixtureWith(t, false, notifications)
	ctx := context.Background()
	room := f.activeRoom(t)

	notifications.On("NotifyChatMessage", mock.Anything, f.customer.ID, room.ID, "Agent Smith").
		Return(nil, fmt.Errorf("store unavailable")).Once()

	msg, err := f.chat.SendMessage(ctx, room.ID, f.admin.ID, "how can I help?", domain.MessageTypeText)
	require.NoError(t, err)
	assert.Equal(t, "how can I help?", msg.Content)
	notifications.AssertExpectations(t)
}

func TestAccessControl_OutsiderIsDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)
	outsiders := []uuid.UUID{f.outsider.ID, f.admin2.ID}

	for _, u := range outsiders {
		_, err := f.chat.SendMessage(ctx, room.ID, u, "hi", domain.MessageTypeText)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.GetChatHistory(ctx, room.ID, u)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.GetChatMessages(ctx, room.ID, u, domain.Page{})
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.GetUnreadMessageCount(ctx, room.ID, u)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.MarkRead(ctx, room.ID, u)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.GetRoom(ctx, room.ID, u)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))

		_, err = f.chat.CloseChatRoom(ctx, room.ID, u)
		assert.True(t, errors.Is(err, errors.ErrAccessDenied))
	}
}

func TestUnreadAccounting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	_, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "one", domain.MessageTypeText)
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, room.ID, f.customer.ID, "two", domain.MessageTypeText)
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, room.ID, f.admin.ID, "reply", domain.MessageTypeText)
	require.NoError(t, err)

	count, err := f.chat.GetUnreadMessageCount(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	count, err = f.chat.GetUnreadMessageCount(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	f.channel.reset()
	flipped, err := f.chat.MarkRead(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), flipped)
	assert.Equal(t, []domain.EventType{domain.EventMessagesRead}, f.channel.on(delivery.RoomTopic(room.ID)))

	for i := 0; i < 2; i++ {
		count, err = f.chat.GetUnreadMessageCount(ctx, room.ID, f.admin.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	}

	f.channel.reset()
	flipped, err = f.chat.MarkRead(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Zero(t, flipped)
	assert.Zero(t, f.channel.count())

	// Прочтение администратором не трогает непрочитанное клиента
	count, err = f.chat.GetUnreadMessageCount(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestScenarioA_CreateAssignSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusWaiting, room.Status)
	assert.Nil(t, room.AdminID)

	room, err = f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatStatusActive, room.Status)

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.MessageTypeSystem, history[0].MessageType)
	assert.Nil(t, history[0].SenderID)

	msg, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "hello", domain.MessageTypeText)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeText, msg.MessageType)
	require.NotNil(t, msg.SenderID)
	assert.Equal(t, f.customer.ID, *msg.SenderID)
	assert.False(t, msg.ReadByRecipient)

	// Системные сообщения в непрочитанные не входят
	count, err := f.chat.GetUnreadMessageCount(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestScenarioB_UnreadReaccrues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	_, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "first", domain.MessageTypeText)
	require.NoError(t, err)
	_, err = f.chat.MarkRead(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)

	count, err := f.chat.GetUnreadMessageCount(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.chat.SendMessage(ctx, room.ID, f.customer.ID, "second", domain.MessageTypeText)
	require.NoError(t, err)

	count, err = f.chat.GetUnreadMessageCount(ctx, room.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestScenarioC_NewRoomAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	_, err = f.chat.CloseChatRoom(ctx, first.ID, f.customer.ID)
	require.NoError(t, err)

	second, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, domain.ChatStatusWaiting, second.Status)

	f.clock.Advance(time.Minute)
	rooms, err := f.chat.ListCustomerRooms(ctx, f.customer.ID, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rooms.Total)
	assert.Equal(t, 20, rooms.Size)
}

func TestScenarioD_Reassignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)
	f.channel.reset()

	room, err := f.chat.AssignAdminToChatRoom(ctx, room.ID, f.admin2.ID)
	require.NoError(t, err)
	require.NotNil(t, room.AdminID)
	assert.Equal(t, f.admin2.ID, *room.AdminID)
	assert.Equal(t, domain.ChatStatusActive, room.Status)

	history, err := f.chat.GetChatHistory(ctx, room.ID, f.admin2.ID)
	require.NoError(t, err)
	var system []string
	for _, m := range history {
		if m.IsSystem() {
			system = append(system, m.Content)
		}
	}
	require.Len(t, system, 2)
	assert.Contains(t, system[1], "Agent Smith")
	assert.Contains(t, system[1], "Agent Jones")

	// Прежний администратор теряет доступ сразу
	assert.False(t, f.chat.HasAccess(ctx, room.ID, f.admin.ID))
	_, err = f.chat.SendMessage(ctx, room.ID, f.admin.ID, "still here", domain.MessageTypeText)
	assert.True(t, errors.Is(err, errors.ErrAccessDenied))
	assert.Equal(t, []domain.EventType{domain.EventRoomAssigned}, f.channel.on(delivery.UserTopic(f.admin.ID)))

	// Отзыв подписки прежнего администратора опережает остальные события комнаты
	assert.Equal(t,
		[]domain.EventType{domain.EventRoomAccessRevoked, domain.EventRoomAssigned, domain.EventMessageCreated},
		f.channel.on(delivery.RoomTopic(room.ID)))

	events, err := f.audit.ListRoomEvents(ctx, room.ID)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		domain.EventTypeChatRoomCreated,
		domain.EventTypeAdminAssigned,
		domain.EventTypeAdminReassigned,
	}, types)
}

func TestConcurrentAssign_SingleOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, admin := range []uuid.UUID{f.admin.ID, f.admin2.ID} {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := f.chat.AssignAdminToChatRoom(ctx, room.ID, id)
			assert.NoError(t, err)
		}(admin)
	}
	wg.Wait()

	stored, err := f.chat.GetRoom(ctx, room.ID, f.customer.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AdminID)
	assert.Equal(t, int64(2), stored.Version)

	owners := 0
	for _, admin := range []uuid.UUID{f.admin.ID, f.admin2.ID} {
		if f.chat.HasAccess(ctx, room.ID, admin) {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
}

func TestListWaitingRooms_OldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	second, err := f.chat.CreateChatRoom(ctx, f.customer2.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	third, err := f.chat.CreateChatRoom(ctx, f.outsider.ID)
	require.NoError(t, err)

	_, err = f.chat.AssignAdminToChatRoom(ctx, second.ID, f.admin.ID)
	require.NoError(t, err)

	waiting, err := f.chat.ListWaitingRooms(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 2)
	assert.Equal(t, first.ID, waiting[0].ID)
	assert.Equal(t, third.ID, waiting[1].ID)
}

func TestListCustomerRooms_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		room, err := f.chat.CreateChatRoom(ctx, f.customer.ID)
		require.NoError(t, err)
		_, err = f.chat.CloseChatRoom(ctx, room.ID, f.customer.ID)
		require.NoError(t, err)
		ids = append(ids, room.ID)
		f.clock.Advance(time.Hour)
	}

	page, err := f.chat.ListCustomerRooms(ctx, f.customer.ID, domain.Page{Number: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)

	page, err = f.chat.ListCustomerRooms(ctx, f.customer.ID, domain.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ids[0], page.Items[0].ID)
}

func TestListAdminRoomsAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.activeRoom(t)

	_, err := f.chat.SendMessage(ctx, room.ID, f.customer.ID, "help", domain.MessageTypeText)
	require.NoError(t, err)
	_, err = f.chat.SendMessage(ctx, room.ID, f.admin.ID, "sure", domain.MessageTypeText)
	require.NoError(t, err)

	summaries, err := f.chat.ListAdminRooms(ctx, f.admin.ID, nil)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, room.ID, summaries[0].Room.ID)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "sure", summaries[0].LastMessage.Content)
	assert.Equal(t, int64(1), summaries[0].UnreadCount)

	closed := domain.ChatStatusClosed
	summaries, err = f.chat.ListAdminRooms(ctx, f.admin.ID, &closed)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	stats, err := f.chat.Stats(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.RoomsByStatus[domain.ChatStatusActive])
	assert.Equal(t, int64(1), stats.RoomsCreatedLastDay)
	assert.Equal(t, int64(3), stats.MessagesLastDay)
	assert.Equal(t, int64(1), stats.MessagesSentByYou)
}
