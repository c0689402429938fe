package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"support_chat/internal/domain"
	"support_chat/pkg/errors"
)

// MemoryStore - хранилище в памяти процесса для тестов и локального запуска.
// Единица работы держит общий мьютекс до конца и откатывает данные при ошибке.
type MemoryStore struct {
	mu   *sync.Mutex
	data *memoryData
	inTx bool
}

type memoryData struct {
	rooms         map[uuid.UUID]*domain.ChatRoom
	messages      []*domain.ChatMessage
	nextMessageID int64
	notifications map[uuid.UUID]*domain.Notification
	users         map[uuid.UUID]*domain.User
	audit         []*domain.AuditLog
	nextAuditID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		data: &memoryData{
			rooms:         make(map[uuid.UUID]*domain.ChatRoom),
			notifications: make(map[uuid.UUID]*domain.Notification),
			users:         make(map[uuid.UUID]*domain.User),
		},
	}
}

// PutUser добавляет или заменяет пользователя
func (s *MemoryStore) PutUser(user *domain.User) {
	unlock := s.lock()
	defer unlock()
	u := *user
	s.data.users[u.ID] = &u
}

func (s *MemoryStore) Rooms() ChatRoomRepository             { return &memoryRooms{s} }
func (s *MemoryStore) Messages() ChatMessageRepository       { return &memoryMessages{s} }
func (s *MemoryStore) Notifications() NotificationRepository { return &memoryNotifications{s} }
func (s *MemoryStore) Users() UserRepository                 { return &memoryUsers{s} }
func (s *MemoryStore) Audit() AuditRepository                { return &memoryAudit{s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&MemoryStore{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}
	return nil
}

// lock берет мьютекс вне транзакции; внутри транзакции он уже захвачен
func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (d *memoryData) clone() *memoryData {
	c := &memoryData{
		rooms:         make(map[uuid.UUID]*domain.ChatRoom, len(d.rooms)),
		messages:      make([]*domain.ChatMessage, len(d.messages)),
		nextMessageID: d.nextMessageID,
		notifications: make(map[uuid.UUID]*domain.Notification, len(d.notifications)),
		users:         d.users,
		audit:         append([]*domain.AuditLog(nil), d.audit...),
		nextAuditID:   d.nextAuditID,
	}
	for id, r := range d.rooms {
		c.rooms[id] = r.Clone()
	}
	for i, m := range d.messages {
		c.messages[i] = m.Clone()
	}
	for id, n := range d.notifications {
		c.notifications[id] = n.Clone()
	}
	return c
}

func paginate[T any](items []T, page domain.Page) []T {
	start := page.Offset()
	if start >= len(items) || page.Size <= 0 {
		return []T{}
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

type memoryRooms struct{ s *MemoryStore }

func (r *memoryRooms) Create(_ context.Context, room *domain.ChatRoom) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.data.rooms[room.ID]; ok {
		return fmt.Errorf("%w: chat room %s already exists", errors.ErrConflict, room.ID)
	}
	if room.Status.IsOpen() {
		for _, existing := range r.s.data.rooms {
			if existing.CustomerID == room.CustomerID && existing.Status.IsOpen() {
				return fmt.Errorf("%w: customer already has an open chat room", errors.ErrConflict)
			}
		}
	}
	r.s.data.rooms[room.ID] = room.Clone()
	return nil
}

func (r *memoryRooms) GetByID(_ context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	unlock := r.s.lock()
	defer unlock()

	room, ok := r.s.data.rooms[id]
	if !ok {
		return nil, errors.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (r *memoryRooms) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.ChatRoom, error) {
	return r.GetByID(ctx, id)
}

func (r *memoryRooms) Update(_ context.Context, room *domain.ChatRoom) error {
	unlock := r.s.lock()
	defer unlock()

	current, ok := r.s.data.rooms[room.ID]
	if !ok {
		return errors.ErrRoomNotFound
	}
	if current.Version != room.Version-1 {
		return fmt.Errorf("%w: chat room was modified concurrently", errors.ErrConflict)
	}
	r.s.data.rooms[room.ID] = room.Clone()
	return nil
}

func (r *memoryRooms) ExistsOpenForCustomer(_ context.Context, customerID uuid.UUID) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	for _, room := range r.s.data.rooms {
		if room.CustomerID == customerID && room.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRooms) filter(keep func(*domain.ChatRoom) bool) []*domain.ChatRoom {
	var rooms []*domain.ChatRoom
	for _, room := range r.s.data.rooms {
		if keep(room) {
			rooms = append(rooms, room.Clone())
		}
	}
	return rooms
}

func (r *memoryRooms) ListWaiting(_ context.Context, limit int) ([]*domain.ChatRoom, error) {
	unlock := r.s.lock()
	defer unlock()

	rooms := r.filter(func(room *domain.ChatRoom) bool { return room.IsWaiting() })
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID.String() < rooms[j].ID.String()
	})
	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms, nil
}

func (r *memoryRooms) ListByCustomer(_ context.Context, customerID uuid.UUID, page domain.Page) ([]*domain.ChatRoom, int64, error) {
	unlock := r.s.lock()
	defer unlock()

	rooms := r.filter(func(room *domain.ChatRoom) bool { return room.CustomerID == customerID })
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.After(rooms[j].CreatedAt)
		}
		return rooms[i].ID.String() > rooms[j].ID.String()
	})
	return paginate(rooms, page), int64(len(rooms)), nil
}

func (r *memoryRooms) ListByAdmin(_ context.Context, adminID uuid.UUID, status *domain.ChatStatus) ([]*domain.ChatRoom, error) {
	unlock := r.s.lock()
	defer unlock()

	rooms := r.filter(func(room *domain.ChatRoom) bool {
		return room.IsAdmin(adminID) && (status == nil || room.Status == *status)
	})
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt.After(rooms[j].UpdatedAt) })
	return rooms, nil
}

func (r *memoryRooms) CountByStatus(_ context.Context) (map[domain.ChatStatus]int64, error) {
	unlock := r.s.lock()
	defer unlock()

	counts := map[domain.ChatStatus]int64{
		domain.ChatStatusWaiting: 0,
		domain.ChatStatusActive:  0,
		domain.ChatStatusClosed:  0,
	}
	for _, room := range r.s.data.rooms {
		counts[room.Status]++
	}
	return counts, nil
}

func (r *memoryRooms) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var count int64
	for _, room := range r.s.data.rooms {
		if !room.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type memoryMessages struct{ s *MemoryStore }

func (r *memoryMessages) Create(_ context.Context, message *domain.ChatMessage) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.data.rooms[message.RoomID]; !ok {
		return errors.ErrRoomNotFound
	}
	r.s.data.nextMessageID++
	message.ID = r.s.data.nextMessageID
	r.s.data.messages = append(r.s.data.messages, message.Clone())
	return nil
}

// roomMessages возвращает копии сообщений комнаты по возрастанию (sent_at, id)
func (r *memoryMessages) roomMessages(roomID uuid.UUID) []*domain.ChatMessage {
	var messages []*domain.ChatMessage
	for _, m := range r.s.data.messages {
		if m.RoomID == roomID {
			messages = append(messages, m.Clone())
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		if !messages[i].SentAt.Equal(messages[j].SentAt) {
			return messages[i].SentAt.Before(messages[j].SentAt)
		}
		return messages[i].ID < messages[j].ID
	})
	return messages
}

func (r *memoryMessages) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*domain.ChatMessage, error) {
	unlock := r.s.lock()
	defer unlock()
	return r.roomMessages(roomID), nil
}

func (r *memoryMessages) ListByRoomPage(_ context.Context, roomID uuid.UUID, page domain.Page) ([]*domain.ChatMessage, int64, error) {
	unlock := r.s.lock()
	defer unlock()

	messages := r.roomMessages(roomID)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return paginate(messages, page), int64(len(messages)), nil
}

func (r *memoryMessages) LastByRoom(_ context.Context, roomID uuid.UUID) (*domain.ChatMessage, error) {
	unlock := r.s.lock()
	defer unlock()

	messages := r.roomMessages(roomID)
	if len(messages) == 0 {
		return nil, nil
	}
	return messages[len(messages)-1], nil
}

func (r *memoryMessages) CountUnread(_ context.Context, roomID, userID uuid.UUID) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var count int64
	for _, m := range r.s.data.messages {
		if m.RoomID == roomID && m.CountsAsUnreadFor(userID) {
			count++
		}
	}
	return count, nil
}

func (r *memoryMessages) MarkAllRead(_ context.Context, roomID, userID uuid.UUID) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var flipped int64
	for _, m := range r.s.data.messages {
		if m.RoomID == roomID && m.CountsAsUnreadFor(userID) {
			m.ReadByRecipient = true
			flipped++
		}
	}
	return flipped, nil
}

func (r *memoryMessages) CountSince(_ context.Context, since time.Time) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var count int64
	for _, m := range r.s.data.messages {
		if !m.SentAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryMessages) CountBySender(_ context.Context, senderID uuid.UUID) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var count int64
	for _, m := range r.s.data.messages {
		if m.IsFrom(senderID) {
			count++
		}
	}
	return count, nil
}

type memoryNotifications struct{ s *MemoryStore }

func (r *memoryNotifications) Create(_ context.Context, n *domain.Notification) error {
	unlock := r.s.lock()
	defer unlock()
	return r.insert(n)
}

func (r *memoryNotifications) insert(n *domain.Notification) error {
	if _, ok := r.s.data.notifications[n.ID]; ok {
		return fmt.Errorf("%w: notification %s already exists", errors.ErrConflict, n.ID)
	}
	r.s.data.notifications[n.ID] = n.Clone()
	return nil
}

func (r *memoryNotifications) CreateMany(_ context.Context, notifications []*domain.Notification) error {
	unlock := r.s.lock()
	defer unlock()

	for _, n := range notifications {
		if _, ok := r.s.data.notifications[n.ID]; ok {
			return fmt.Errorf("%w: notification %s already exists", errors.ErrConflict, n.ID)
		}
	}
	for _, n := range notifications {
		if err := r.insert(n); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryNotifications) GetByID(_ context.Context, id uuid.UUID) (*domain.Notification, error) {
	unlock := r.s.lock()
	defer unlock()

	n, ok := r.s.data.notifications[id]
	if !ok {
		return nil, errors.ErrNotificationNotFound
	}
	return n.Clone(), nil
}

// newestFirst - копии уведомлений получателя от новых к старым
func (r *memoryNotifications) newestFirst(recipientID uuid.UUID, keep func(*domain.Notification) bool) []*domain.Notification {
	var items []*domain.Notification
	for _, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && keep(n) {
			items = append(items, n.Clone())
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID.String() > items[j].ID.String()
	})
	return items
}

func (r *memoryNotifications) ListByRecipient(_ context.Context, recipientID uuid.UUID, page domain.Page) ([]*domain.Notification, int64, error) {
	unlock := r.s.lock()
	defer unlock()

	items := r.newestFirst(recipientID, func(*domain.Notification) bool { return true })
	return paginate(items, page), int64(len(items)), nil
}

func (r *memoryNotifications) ListUnread(_ context.Context, recipientID uuid.UUID) ([]*domain.Notification, error) {
	unlock := r.s.lock()
	defer unlock()
	return r.newestFirst(recipientID, func(n *domain.Notification) bool { return !n.Read }), nil
}

func (r *memoryNotifications) CountUnread(_ context.Context, recipientID uuid.UUID) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var count int64
	for _, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *memoryNotifications) MarkRead(_ context.Context, id uuid.UUID, readAt time.Time) (bool, error) {
	unlock := r.s.lock()
	defer unlock()

	n, ok := r.s.data.notifications[id]
	if !ok {
		return false, nil
	}
	return n.MarkRead(readAt), nil
}

func (r *memoryNotifications) MarkAllRead(_ context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	unlock := r.s.lock()
	defer unlock()

	var flipped int64
	for _, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && n.MarkRead(readAt) {
			flipped++
		}
	}
	return flipped, nil
}

func (r *memoryNotifications) Delete(_ context.Context, id uuid.UUID) error {
	unlock := r.s.lock()
	defer unlock()

	if _, ok := r.s.data.notifications[id]; !ok {
		return errors.ErrNotificationNotFound
	}
	delete(r.s.data.notifications, id)
	return nil
}

func (r *memoryNotifications) deleteWhere(match func(*domain.Notification) bool) int64 {
	var deleted int64
	for id, n := range r.s.data.notifications {
		if match(n) {
			delete(r.s.data.notifications, id)
			deleted++
		}
	}
	return deleted
}

func (r *memoryNotifications) DeleteReadOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	unlock := r.s.lock()
	defer unlock()
	return r.deleteWhere(func(n *domain.Notification) bool {
		return n.Read && n.CreatedAt.Before(cutoff)
	}), nil
}

func (r *memoryNotifications) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	unlock := r.s.lock()
	defer unlock()
	return r.deleteWhere(func(n *domain.Notification) bool {
		return n.CreatedAt.Before(cutoff)
	}), nil
}

type memoryUsers struct{ s *MemoryStore }

func (r *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	unlock := r.s.lock()
	defer unlock()

	u, ok := r.s.data.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *memoryUsers) ListActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	unlock := r.s.lock()
	defer unlock()

	var users []*domain.User
	for _, u := range r.s.data.users {
		if u.IsActive {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

type memoryAudit struct{ s *MemoryStore }

func (r *memoryAudit) CreateLog(_ context.Context, log *domain.AuditLog) error {
	unlock := r.s.lock()
	defer unlock()

	r.s.data.nextAuditID++
	log.ID = r.s.data.nextAuditID
	entry := *log
	r.s.data.audit = append(r.s.data.audit, &entry)
	return nil
}

func (r *memoryAudit) ListByRoom(_ context.Context, roomID uuid.UUID) ([]*domain.AuditLog, error) {
	unlock := r.s.lock()
	defer unlock()

	var logs []*domain.AuditLog
	for _, entry := range r.s.data.audit {
		if entry.RoomID != nil && *entry.RoomID == roomID {
			c := *entry
			logs = append(logs, &c)
		}
	}
	return logs, nil
}
