package delivery

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"support_chat/internal/domain"
	"support_chat/internal/metrics"
	"support_chat/pkg/logger"
)

// Subscriber - одно подключение клиента. Буфер ограничен; при переполнении событие теряется.
type Subscriber struct {
	ID      string
	send    chan []byte
	topics  map[string]struct{}
	dropped atomic.Int64
	closed  bool
}

// Send - канал исходящих кадров; закрывается при Unregister
func (s *Subscriber) Send() <-chan []byte {
	return s.send
}

func (s *Subscriber) Dropped() int64 {
	return s.dropped.Load()
}

// Hub - локальный реестр подписчиков по топикам
type Hub struct {
	mu          sync.RWMutex
	topics      map[string]map[*Subscriber]struct{}
	subscribers map[*Subscriber]struct{}
	bufferSize  int
	log         logger.Logger
}

func NewHub(bufferSize int, log logger.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		topics:      make(map[string]map[*Subscriber]struct{}),
		subscribers: make(map[*Subscriber]struct{}),
		bufferSize:  bufferSize,
		log:         log,
	}
}

func (h *Hub) Register(id string) *Subscriber {
	sub := &Subscriber{
		ID:     id,
		send:   make(chan []byte, h.bufferSize),
		topics: make(map[string]struct{}),
	}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	return sub
}

// Unregister снимает все подписки и закрывает канал Send. Повторный вызов безопасен.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return
	}
	for topic := range sub.topics {
		h.removeLocked(sub, topic)
	}
	delete(h.subscribers, sub)
	sub.closed = true
	close(sub.send)

	metrics.WebSocketConnections.Dec()
}

func (h *Hub) Subscribe(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub.closed {
		return
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	sub.topics[topic] = struct{}{}
}

func (h *Hub) Unsubscribe(sub *Subscriber, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub, topic)
}

func (h *Hub) removeLocked(sub *Subscriber, topic string) {
	delete(sub.topics, topic)
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// UnsubscribeUser снимает с топика все подключения пользователя
func (h *Hub) UnsubscribeUser(userID, topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for sub := range h.topics[topic] {
		if sub.ID == userID {
			h.removeLocked(sub, topic)
			removed++
		}
	}
	return removed
}

// revoke применяет служебное событие отзыва доступа к комнате
func (h *Hub) revoke(topic string, payload []byte) error {
	var revoked domain.RoomAccessRevokedPayload
	if err := json.Unmarshal(payload, &revoked); err != nil {
		h.log.Error("Failed to decode access revocation", "error", err, "topic", topic)
		return err
	}
	if removed := h.UnsubscribeUser(revoked.UserID.String(), topic); removed > 0 {
		h.log.Info("Room subscription revoked", "topic", topic, "user_id", revoked.UserID, "connections", removed)
	}
	return nil
}

// SubscriberCount - число подписчиков топика
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish сериализует конверт один раз и раздает его локальным подписчикам
func (h *Hub) Publish(_ context.Context, topic string, event domain.Event) error {
	if event.Type == domain.EventRoomAccessRevoked {
		return h.revoke(topic, event.Payload)
	}

	event.Topic = topic
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to marshal event", "error", err, "type", string(event.Type))
		return err
	}
	h.deliver(topic, data)
	return nil
}

// deliver отправляет готовый кадр без блокировки
func (h *Hub) deliver(topic string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.topics[topic] {
		select {
		case sub.send <- data:
			delivered++
		default:
			sub.dropped.Add(1)
			metrics.DeliveriesDropped.WithLabelValues("subscriber").Inc()
			h.log.Warn("Subscriber buffer full, dropping event", "subscriber", sub.ID, "topic", topic)
		}
	}
	return delivered
}
