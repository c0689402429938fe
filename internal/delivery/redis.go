package delivery

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"support_chat/internal/domain"
	"support_chat/pkg/logger"
)

const (
	redisChannelPrefix = "support_chat:"
	// Служебные события публикуются в отдельный канал с этим префиксом
	redisControlPrefix = "control:"
)

// RedisBridge публикует события в Redis pub/sub, а Run пересылает события всех
// экземпляров сервиса в локальный Hub.
type RedisBridge struct {
	rdb *redis.Client
	hub *Hub
	log logger.Logger
}

func NewRedisBridge(rdb *redis.Client, hub *Hub, log logger.Logger) *RedisBridge {
	return &RedisBridge{rdb: rdb, hub: hub, log: log}
}

func redisChannel(topic string) string {
	return redisChannelPrefix + topic
}

func (b *RedisBridge) Publish(ctx context.Context, topic string, event domain.Event) error {
	channel := redisChannel(topic)
	var data []byte
	if event.Type == domain.EventRoomAccessRevoked {
		channel = redisChannel(redisControlPrefix + topic)
		data = event.Payload
	} else {
		event.Topic = topic
		var err error
		data, err = json.Marshal(event)
		if err != nil {
			b.log.Error("Failed to marshal event", "error", err, "type", string(event.Type))
			return err
		}
	}

	if err := b.rdb.Publish(ctx, channel, data).Err(); err != nil {
		b.log.Error("Failed to publish event to redis", "error", err, "topic", topic)
		return err
	}
	return nil
}

// Run блокируется до отмены ctx
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	// Дожидаемся подтверждения подписки, чтобы ошибки подключения всплыли сразу
	if _, err := pubsub.Receive(ctx); err != nil {
		b.log.Error("Failed to subscribe to redis channels", "error", err)
		return err
	}
	b.log.Info("Subscribed to redis delivery channels", "pattern", redisChannelPrefix+"*")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.relay(msg.Channel, []byte(msg.Payload))
		}
	}
}

// relay передает сообщение Redis локальному хабу
func (b *RedisBridge) relay(channel string, payload []byte) {
	topic := strings.TrimPrefix(channel, redisChannelPrefix)
	if strings.HasPrefix(topic, redisControlPrefix) {
		_ = b.hub.revoke(strings.TrimPrefix(topic, redisControlPrefix), payload)
		return
	}
	b.hub.deliver(topic, payload)
}
