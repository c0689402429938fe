package repository

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"support_chat/pkg/logger"
)

type RateLimitRepository interface {
	// Increment увеличивает счетчик окна и возвращает новое значение
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		r.log.Error("Failed to increment rate limit", "error", err, "key", key)
		return 0, err
	}

	return incr.Val(), nil
}

// memoryRateLimitRepository - фиксированное окно в памяти процесса, для режима без Redis
type memoryRateLimitRepository struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*rateWindow
}

const maxMemoryRateWindows = 10000

type rateWindow struct {
	count     int64
	expiresAt time.Time
}

func NewMemoryRateLimitRepository() RateLimitRepository {
	return &memoryRateLimitRepository{now: time.Now, windows: make(map[string]*rateWindow)}
}

func (r *memoryRateLimitRepository) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.windows) > maxMemoryRateWindows {
		for k, w := range r.windows {
			if !now.Before(w.expiresAt) {
				delete(r.windows, k)
			}
		}
	}

	w, ok := r.windows[key]
	if !ok || !now.Before(w.expiresAt) {
		w = &rateWindow{expiresAt: now.Add(window)}
		r.windows[key] = w
	}
	w.count++
	return w.count, nil
}
