package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"support_chat/internal/domain"
	"support_chat/pkg/logger"
)

var (
	_ Store = (*pgStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

type Repositories struct {
	Store     Store
	RateLimit RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Store:     NewPostgresStore(db, log),
		RateLimit: NewRateLimitRepository(redis, log),
	}

	log.Info("Postgres repositories initialized")

	return repos
}

// NewMemoryRepositories - хранилище в памяти; rate limit через Redis, если клиент передан
func NewMemoryRepositories(store *MemoryStore, redis *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{Store: store}
	if redis != nil {
		repos.RateLimit = NewRateLimitRepository(redis, log)
	} else {
		repos.RateLimit = NewMemoryRateLimitRepository()
	}

	log.Warn("Using in-memory storage, data will not survive restart")

	return repos
}

// ParseSeedUser разбирает запись вида "<uuid>:<CUSTOMER|ADMIN>:<display name>"
func ParseSeedUser(entry string) (*domain.User, error) {
	parts := strings.SplitN(entry, ":", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("seed user %q: expected id:role:name", entry)
	}

	id, err := uuid.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("seed user %q: %w", entry, err)
	}
	role := domain.Role(strings.ToUpper(strings.TrimSpace(parts[1])))
	if !role.Valid() {
		return nil, fmt.Errorf("seed user %q: unknown role %q", entry, parts[1])
	}
	name := strings.TrimSpace(parts[2])
	if name == "" {
		return nil, fmt.Errorf("seed user %q: empty display name", entry)
	}

	return &domain.User{
		ID:          id,
		Email:       id.String() + "@local",
		DisplayName: name,
		Role:        role,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
