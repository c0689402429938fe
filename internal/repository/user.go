package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"support_chat/internal/domain"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// UserRepository - хранилище пользователей только для чтения.
// Учетные записи ведет внешний сервис идентификации.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

type userRepository struct {
	db  DBTX
	log logger.Logger
}

func NewUserRepository(db DBTX, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, email, display_name, role, is_active, created_at
		FROM users
		WHERE id = $1
	`

	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		r.log.Error("Failed to get user by ID", "error", err)
		return nil, err
	}

	return user, nil
}

func (r *userRepository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE is_active = TRUE ORDER BY created_at`)
	if err != nil {
		r.log.Error("Failed to list active users", "error", err)
		return nil, err
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		r.log.Error("Failed to scan active users", "error", err)
		return nil, err
	}
	return ids, nil
}
