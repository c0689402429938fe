package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"support_chat/pkg/errors"
	"support_chat/pkg/logger"
)

// DBTX - общее подмножество pgxpool.Pool и pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store - доступ ко всем репозиториям и единица работы.
// Репозитории, полученные внутри WithinTx, работают в одной транзакции.
type Store interface {
	Rooms() ChatRoomRepository
	Messages() ChatMessageRepository
	Notifications() NotificationRepository
	Users() UserRepository
	Audit() AuditRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
	log  logger.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, log logger.Logger) Store {
	return &pgStore{pool: pool, db: pool, log: log}
}

func (s *pgStore) Rooms() ChatRoomRepository {
	return NewChatRoomRepository(s.db, s.log)
}

func (s *pgStore) Messages() ChatMessageRepository {
	return NewChatMessageRepository(s.db, s.log)
}

func (s *pgStore) Notifications() NotificationRepository {
	return NewNotificationRepository(s.db, s.log)
}

func (s *pgStore) Users() UserRepository {
	return NewUserRepository(s.db, s.log)
}

func (s *pgStore) Audit() AuditRepository {
	return NewAuditRepository(s.db, s.log)
}

func (s *pgStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	// Вложенный вызов продолжает текущую транзакцию
	if s.inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		s.log.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.log.Warn("Failed to rollback transaction", "error", rbErr)
		}
	}()

	if err := fn(&pgStore{pool: s.pool, db: tx, inTx: true, log: s.log}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		s.log.Error("Failed to commit transaction", "error", err)
		return mapPgError(err)
	}
	return nil
}

const pgUniqueViolation = "23505"

// mapPgError переводит нарушение уникальности в ErrConflict
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", errors.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
