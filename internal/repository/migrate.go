package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"support_chat/pkg/logger"
)

//go:embed schema.sql
var schemaSQL string

// Migrate создает таблицы и индексы, если их еще нет
func Migrate(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	// Без аргументов pgx отправляет запрос простым протоколом, поэтому допустимо несколько команд
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		log.Error("Failed to apply schema", "error", err)
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Info("Database schema is up to date")
	return nil
}
