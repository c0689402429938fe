package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"support_chat/internal/config"
	"support_chat/internal/delivery"
	"support_chat/internal/handler"
	"support_chat/internal/middleware"
	"support_chat/internal/repository"
	"support_chat/internal/service"
	"support_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	checks := make(map[string]handler.HealthCheck)

	// Redis нужен для межсерверной доставки и для лимитов при хранении в Postgres
	var rdb *redis.Client
	if cfg.Delivery.Driver == config.DeliveryDriverRedis || cfg.Database.Driver == config.StorageDriverPostgres {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			appLogger.Fatal("Failed to connect to Redis", "error", err)
		}
		appLogger.Info("Redis connection established")
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Инициализация репозиториев
	var repos *repository.Repositories
	switch cfg.Database.Driver {
	case config.StorageDriverPostgres:
		dbPool, err := connectPostgres(ctx, cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()
		appLogger.Info("Database connection established")

		if cfg.Database.AutoMigrate {
			if err := repository.Migrate(ctx, dbPool, appLogger); err != nil {
				appLogger.Fatal("Failed to migrate database", "error", err)
			}
		}

		repos = repository.NewRepositories(dbPool, rdb, appLogger)
		checks["postgres"] = dbPool.Ping
	default:
		store := repository.NewMemoryStore()
		for _, entry := range cfg.Database.SeedUsers {
			user, err := repository.ParseSeedUser(entry)
			if err != nil {
				appLogger.Fatal("Invalid seed user", "error", err)
			}
			store.PutUser(user)
		}
		appLogger.Info("Seed users loaded", "count", len(cfg.Database.SeedUsers))
		repos = repository.NewMemoryRepositories(store, rdb, appLogger)
	}

	// Доставка: локальный хаб всегда, Redis мост при нескольких экземплярах
	hub := delivery.NewHub(cfg.Delivery.SubscriberBuffer, appLogger)
	var publisher delivery.Publisher = hub
	var bridgeWG sync.WaitGroup
	if cfg.Delivery.Driver == config.DeliveryDriverRedis {
		bridge := delivery.NewRedisBridge(rdb, hub, appLogger)
		publisher = bridge

		bridgeWG.Add(1)
		go func() {
			defer bridgeWG.Done()
			if err := bridge.Run(ctx); err != nil {
				appLogger.Error("Redis delivery bridge stopped", "error", err)
			}
		}()
	}
	dispatcher := delivery.NewDispatcher(publisher, cfg.Delivery.Workers, cfg.Delivery.QueueSize, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, dispatcher, cfg, appLogger)

	// Фоновая очистка уведомлений
	var jobsWG sync.WaitGroup
	jobsWG.Add(1)
	go func() {
		defer jobsWG.Done()
		services.Cleanup.Run(ctx)
	}()

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT, repos.Store.Users(), appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, repos, hub, checks, cfg, appLogger)

	// Настройка роутера
	router := handler.NewRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Database.Driver, "delivery", cfg.Delivery.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	// Сначала дожидаемся очереди доставки, потом останавливаем мост и задачи
	dispatcher.Close()
	stop()
	bridgeWG.Wait()
	jobsWG.Wait()

	appLogger.Info("Server exited")
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	// Проверка подключения к БД
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
