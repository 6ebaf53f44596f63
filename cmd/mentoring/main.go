package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/mentoring/internal/app"
	"github.com/Freeeeeet/mentoring/internal/config"
	"github.com/Freeeeeet/mentoring/internal/controller"
	"github.com/Freeeeeet/mentoring/internal/controller/api"
	"github.com/Freeeeeet/mentoring/internal/lock"
	"github.com/Freeeeeet/mentoring/internal/notify"
	"github.com/Freeeeeet/mentoring/internal/repository"
	"github.com/Freeeeeet/mentoring/internal/repository/memory"
	"github.com/Freeeeeet/mentoring/internal/service"
	"github.com/Freeeeeet/mentoring/migrations"
	"github.com/go-redis/redis/v8"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting mentoring service",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}

	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	slots, users, closeStore, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	directory := service.NewDirectoryService(users, logger, service.WithLocker(locker))

	if cfg.MentorMail != "" {
		mentor, err := directory.EnsureMentor(ctx, service.MentorAccount{
			Mail:      cfg.MentorMail,
			Password:  cfg.MentorPassword,
			FirstName: cfg.MentorFirstName,
			LastName:  cfg.MentorLastName,
		})
		if err != nil {
			return fmt.Errorf("ensure mentor: %w", err)
		}
		logger.Info("Mentor ready", zap.Int64("mentor_id", mentor.ID), zap.String("mail", mentor.Mail))
	}

	notifiers := []notify.Notifier{notify.NewLogNotifier(logger)}
	if cfg.TelegramToken != "" {
		botInstance, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		notifiers = append(notifiers, notify.NewTelegramNotifier(botInstance, directory, logger))

		botController := controller.NewBotController(botInstance, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot handlers", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	dispatcher := notify.NewDispatcher(notify.Multi(notifiers...), cfg.NotifyQueueSize, cfg.NotifyWorkers, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	booking := service.NewBookingService(slots, directory, locker, dispatcher, logger)

	var tokens *api.TokenIssuer
	if cfg.JWTSecret != "" {
		tokens = api.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	} else {
		logger.Warn("JWT_SECRET is not set, bearer tokens are disabled")
	}

	httpAPI := api.NewAPI(booking, directory, tokens, api.Options{
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)
	httpAPI.RegisterRoutes()

	server := app.NewServer(cfg.HTTPAddr, httpAPI.Handler(), logger)
	server.Start()

	select {
	case <-ctx.Done():
	case err := <-server.Err():
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	return server.Stop(cfg.ShutdownTimeout)
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.SlotStore, service.UserStore, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return store.Slots(), store.Users(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create pgx pool: %w", err)
	}

	// База может подниматься параллельно с сервисом
	backoff := retry.WithMaxRetries(10, retry.NewExponential(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("Database is not ready", zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
	}

	logger.Info("Connected to PostgreSQL")

	return repository.NewSlotRepository(pool), repository.NewUserRepository(pool), pool.Close, nil
}

// migrate накатывает миграции через *sql.DB поверх пула
func migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	migrator, err := app.NewMigrator(db, migrations.FS, logger)
	if err != nil {
		return err
	}
	return migrator.Run(ctx)
}

func newLocker(ctx context.Context, cfg *config.Config, logger *zap.Logger) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("Using redis locks", zap.String("addr", cfg.RedisAddr))

	return lock.NewRedis(client, cfg.LockTTL, logger), func() { _ = client.Close() }, nil
}
