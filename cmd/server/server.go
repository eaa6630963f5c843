package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"wachat-server/internal/config"
	"wachat-server/internal/domain/conversation"
	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/infrastructure/auth"
	"wachat-server/internal/infrastructure/database"
	"wachat-server/internal/infrastructure/fanout"
	"wachat-server/internal/infrastructure/logger"
	"wachat-server/internal/infrastructure/observability"
	"wachat-server/internal/infrastructure/queue"
	messagerepo "wachat-server/internal/infrastructure/repository/message"
	"wachat-server/internal/interfaces/httpserver"
	"wachat-server/internal/worker"
)

// @title WAChat API
// @version 1.0
// @description Ingests provider webhook envelopes and serves the resulting conversation history.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	store, health, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize store")
	}

	publisher, err := buildPublisher(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize fanout publisher")
	}

	authValidator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize auth validator")
	}

	eventQueue := queue.NewMemoryQueue(cfg.FanoutQueueCapacity, log)
	workerPool := worker.NewPool(
		eventQueue,
		publisher,
		worker.Config{
			WorkerCount:    cfg.FanoutWorkerCount,
			PublishTimeout: cfg.FanoutPublishTimeout,
		},
		log,
	)

	workerPool.Start(ctx)
	defer func() {
		log.Info().Msg("stopping worker pool")
		workerPool.Stop()
	}()

	engine := reconcile.NewEngine(store, log)
	conversationService := conversation.NewService(
		store,
		health,
		engine,
		eventQueue,
		conversation.Config{
			BusinessNumber: cfg.BusinessNumber,
			PhoneNumberID:  cfg.PhoneNumberID,
			StoreTimeout:   cfg.StoreTimeout,
		},
		log,
	)

	httpServer := httpserver.New(cfg, log, conversationService, authValidator)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func buildStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (message.Repository, message.HealthReporter, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store, messages will not survive restarts")
		repo := messagerepo.NewMemoryRepository()
		return repo, repo, nil
	case "postgres":
		db, err := database.Connect(database.Config{
			DSN:             cfg.DatabaseURL,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			ConnMaxLifetime: cfg.DBConnLifetime,
			LogLevel:        gormlogger.Warn,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.AutoMigrate(ctx, db, log); err != nil {
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		repo := messagerepo.NewPostgresRepository(db)
		return repo, repo, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func buildPublisher(cfg *config.Config, log zerolog.Logger) (message.Publisher, error) {
	switch cfg.FanoutDriver {
	case "memory":
		return fanout.NewHub(log), nil
	case "redis":
		return fanout.NewRedisPublisher(cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("unknown fanout driver %q", cfg.FanoutDriver)
	}
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
