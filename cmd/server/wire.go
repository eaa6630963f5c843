//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"wachat-server/internal/config"
	"wachat-server/internal/domain/conversation"
	"wachat-server/internal/domain/message"
	"wachat-server/internal/domain/reconcile"
	"wachat-server/internal/infrastructure/auth"
	"wachat-server/internal/infrastructure/database"
	"wachat-server/internal/infrastructure/logger"
	"wachat-server/internal/infrastructure/queue"
	messagerepo "wachat-server/internal/infrastructure/repository/message"
	"wachat-server/internal/interfaces/httpserver"
)

var storeSet = wire.NewSet(
	messagerepo.NewPostgresRepository,
	wire.Bind(new(message.Repository), new(*messagerepo.PostgresRepository)),
	wire.Bind(new(message.HealthReporter), new(*messagerepo.PostgresRepository)),
)

var conversationSet = wire.NewSet(
	reconcile.NewEngine,
	newEventQueue,
	wire.Bind(new(conversation.Dispatcher), new(*queue.MemoryQueue)),
	newConversationConfig,
	conversation.NewService,
)

// BuildApplication demonstrates how to assemble the chat service with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		newDatabaseConfig,
		newGormDB,
		newAuthValidator,
		storeSet,
		conversationSet,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

func newDatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	}
}

func newGormDB(ctx context.Context, cfg database.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func newAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

func newEventQueue(cfg *config.Config, log zerolog.Logger) *queue.MemoryQueue {
	return queue.NewMemoryQueue(cfg.FanoutQueueCapacity, log)
}

func newConversationConfig(cfg *config.Config) conversation.Config {
	return conversation.Config{
		BusinessNumber: cfg.BusinessNumber,
		PhoneNumberID:  cfg.PhoneNumberID,
		StoreTimeout:   cfg.StoreTimeout,
	}
}
