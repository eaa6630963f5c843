package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"wachat-server/internal/infrastructure/database/entities"
)

// AutoMigrate keeps the message schema in sync on startup.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	log.Info().Msg("running database migrations")
	if err := db.WithContext(ctx).AutoMigrate(&entities.Message{}); err != nil {
		return err
	}
	log.Info().Msg("database migrations complete")
	return nil
}
