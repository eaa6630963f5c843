// Package database owns the PostgreSQL connection the conversation store
// rides on.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config controls connectivity to the message store.
type Config struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        gormlogger.LogLevel
}

// Pool fallbacks for zero-valued Config fields.
const (
	defaultMaxIdleConns    = 5
	defaultMaxOpenConns    = 15
	defaultConnMaxLifetime = 30 * time.Minute
)

// Connect opens the chat database and tunes the connection pool. When the
// DSN points at a database that does not exist yet, it is created through
// the maintenance database first, so a fresh deployment needs nothing
// beyond a reachable PostgreSQL server.
func Connect(cfg Config) (*gorm.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("chat database DSN is empty")
	}

	if err := createIfMissing(cfg.DSN); err != nil {
		return nil, fmt.Errorf("bootstrap chat database: %w", err)
	}

	level := cfg.LogLevel
	if level == 0 {
		level = gormlogger.Warn
	}

	// Table names are fixed by each entity's TableName, so no naming
	// strategy is configured here.
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		PrepareStmt: true,
		Logger:      gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open chat database: %w", err)
	}

	if err := tunePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func tunePool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("access sql pool: %w", err)
	}

	idle := cfg.MaxIdleConns
	if idle <= 0 {
		idle = defaultMaxIdleConns
	}
	open := cfg.MaxOpenConns
	if open <= 0 {
		open = defaultMaxOpenConns
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultConnMaxLifetime
	}

	sqlDB.SetMaxIdleConns(idle)
	sqlDB.SetMaxOpenConns(open)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

func createIfMissing(dsn string) error {
	adminDSN, name, ok := bootstrapTarget(dsn)
	if !ok {
		return nil
	}

	conn, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()

	var count int
	if err := conn.QueryRow("SELECT COUNT(*) FROM pg_database WHERE datname = $1", name).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err = conn.Exec("CREATE DATABASE " + quoteIdent(name))
	return err
}

// bootstrapTarget extracts the database name from a URL-style DSN and
// rewrites the DSN to point at the maintenance database. Opaque key=value
// DSNs and DSNs already targeting the maintenance database are skipped;
// they need no bootstrap step.
func bootstrapTarget(dsn string) (adminDSN, name string, ok bool) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", "", false
	}

	name = strings.TrimPrefix(u.Path, "/")
	if name == "" || name == "postgres" {
		return "", "", false
	}

	admin := *u
	admin.Path = "/postgres"
	return admin.String(), name, true
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
