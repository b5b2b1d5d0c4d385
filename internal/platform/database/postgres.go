package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Zeygath/th-2024/internal/platform/config"
	"github.com/Zeygath/th-2024/internal/platform/database/migrations"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
)

var DB *sql.DB

func Connect() {
	var err error
	DB, err = Open(config.AppConfig.DBConnStr)
	if err != nil {
		logrus.WithError(err).Fatal("Error connecting to database")
	}
	logrus.Info("Successfully connected to PostgreSQL database!")
}

// Open returns a pooled, pinged handle. The caller owns Close.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func Close() {
	if DB != nil {
		DB.Close()
		logrus.Info("Database connection closed.")
	}
}

// NewMigrator wraps db for bun's migrator. Queries elsewhere stay on database/sql.
func NewMigrator(db *sql.DB) *migrate.Migrator {
	return migrate.NewMigrator(bun.NewDB(db, pgdialect.New()), migrations.Migrations)
}

// Migrate creates the bookkeeping tables if needed and applies pending migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("lock migrations: %w", err)
	}
	defer migrator.Unlock(ctx) //nolint:errcheck

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if group.IsZero() {
		logrus.Info("No new migrations to run")
	} else {
		logrus.WithField("group", group.String()).Info("Database migrated")
	}
	return nil
}
