package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

func setupGoose() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

// Migrate applies every pending embedded migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	return nil
}

// Status logs the applied state of each migration.
func Status(ctx context.Context, db *sql.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, db, migrationsDir)
}
