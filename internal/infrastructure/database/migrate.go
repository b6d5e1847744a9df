package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

func gooseDB(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sub, err := fs.Sub(migrationsFS, migrationsDir)
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectPostgres, sqlDB, sub)
}

// Migrate applies all pending SQL migrations to a Postgres database.
func Migrate(ctx context.Context, db *gorm.DB) ([]*goose.MigrationResult, error) {
	p, err := gooseDB(db)
	if err != nil {
		return nil, err
	}
	return p.Up(ctx)
}

// Rollback reverts the most recent migration.
func Rollback(ctx context.Context, db *gorm.DB) (*goose.MigrationResult, error) {
	p, err := gooseDB(db)
	if err != nil {
		return nil, err
	}
	return p.Down(ctx)
}

// MigrationStatus reports every known migration and whether it is applied.
func MigrationStatus(ctx context.Context, db *gorm.DB) ([]*goose.MigrationStatus, error) {
	p, err := gooseDB(db)
	if err != nil {
		return nil, err
	}
	return p.Status(ctx)
}
