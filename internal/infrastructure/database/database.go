package database

import (
	"estate-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from a Postgres DSN.
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// OpenSQLite opens a pure-Go SQLite database (":memory:" or a file path) for local runs and tests.
// The pool is capped at one connection so ":memory:" stays a single database and
// writers serialize the way row locks serialize them on Postgres.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Models lists every persisted model in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.Company{},
		&domain.Partner{},
		&domain.User{},
		&domain.PropertyType{},
		&domain.PropertyTag{},
		&domain.Property{},
		&domain.Offer{},
		&domain.PropertyEvent{},
		&domain.Invoice{},
		&domain.InvoiceLine{},
		&domain.PortfolioTag{},
		&domain.PortfolioProject{},
	}
}

// AutoMigrate creates or updates tables for all models. Production Postgres uses Migrate instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
