package infra

import (
	"fmt"

	"fastclick/internal/model"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens Postgres through GORM (pgx underneath), optionally
// installs the OpenTelemetry plugin, and migrates the schema.
func NewDatabase(dsn string, tracing bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, fmt.Errorf("otelgorm: %w", err)
		}
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// GormConfig is shared by every dialect. TranslateError maps unique
// violations to gorm.ErrDuplicatedKey.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// RunMigrations creates or updates every table, then applies the patches
// AutoMigrate cannot express. Works on Postgres and SQLite.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Game{},
		&model.Session{},
		&model.InventoryItem{},
		&model.Transaction{},
		&model.Receipt{},
		&model.StockMovement{},
		&model.SellerStatement{},
		&model.HouseStatement{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL. Partial indexes use syntax both
// Postgres and SQLite accept.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// at most one open session
		{"single open session", `CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_single_open
			ON sessions (status) WHERE status = 'open'`},
		// checkout scans available listings by name
		{"available listings by name", `CREATE INDEX IF NOT EXISTS idx_inventory_items_available_name
			ON inventory_items (name, price) WHERE stock_status = 'available'`},
		{"transactions by session and seller", `CREATE INDEX IF NOT EXISTS idx_transactions_session_seller
			ON transactions (session_id, seller_id)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
