package database

import (
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aulaboard/backend/internal/board"
	"github.com/aulaboard/backend/internal/notify"
)

// OpenSQLite establishes a SQLite connection and performs schema
// migrations for every model in the system.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}

// Migrate runs AutoMigrate for all models, including the named-migration
// ledger table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&board.User{},
		&board.Board{},
		&board.List{},
		&board.Card{},
		&board.Label{},
		&board.Comment{},
		&board.ChecklistItem{},
		&board.ActivityLog{},
		&notify.Notification{},
		&notify.PushSubscription{},
		&migrationRecord{},
	)
}
