package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aulaboard/backend/internal/board"
)

const migrationDropUserNameColumns = "2026-07-14_drop_user_name_columns"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationDropUserNameColumns, apply: dropUserNameColumns},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// dropUserNameColumns removes the legacy first/last name columns; display
// names collapsed into the username when profiles got roles.
func dropUserNameColumns(db *gorm.DB) error {
	for _, column := range []string{"first_name", "last_name"} {
		if db.Migrator().HasColumn(&board.User{}, column) {
			if err := db.Migrator().DropColumn(&board.User{}, column); err != nil {
				return err
			}
		}
	}
	return nil
}
