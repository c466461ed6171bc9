package datastore

import (
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qualitylab/partclass/internal/logger"
)

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Path string
}

// Open creates the database file if needed and migrates the schema.
func (store *SQLiteStore) Open() error {
	if dir := filepath.Dir(store.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbError(err, "create_directory").Context("path", dir).Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(store.Path), gormConfig())
	if err != nil {
		return dbError(err, "open").Context("db_type", "sqlite").Context("path", store.Path).Build()
	}

	store.DB = db
	if err := performAutoMigration(db, "SQLite"); err != nil {
		return err
	}

	GetLogger().Info("Results database opened",
		logger.String("db_type", "sqlite"),
		logger.String("path", store.Path))
	return nil
}
