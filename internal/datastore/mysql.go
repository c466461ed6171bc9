package datastore

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/qualitylab/partclass/internal/logger"
)

// MySQLStore implements Interface for MySQL
type MySQLStore struct {
	DataStore
	DSN string // e.g. user:pass@tcp(host:3306)/partclass?charset=utf8mb4&parseTime=True&loc=Local
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	db, err := gorm.Open(mysql.Open(store.DSN), gormConfig())
	if err != nil {
		GetLogger().Error("Failed to open MySQL database", logger.Error(err))
		return dbError(err, "open").Context("db_type", "mysql").Build()
	}

	store.DB = db
	if err := performAutoMigration(db, "MySQL"); err != nil {
		return err
	}

	GetLogger().Info("Results database opened", logger.String("db_type", "mysql"))
	return nil
}
