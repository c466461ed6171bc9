// interfaces.go: database operations of the results mirror
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/logger"
)

// slowStatementThreshold marks statements logged as slow.
const slowStatementThreshold = 200 * time.Millisecond

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	SaveRun(run *Run) error
	SaveClassification(c *Classification) error
	GetRun(id string) (Run, error)
	GetClassifications(runID string) ([]Classification, error)
	Close() error
}

// DataStore implements the operations shared by all drivers.
type DataStore struct {
	DB *gorm.DB
}

// New returns the store selected by settings, not yet opened.
func New(settings *conf.DatabaseSettings) (Interface, error) {
	switch settings.Driver {
	case conf.DriverSQLite:
		return &SQLiteStore{Path: settings.Path}, nil
	case conf.DriverMySQL:
		return &MySQLStore{DSN: settings.DSN}, nil
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// SaveRun inserts or updates a run record.
func (ds *DataStore) SaveRun(run *Run) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if err := ds.DB.Save(run).Error; err != nil {
		return dbError(err, "save_run").Context("run_id", run.ID).Build()
	}
	return nil
}

// SaveClassification inserts a classification row.
func (ds *DataStore) SaveClassification(c *Classification) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if err := ds.DB.Create(c).Error; err != nil {
		return dbError(err, "save_classification").
			Context("run_id", c.RunID).
			Context("image_path", c.ImagePath).
			Build()
	}
	return nil
}

// GetRun returns the run with the given ID.
func (ds *DataStore) GetRun(id string) (Run, error) {
	var run Run
	if err := ds.ready(); err != nil {
		return run, err
	}
	if err := ds.DB.First(&run, "id = ?", id).Error; err != nil {
		return run, dbError(err, "get_run").Context("run_id", id).Build()
	}
	return run, nil
}

// GetClassifications returns the rows of a run in insertion order.
func (ds *DataStore) GetClassifications(runID string) ([]Classification, error) {
	var rows []Classification
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if err := ds.DB.Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, dbError(err, "get_classifications").Context("run_id", runID).Build()
	}
	return rows, nil
}

// Close closes the underlying connection pool.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close").Build()
	}
	ds.DB = nil
	return sqlDB.Close()
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// performAutoMigration creates or updates the mirror tables.
func performAutoMigration(db *gorm.DB, dbType string) error {
	start := time.Now()
	if err := db.AutoMigrate(&Run{}, &Classification{}); err != nil {
		return dbError(fmt.Errorf("auto migration failed: %w", err), "migrate").
			Context("db_type", dbType).
			Build()
	}
	GetLogger().Debug("Database migration completed",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(GetLogger(), slowStatementThreshold),
	}
}

func dbError(err error, operation string) *errors.ErrorBuilder {
	return errors.New(err).
		Category(errors.CategoryDatabase).
		Context("operation", operation)
}
