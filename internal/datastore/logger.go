// Package datastore mirrors ledger rows into a relational database through GORM.
package datastore

import "github.com/qualitylab/partclass/internal/logger"

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
