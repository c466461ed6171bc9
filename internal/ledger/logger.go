package ledger

import "github.com/qualitylab/partclass/internal/logger"

// GetLogger returns the ledger module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("ledger")
}
