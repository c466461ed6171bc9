package imaging

import "github.com/qualitylab/partclass/internal/logger"

// GetLogger returns the imaging module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imaging")
}
