// Package conf provides configuration management for partclass.
package conf

import "github.com/qualitylab/partclass/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so that it follows
// the central logger once it has been configured.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
