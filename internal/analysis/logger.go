// Package analysis turns a folder of part photographs into classified
// ledger rows.
package analysis

import (
	"context"

	"github.com/qualitylab/partclass/internal/logger"
)

// GetLogger returns the analysis module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("analysis")
}

// runLogger returns the module logger scoped to the run in ctx.
func runLogger(ctx context.Context) logger.Logger {
	return GetLogger().WithContext(ctx)
}
