// Package report renders a human-readable summary of a result ledger.
package report

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/logger"
)

// Renderer turns the ledger at ledgerPath into a report written to dst.
type Renderer interface {
	Render(ctx context.Context, ledgerPath, dst string) error
	Extension() string
}

// New returns the renderer for format, "html" or "text".
func New(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "html":
		return &HTMLRenderer{}, nil
	case "text", "txt":
		return &TextRenderer{}, nil
	default:
		return nil, errors.Newf("unsupported report format %q", format).
			Category(errors.CategoryConfiguration).
			Context("format", format).
			Build()
	}
}

// Bridge publishes a report next to a finished ledger.
type Bridge struct {
	renderer Renderer
}

// NewBridge creates a bridge around renderer.
func NewBridge(renderer Renderer) *Bridge {
	return &Bridge{renderer: renderer}
}

// Destination returns the report path for ledgerPath: same directory and
// base name, with the renderer's extension.
func (b *Bridge) Destination(ledgerPath string) string {
	return strings.TrimSuffix(ledgerPath, filepath.Ext(ledgerPath)) + b.renderer.Extension()
}

// Publish renders the report for ledgerPath once and returns its path.
func (b *Bridge) Publish(ctx context.Context, ledgerPath string) (string, error) {
	dst := b.Destination(ledgerPath)
	if err := b.renderer.Render(ctx, ledgerPath, dst); err != nil {
		return "", errors.New(err).
			Category(errors.CategoryReport).
			Context("ledger_path", ledgerPath).
			Context("report_path", dst).
			Build()
	}

	GetLogger().Info("Report written",
		logger.String("ledger_path", ledgerPath),
		logger.String("report_path", dst))
	return dst, nil
}

// GetLogger returns the report module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("report")
}
