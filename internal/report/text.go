package report

import (
	"context"

	"github.com/k3a/html2text"
)

// TextRenderer writes a plain text rendition of the HTML report.
type TextRenderer struct {
	HTMLRenderer
}

// Extension implements Renderer.
func (r *TextRenderer) Extension() string { return ".txt" }

// Render implements Renderer.
func (r *TextRenderer) Render(ctx context.Context, ledgerPath, dst string) error {
	page, err := r.renderPage(ctx, ledgerPath)
	if err != nil {
		return err
	}
	text := html2text.HTML2Text(string(page))
	return writeFile(dst, []byte(text+"\n"))
}
