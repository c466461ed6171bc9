package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/qualitylab/partclass/internal/ledger"
)

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"prob": func(v float64) string { return strconv.FormatFloat(v, 'f', ledger.Decimals, 64) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Total}} images, generated {{.Generated}}</p>
<h2>Summary</h2>
<table>
<tr><th>Category</th><th>Images</th></tr>
{{- range .Summary}}
<tr><td>{{.Category}}</td><td>{{.Count}}</td></tr>
{{- end}}
</table>
<h2>Results</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}<th>prediction</th></tr>
{{- range .Rows}}
<tr><td>{{.ImagePath}}</td>{{range .Probabilities}}<td>{{prob .}}</td>{{end}}<td>{{.Top}}</td></tr>
{{- end}}
</table>
</body>
</html>
`))

// CategoryCount is the number of ledger rows whose most probable category is
// Category.
type CategoryCount struct {
	Category string
	Count    int
}

type pageRow struct {
	ledger.Row
	Top string
}

type pageData struct {
	Title     string
	Generated string
	Total     int
	Header    []string
	Summary   []CategoryCount
	Rows      []pageRow
}

// Summarize counts rows per most probable category in header order. Ties
// resolve to the earlier category.
func Summarize(table *ledger.Table) []CategoryCount {
	categories := table.Categories()
	counts := make([]CategoryCount, len(categories))
	for i, c := range categories {
		counts[i].Category = c
	}
	for _, row := range table.Rows {
		if i := topIndex(row.Probabilities); i >= 0 {
			counts[i].Count++
		}
	}
	return counts
}

func topIndex(probs []float64) int {
	if len(probs) == 0 {
		return -1
	}
	return slices.Index(probs, slices.Max(probs))
}

// HTMLRenderer writes a single HTML page with a per-category summary and
// the full probability table.
type HTMLRenderer struct {
	// Now overrides the generation timestamp, for tests.
	Now func() time.Time
}

// Extension implements Renderer.
func (r *HTMLRenderer) Extension() string { return ".html" }

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, ledgerPath, dst string) error {
	page, err := r.renderPage(ctx, ledgerPath)
	if err != nil {
		return err
	}
	return writeFile(dst, page)
}

func (r *HTMLRenderer) renderPage(ctx context.Context, ledgerPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := ledger.ReadAll(ledgerPath)
	if err != nil {
		return nil, err
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	data := pageData{
		Title:     "Classification report: " + filepath.Base(ledgerPath),
		Generated: now().Format(time.RFC3339),
		Total:     len(table.Rows),
		Header:    table.Header,
		Summary:   Summarize(table),
		Rows:      make([]pageRow, len(table.Rows)),
	}
	categories := table.Categories()
	for i, row := range table.Rows {
		data.Rows[i].Row = row
		if j := topIndex(row.Probabilities); j >= 0 {
			data.Rows[i].Top = categories[j]
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing report template: %w", err)
	}
	return buf.Bytes(), nil
}

func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
