package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/ledger"
)

type countingRenderer struct {
	calls []string
	err   error
}

func (r *countingRenderer) Extension() string { return ".html" }

func (r *countingRenderer) Render(_ context.Context, ledgerPath, dst string) error {
	r.calls = append(r.calls, ledgerPath+"->"+dst)
	return r.err
}

func writeLedger(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "results.csv")
	l, err := ledger.Open(path, []string{"image_path", "good", "porous", "bulging"})
	require.NoError(t, err)
	require.NoError(t, l.Append(ledger.Row{ImagePath: "a.jpg", Probabilities: []float64{0.7, 0.2, 0.1}}))
	require.NoError(t, l.Append(ledger.Row{ImagePath: "b.jpg", Probabilities: []float64{0.1, 0.8, 0.1}}))
	require.NoError(t, l.Append(ledger.Row{ImagePath: "c.jpg", Probabilities: []float64{0.5, 0.25, 0.25}}))
	return path
}

func TestBridgeInvokesRendererOnce(t *testing.T) {
	t.Parallel()

	r := &countingRenderer{}
	b := NewBridge(r)

	dst, err := b.Publish(context.Background(), "out/results.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "results.html"), dst)
	assert.Equal(t, []string{"out/results.csv->" + filepath.Join("out", "results.html")}, r.calls)
}

func TestBridgeWrapsRendererError(t *testing.T) {
	t.Parallel()

	r := &countingRenderer{err: errors.NewStd("boom")}
	_, err := NewBridge(r).Publish(context.Background(), "results.csv")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryReport))
	assert.Len(t, r.calls, 1)
}

func TestDestination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		renderer Renderer
		ledger   string
		want     string
	}{
		{"html", &HTMLRenderer{}, "results.csv", "results.html"},
		{"text", &TextRenderer{}, "runs/day1.csv", "runs/day1.txt"},
		{"no extension", &HTMLRenderer{}, "results", "results.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewBridge(tt.renderer).Destination(tt.ledger))
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	path := writeLedger(t, t.TempDir())
	table, err := ledger.ReadAll(path)
	require.NoError(t, err)

	assert.Equal(t, []CategoryCount{
		{Category: "good", Count: 2},
		{Category: "porous", Count: 1},
		{Category: "bulging", Count: 0},
	}, Summarize(table))
}

func TestHTMLRenderer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeLedger(t, dir)

	r := &HTMLRenderer{Now: func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }}
	dst, err := NewBridge(r).Publish(context.Background(), path)
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, "3 images, generated 2024-01-02T03:04:05Z")
	assert.Contains(t, page, "<tr><td>good</td><td>2</td></tr>")
	assert.Contains(t, page, "<td>b.jpg</td><td>0.1000</td><td>0.8000</td><td>0.1000</td><td>porous</td>")
}

func TestTextRenderer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeLedger(t, dir)

	dst, err := NewBridge(&TextRenderer{}).Publish(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "results.txt"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "<td>")
	assert.Contains(t, text, "a.jpg")
	assert.Contains(t, text, "0.8000")
}

func TestRenderMissingLedger(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := (&HTMLRenderer{}).Render(context.Background(), filepath.Join(dir, "missing.csv"), filepath.Join(dir, "r.html"))
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "r.html"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	r, err := New("html")
	require.NoError(t, err)
	assert.Equal(t, ".html", r.Extension())

	r, err = New("text")
	require.NoError(t, err)
	assert.Equal(t, ".txt", r.Extension())

	_, err = New("pdf")
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
