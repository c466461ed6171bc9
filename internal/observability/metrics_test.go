package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitylab/partclass/internal/observability/metrics"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Pipeline.RecordImage(metrics.StageClassify, nil, "")
	m.Pipeline.RecordLedgerRow()

	path := filepath.Join(t.TempDir(), "textfile", "partclass.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `partclass_images_total{stage="classify",status="success"} 1`)
	assert.Contains(t, string(data), "partclass_ledger_rows_total 1")
}
