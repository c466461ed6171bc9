package analysis

import (
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/qualitylab/partclass/internal/classifier"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/datastore"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/imaging"
	"github.com/qualitylab/partclass/internal/observability"
	"github.com/qualitylab/partclass/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("gopkg.in/natefinch/lumberjack%2ev2.(*Logger).millRun"),
	)
}

// fakeModel returns the same raw scores for every input.
type fakeModel struct {
	scores []float32
	calls  atomic.Int32
}

func (m *fakeModel) Infer(_ context.Context, _ []float32) ([]float32, error) {
	m.calls.Add(1)
	return m.scores, nil
}

func (m *fakeModel) InputLayout() classifier.Layout { return classifier.NHWC }
func (m *fakeModel) Close() error                   { return nil }

func newAdapter(t *testing.T) (*classifier.Adapter, *fakeModel) {
	t.Helper()
	model := &fakeModel{scores: []float32{2.0, 0.5, 0.1}}
	adapter, err := classifier.NewAdapter(model, classifier.ThreeClass)
	require.NoError(t, err)
	return adapter, model
}

func writeGray(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	require.NoError(t, imaging.EncodeFile(path, img))
}

// testSettings returns crop-enabled settings rooted in a temporary directory
// with a.jpg and b.jpg as input.
func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()

	settings, err := conf.Defaults()
	require.NoError(t, err)

	settings.Input.Folder = filepath.Join(dir, "input")
	settings.Crop.Enabled = true
	settings.Crop.ProcessingFolder = filepath.Join(dir, "processing")
	settings.Crop.LeftUp = "10,10"
	settings.Crop.RightDown = "200,200"
	settings.Crop.Normalise = false
	settings.Output.CSV = filepath.Join(dir, "results.csv")

	writeGray(t, filepath.Join(settings.Input.Folder, "a.jpg"), 300, 300)
	writeGray(t, filepath.Join(settings.Input.Folder, "b.jpg"), 300, 300)
	return settings
}

func readLedger(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	adapter, model := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 2, summary.Enumerated)
	assert.Equal(t, 2, summary.Classified)
	assert.NotEmpty(t, summary.RunID)
	assert.EqualValues(t, 2, model.calls.Load())

	for _, name := range []string{"a.jpg", "b.jpg"} {
		img, err := imaging.DecodeFile(filepath.Join(settings.Crop.ProcessingFolder, name))
		require.NoError(t, err)
		assert.Equal(t, image.Pt(224, 224), img.Bounds().Size())
	}

	records := readLedger(t, settings.Output.CSV)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"image_path", "good", "porous", "bulging"}, records[0])
	assert.Equal(t, filepath.Join(settings.Crop.ProcessingFolder, "a.jpg"), records[1][0])
	assert.Equal(t, filepath.Join(settings.Crop.ProcessingFolder, "b.jpg"), records[2][0])

	for _, row := range records[1:] {
		require.Len(t, row, 4)
		sum := 0.0
		for _, field := range row[1:] {
			v, err := strconv.ParseFloat(field, 64)
			require.NoError(t, err)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-3)
	}
}

func TestRunFiveClassSchema(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Model.Schema = classifier.FiveClass.Name
	model := &fakeModel{scores: []float32{0.1, 0.2, 3.0, 0.4, 0.5}}
	adapter, err := classifier.NewAdapter(model, classifier.FiveClass)
	require.NoError(t, err)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.NoError(t, err)
	require.NoError(t, summary.Err())
	assert.Equal(t, 2, summary.Classified)

	for _, name := range []string{"a.jpg", "b.jpg"} {
		img, err := imaging.DecodeFile(filepath.Join(settings.Crop.ProcessingFolder, name))
		require.NoError(t, err)
		assert.Equal(t, image.Pt(196, 196), img.Bounds().Size())
	}

	records := readLedger(t, settings.Output.CSV)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"image_path", "bulging", "edges", "good", "porous", "powder"}, records[0])
	for _, row := range records[1:] {
		require.Len(t, row, 6)
		good, err := strconv.ParseFloat(row[3], 64)
		require.NoError(t, err)
		assert.Greater(t, good, 0.5, "good carries the highest score")
	}
}

func TestRunAppendsAcrossInvocations(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	adapter, _ := newAdapter(t)

	for range 3 {
		p, err := New(settings, adapter)
		require.NoError(t, err)
		_, err = p.Run(t.Context())
		require.NoError(t, err)
	}

	records := readLedger(t, settings.Output.CSV)
	assert.Len(t, records, 1+3*2)
}

func TestRunOutOfBoundsWritesNoRow(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	require.NoError(t, os.Remove(filepath.Join(settings.Input.Folder, "b.jpg")))
	settings.Crop.LeftUp = "9999,9999"
	settings.Crop.RightDown = "9999,9999"
	adapter, model := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, StagePrepare, summary.Failures[0].Stage)

	var oob *imaging.OutOfBoundsError
	require.ErrorAs(t, summary.Failures[0].Err, &oob)
	assert.Equal(t, 300, oob.Width)
	assert.Equal(t, 300, oob.Height)

	runErr := summary.Err()
	require.Error(t, runErr)
	assert.True(t, errors.IsCategory(runErr, errors.CategoryGeometry))

	assert.Zero(t, model.calls.Load())
	assert.NoFileExists(t, settings.Output.CSV)
}

func TestRunContinuesPastBadImage(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Crop.Enabled = false
	// a.jpg sorts first and cannot be decoded
	require.NoError(t, os.WriteFile(filepath.Join(settings.Input.Folder, "a.jpg"), []byte("not a jpeg"), 0o644))
	adapter, _ := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Classified)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, StageClassify, summary.Failures[0].Stage)
	assert.True(t, errors.IsCategory(summary.Failures[0].Err, errors.CategoryImageDecode))

	records := readLedger(t, settings.Output.CSV)
	require.Len(t, records, 2)
	assert.Equal(t, filepath.Join(settings.Input.Folder, "b.jpg"), records[1][0])
}

func TestRunFailFast(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Crop.Enabled = false
	settings.Output.FailFast = true
	require.NoError(t, os.WriteFile(filepath.Join(settings.Input.Folder, "a.jpg"), []byte("not a jpeg"), 0o644))
	adapter, model := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
	assert.Zero(t, summary.Classified)
	assert.Zero(t, model.calls.Load())
	assert.NoFileExists(t, settings.Output.CSV)
}

func TestRunMissingInputFolder(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	settings.Input.Folder = filepath.Join(t.TempDir(), "missing")
	adapter, _ := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	_, err = p.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingSource))
}

func TestRunForeignLedgerHeader(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	require.NoError(t, os.WriteFile(settings.Output.CSV,
		[]byte("image_path,bulging,edges,good,porous,powder\n"), 0o644))
	adapter, model := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	_, err = p.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryLedger))
	assert.Zero(t, model.calls.Load())
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	adapter, model := newAdapter(t)

	p, err := New(settings, adapter)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err = p.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
	assert.Zero(t, model.calls.Load())
}

func TestRunWithMetricsStoreAndReport(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	dir := filepath.Dir(settings.Output.CSV)
	settings.Output.Metrics.Path = filepath.Join(dir, "metrics", "partclass.prom")
	adapter, _ := newAdapter(t)

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	store, err := datastore.New(&conf.DatabaseSettings{Driver: conf.DriverSQLite, Path: filepath.Join(dir, "partclass.db")})
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	p, err := New(settings, adapter,
		WithMetrics(m),
		WithStore(store),
		WithReport(report.NewBridge(&report.HTMLRenderer{})))
	require.NoError(t, err)

	summary, err := p.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "results.html"), summary.ReportPath)
	assert.FileExists(t, summary.ReportPath)
	assert.FileExists(t, settings.Output.Metrics.Path)

	rows, err := store.GetClassifications(summary.RunID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "good", rows[0].TopCategory)
	assert.Equal(t, filepath.Join(settings.Input.Folder, "a.jpg"), rows[0].SourcePath)

	run, err := store.GetRun(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Images)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	adapter, _ := newAdapter(t)
	_, err := New(nil, adapter)
	assert.Error(t, err)

	settings, err := conf.Defaults()
	require.NoError(t, err)
	_, err = New(settings, nil)
	assert.True(t, errors.IsCategory(err, errors.CategoryClassifierUnavailable))
}

func TestRunReportsProgress(t *testing.T) {
	t.Parallel()

	settings := testSettings(t)
	adapter, _ := newAdapter(t)

	type event struct {
		stage       string
		done, total int
	}
	var events []event
	p, err := New(settings, adapter, WithProgress(func(stage string, done, total int) {
		events = append(events, event{stage, done, total})
	}))
	require.NoError(t, err)

	_, err = p.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, []event{
		{StagePrepare, 0, 2}, {StagePrepare, 1, 2}, {StagePrepare, 2, 2},
		{StageClassify, 0, 2}, {StageClassify, 1, 2}, {StageClassify, 2, 2},
	}, events)
}
