package analysis

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/qualitylab/partclass/internal/classifier"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/datastore"
	"github.com/qualitylab/partclass/internal/errors"
	"github.com/qualitylab/partclass/internal/imaging"
	"github.com/qualitylab/partclass/internal/ledger"
	"github.com/qualitylab/partclass/internal/logger"
	"github.com/qualitylab/partclass/internal/observability"
	"github.com/qualitylab/partclass/internal/observability/metrics"
	"github.com/qualitylab/partclass/internal/report"
)

// Summary describes a finished or aborted batch run.
type Summary struct {
	RunID      string
	Enumerated int
	Classified int
	Failures   []Failure
	LedgerPath string
	ReportPath string
	Duration   time.Duration
}

// Err returns an error describing the per-image failures of the run, or nil
// when every image was classified.
func (s *Summary) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	first := s.Failures[0]
	return errors.Newf("%d of %d images failed, first %s: %w", len(s.Failures), s.Enumerated, first.Path, first.Err).
		Category(errors.CategoryOf(first.Err)).
		Component("analysis").
		Context("run_id", s.RunID).
		Context("failures", len(s.Failures)).
		Build()
}

// Pipeline runs enumeration, cropping, classification and ledger output for
// one input folder.
type Pipeline struct {
	settings    *conf.Settings
	adapter     *classifier.Adapter
	transformer imaging.Transformer
	metrics     *observability.Metrics
	store       datastore.Interface
	bridge      *report.Bridge
	progress    ProgressFunc
	newRunID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTransformer overrides the crop engine selected by the settings.
func WithTransformer(t imaging.Transformer) Option {
	return func(p *Pipeline) { p.transformer = t }
}

// WithMetrics records pipeline metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithStore mirrors ledger rows into an opened datastore.
func WithStore(store datastore.Interface) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithReport publishes a report once the ledger has been written.
func WithReport(b *report.Bridge) Option {
	return func(p *Pipeline) { p.bridge = b }
}

// WithProgress reports per-stage progress to fn.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a pipeline classifying with adapter.
func New(settings *conf.Settings, adapter *classifier.Adapter, opts ...Option) (*Pipeline, error) {
	if settings == nil {
		return nil, errors.ValidationError("settings cannot be nil")
	}
	if adapter == nil {
		return nil, errors.Newf("classifier adapter cannot be nil").
			Category(errors.CategoryClassifierUnavailable).
			Build()
	}

	p := &Pipeline{
		settings: settings,
		adapter:  adapter,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.transformer == nil && settings.Crop.Enabled {
		t, err := imaging.NewTransformer(settings.Crop.Engine)
		if err != nil {
			return nil, err
		}
		p.transformer = t
	}
	return p, nil
}

// Run processes the input folder. Per-image failures are collected in the
// summary and the run goes on unless fail-fast is set; the caller decides
// the exit status from Summary.Err. A non-nil error means the run itself
// could not complete: missing input, ledger failure, cancellation, or the
// first failure under fail-fast.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	summary := &Summary{
		RunID:      p.newRunID(),
		LedgerPath: p.settings.Output.CSV,
	}
	ctx = logger.WithRunID(ctx, summary.RunID)
	log := runLogger(ctx)
	schema := p.adapter.Schema()

	paths, err := Enumerate(p.settings.Input.Folder, Extensions(p.settings.Input.Permissive))
	if err != nil {
		return summary, err
	}
	summary.Enumerated = len(paths)

	ldg, err := ledger.Open(p.settings.Output.CSV, schema.Header())
	if err != nil {
		return summary, err
	}

	log.Info("Starting batch",
		logger.String("input_folder", p.settings.Input.Folder),
		logger.Int("images", len(paths)),
		logger.String("schema", schema.Name),
		logger.String("ledger_path", ldg.Path()),
		logger.Bool("crop", p.settings.Crop.Enabled))

	mirror := p.openMirror(ctx, summary, schema.Name)
	defer p.finish(ctx, summary, mirror, start)

	handles, failures, err := Prepare(ctx, &p.settings.Crop, paths, PrepareOptions{
		Size:        schema.InputSize,
		Transformer: p.transformer,
		FailFast:    p.settings.Output.FailFast,
		Progress:    p.progress,
	})
	summary.Failures = append(summary.Failures, failures...)
	p.recordPrepare(len(handles), failures)
	if err != nil {
		return summary, err
	}

	for i, h := range handles {
		if err := checkCancelled(ctx); err != nil {
			return summary, err
		}
		p.reportProgress(StageClassify, i, len(handles))

		pred, err := p.adapter.Classify(ctx, h.Input)
		if err != nil {
			log.Warn("Failed to classify image",
				logger.String("image_path", h.Input),
				logger.String("source_path", h.Source),
				logger.String("category", string(errors.CategoryOf(err))),
				logger.Error(err))
			summary.Failures = append(summary.Failures, Failure{Path: h.Source, Stage: StageClassify, Err: err})
			p.recordImage(metrics.StageClassify, err)
			if p.settings.Output.FailFast {
				return summary, err
			}
			continue
		}
		p.recordImage(metrics.StageClassify, nil)

		if err := ldg.Append(ledger.Row{ImagePath: h.Input, Probabilities: pred.Probabilities}); err != nil {
			p.recordImage(metrics.StageLedger, err)
			return summary, err
		}
		summary.Classified++
		p.recordClassification(schema.Name, pred)

		if mirror != nil {
			before := mirror.Failed()
			mirror.Record(h.Input, h.Source, pred.Categories, pred.Probabilities)
			if mirror.Failed() > before {
				p.recordImage(metrics.StageMirror, errors.NewStd("mirror failed"))
			} else {
				p.recordImage(metrics.StageMirror, nil)
			}
		}

		top, prob := pred.Top()
		log.Debug("Image classified",
			logger.String("image_path", h.Input),
			logger.String("top_category", top),
			logger.Float64("probability", prob),
			logger.Duration("elapsed", pred.Elapsed))
	}

	p.reportProgress(StageClassify, len(handles), len(handles))

	if p.bridge != nil {
		if _, statErr := os.Stat(ldg.Path()); statErr != nil {
			log.Warn("Skipping report, ledger has not been written",
				logger.String("ledger_path", ldg.Path()))
			return summary, nil
		}
		dst, err := p.bridge.Publish(ctx, ldg.Path())
		if err != nil {
			return summary, err
		}
		summary.ReportPath = dst
	}
	return summary, nil
}

func (p *Pipeline) openMirror(ctx context.Context, summary *Summary, schemaName string) *datastore.Mirror {
	if p.store == nil {
		return nil
	}
	mirror, err := datastore.NewMirror(p.store, datastore.Run{
		ID:          summary.RunID,
		Schema:      schemaName,
		InputFolder: p.settings.Input.Folder,
		LedgerPath:  summary.LedgerPath,
	})
	if err != nil {
		runLogger(ctx).Warn("Results database unavailable, continuing with the ledger only",
			logger.Error(err))
		return nil
	}
	return mirror
}

// finish runs on every exit path once the ledger has been opened.
func (p *Pipeline) finish(ctx context.Context, summary *Summary, mirror *datastore.Mirror, start time.Time) {
	summary.Duration = time.Since(start)
	log := runLogger(ctx)

	if mirror != nil {
		mirror.Finish(summary.Classified, len(summary.Failures))
	}

	if p.metrics != nil {
		p.metrics.Pipeline.RecordRun(summary.Duration.Seconds(), float64(time.Now().Unix()))
		if path := p.settings.Output.Metrics.Path; path != "" {
			if err := p.metrics.WriteTextfile(path); err != nil {
				log.Warn("Failed to write metrics textfile",
					logger.String("path", path),
					logger.Error(err))
			}
		}
	}

	log.Info("Batch finished",
		logger.Int("images", summary.Enumerated),
		logger.Int("classified", summary.Classified),
		logger.Int("failures", len(summary.Failures)),
		logger.Duration("elapsed", summary.Duration))
}

func (p *Pipeline) reportProgress(stage string, done, total int) {
	if p.progress != nil {
		p.progress(stage, done, total)
	}
}

func (p *Pipeline) recordPrepare(prepared int, failures []Failure) {
	if p.metrics == nil || !p.settings.Crop.Enabled {
		return
	}
	for range prepared {
		p.metrics.Pipeline.RecordImage(metrics.StagePrepare, nil, "")
	}
	for _, f := range failures {
		p.metrics.Pipeline.RecordImage(metrics.StagePrepare, f.Err, string(errors.CategoryOf(f.Err)))
	}
}

func (p *Pipeline) recordImage(stage string, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.Pipeline.RecordImage(stage, err, string(errors.CategoryOf(err)))
}

func (p *Pipeline) recordClassification(schemaName string, pred classifier.Prediction) {
	if p.metrics == nil {
		return
	}
	top, _ := pred.Top()
	p.metrics.Pipeline.RecordClassification(schemaName, top, pred.Elapsed.Seconds())
	p.metrics.Pipeline.RecordLedgerRow()
}

// String renders a one-line summary for the command line.
func (s *Summary) String() string {
	return fmt.Sprintf("%d images, %d classified, %d failed, ledger %s",
		s.Enumerated, s.Classified, len(s.Failures), s.LedgerPath)
}
