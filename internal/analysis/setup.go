package analysis

import (
	"time"

	"github.com/qualitylab/partclass/internal/classifier"
	"github.com/qualitylab/partclass/internal/conf"
	"github.com/qualitylab/partclass/internal/datastore"
	"github.com/qualitylab/partclass/internal/logger"
	"github.com/qualitylab/partclass/internal/observability"
	"github.com/qualitylab/partclass/internal/report"
)

// LoadClassifier loads the TFLite model named by settings and binds it to
// the configured schema. It fails before any image is touched when the
// model is missing or does not fit the schema.
func LoadClassifier(settings *conf.ModelSettings) (*classifier.Adapter, error) {
	schema, err := classifier.LookupSchema(settings.Schema)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	model, err := classifier.LoadTFLiteModel(settings.Path, schema, settings.Threads)
	if err != nil {
		return nil, err
	}

	adapter, err := classifier.NewAdapter(model, schema)
	if err != nil {
		_ = model.Close()
		return nil, err
	}

	GetLogger().Info("Classifier loaded",
		logger.String("model_path", settings.Path),
		logger.String("schema", schema.Name),
		logger.String("layout", model.InputLayout().String()),
		logger.Duration("elapsed", time.Since(start)))
	return adapter, nil
}

// NewFromSettings builds a pipeline with the optional outputs enabled in
// settings, followed by extra. The returned cleanup closes what was opened
// and must be called once the run is over.
func NewFromSettings(settings *conf.Settings, adapter *classifier.Adapter, extra ...Option) (*Pipeline, func(), error) {
	var opts []Option
	cleanup := func() {}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, cleanup, err
	}
	opts = append(opts, WithMetrics(m))

	if settings.Output.Database.Enabled {
		store, err := datastore.New(&settings.Output.Database)
		if err != nil {
			return nil, cleanup, err
		}
		if err := store.Open(); err != nil {
			GetLogger().Warn("Results database unavailable, continuing with the ledger only",
				logger.String("driver", settings.Output.Database.Driver),
				logger.Error(err))
		} else {
			opts = append(opts, WithStore(store))
			cleanup = func() {
				if err := store.Close(); err != nil {
					GetLogger().Warn("Failed to close results database", logger.Error(err))
				}
			}
		}
	}

	if settings.Output.HTML {
		renderer, err := report.New(settings.Output.ReportFormat)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		opts = append(opts, WithReport(report.NewBridge(renderer)))
	}

	p, err := New(settings, adapter, append(opts, extra...)...)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return p, cleanup, nil
}
