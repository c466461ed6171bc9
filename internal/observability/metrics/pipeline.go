// Package metrics provides Prometheus collectors for the classification pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages.
const (
	StagePrepare  = "prepare"
	StageClassify = "classify"
	StageLedger   = "ledger"
	StageMirror   = "mirror"
)

// Stage outcomes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PipelineMetrics contains the metrics of a batch run.
type PipelineMetrics struct {
	ImagesTotal            *prometheus.CounterVec
	ErrorsTotal            *prometheus.CounterVec
	ClassificationDuration *prometheus.HistogramVec
	PredictionsTotal       *prometheus.CounterVec
	LedgerRowsTotal        prometheus.Counter
	RunDuration            prometheus.Gauge
	LastRunTimestamp       prometheus.Gauge

	registry *prometheus.Registry
}

// NewPipelineMetrics creates the pipeline metrics and registers them with
// registry.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.ImagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partclass_images_total",
			Help: "Images handled per pipeline stage and outcome.",
		},
		[]string{"stage", "status"},
	)
	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partclass_errors_total",
			Help: "Per-image errors by stage and error category.",
		},
		[]string{"stage", "category"},
	)
	m.ClassificationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "partclass_classification_duration_seconds",
			Help:    "Model invocation time per image.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"schema"},
	)
	m.PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partclass_predictions_total",
			Help: "Classified images by most probable category.",
		},
		[]string{"schema", "category"},
	)
	m.LedgerRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "partclass_ledger_rows_total",
			Help: "Rows appended to the result ledger.",
		},
	)
	m.RunDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "partclass_run_duration_seconds",
			Help: "Wall time of the most recent batch run.",
		},
	)
	m.LastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "partclass_last_run_timestamp_seconds",
			Help: "Unix time at which the most recent batch run finished.",
		},
	)
}

// RecordImage counts one image passing through stage.
func (m *PipelineMetrics) RecordImage(stage string, err error, category string) {
	if err != nil {
		m.ImagesTotal.WithLabelValues(stage, StatusError).Inc()
		m.ErrorsTotal.WithLabelValues(stage, category).Inc()
		return
	}
	m.ImagesTotal.WithLabelValues(stage, StatusSuccess).Inc()
}

// RecordClassification records inference time and the winning category.
func (m *PipelineMetrics) RecordClassification(schema, top string, durationSeconds float64) {
	m.ClassificationDuration.WithLabelValues(schema).Observe(durationSeconds)
	m.PredictionsTotal.WithLabelValues(schema, top).Inc()
}

// RecordLedgerRow counts an appended ledger row.
func (m *PipelineMetrics) RecordLedgerRow() {
	m.LedgerRowsTotal.Inc()
}

// RecordRun stores the duration and completion time of a batch run.
func (m *PipelineMetrics) RecordRun(durationSeconds float64, finishedUnix float64) {
	m.RunDuration.Set(durationSeconds)
	m.LastRunTimestamp.Set(finishedUnix)
}

// Describe implements prometheus.Collector.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ImagesTotal.Describe(ch)
	m.ErrorsTotal.Describe(ch)
	m.ClassificationDuration.Describe(ch)
	m.PredictionsTotal.Describe(ch)
	ch <- m.LedgerRowsTotal.Desc()
	ch <- m.RunDuration.Desc()
	ch <- m.LastRunTimestamp.Desc()
}

// Collect implements prometheus.Collector.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ImagesTotal.Collect(ch)
	m.ErrorsTotal.Collect(ch)
	m.ClassificationDuration.Collect(ch)
	m.PredictionsTotal.Collect(ch)
	m.LedgerRowsTotal.Collect(ch)
	m.RunDuration.Collect(ch)
	m.LastRunTimestamp.Collect(ch)
}
