package datastore

import (
	"time"

	"github.com/qualitylab/partclass/internal/logger"
)

// Mirror copies the rows of one pipeline run into a store. Failures are
// logged and counted but never returned, so the CSV ledger stays the
// authoritative record.
type Mirror struct {
	store  Interface
	run    Run
	failed int
}

// NewMirror records the start of run in store.
func NewMirror(store Interface, run Run) (*Mirror, error) {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if err := store.SaveRun(&run); err != nil {
		return nil, err
	}
	return &Mirror{store: store, run: run}, nil
}

// RunID returns the mirrored run identifier.
func (m *Mirror) RunID() string { return m.run.ID }

// Record mirrors one classification result.
func (m *Mirror) Record(imagePath, sourcePath string, categories []string, probabilities []float64) {
	c := &Classification{
		RunID:         m.run.ID,
		ImagePath:     imagePath,
		SourcePath:    sourcePath,
		Schema:        m.run.Schema,
		Probabilities: make(map[string]float64, len(categories)),
	}
	for i, name := range categories {
		p := probabilities[i]
		c.Probabilities[name] = p
		if i == 0 || p > c.TopProbability {
			c.TopCategory, c.TopProbability = name, p
		}
	}

	if err := m.store.SaveClassification(c); err != nil {
		m.failed++
		GetLogger().Warn("Failed to mirror classification",
			logger.String("run_id", m.run.ID),
			logger.String("image_path", imagePath),
			logger.Error(err))
	}
}

// Failed returns the number of rows that could not be mirrored.
func (m *Mirror) Failed() int { return m.failed }

// Finish stores the final run counters.
func (m *Mirror) Finish(images, failures int) {
	now := time.Now()
	m.run.FinishedAt = &now
	m.run.Images = images
	m.run.Failures = failures
	if err := m.store.SaveRun(&m.run); err != nil {
		GetLogger().Warn("Failed to record run completion",
			logger.String("run_id", m.run.ID),
			logger.Error(err))
	}
}
