package datastore

import "time"

// Run records one invocation of the batch pipeline.
type Run struct {
	ID          string `gorm:"primaryKey;size:36"`
	Schema      string `gorm:"size:16"`
	InputFolder string
	LedgerPath  string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Images      int
	Failures    int
}

// Classification mirrors one ledger row.
type Classification struct {
	ID             uint   `gorm:"primaryKey"`
	RunID          string `gorm:"index;size:36"`
	ImagePath      string `gorm:"index;size:1024"`
	SourcePath     string `gorm:"size:1024"`
	Schema         string `gorm:"size:16"`
	TopCategory    string `gorm:"index;size:32"`
	TopProbability float64
	Probabilities  map[string]float64 `gorm:"serializer:json"`
	CreatedAt      time.Time
}
