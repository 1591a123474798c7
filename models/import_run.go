package models

import (
	"time"
)

// ImportRun protokolliert einen Batch-Lauf für eine Quelle.
type ImportRun struct {
	ID        string    `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	// Dry-Runs werden nicht protokolliert; hier landen nur echte Läufe.
	Source     string     `json:"source" gorm:"index;size:64;not null"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Persisted int `json:"persisted"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// Fehlschläge gruppiert nach Stage/Grund, als JSON
	Summary []byte `json:"summary,omitempty" gorm:"type:jsonb"`
}

func (ImportRun) TableName() string { return "import_runs" }
