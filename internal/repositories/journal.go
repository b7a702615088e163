package repositories

import (
	"database/sql"

	"github.com/desertthunder/wikimirror/internal/models"
)

// Journal records sync runs as they happen.
type Journal struct {
	Runs     *RunRepository
	Outcomes *OutcomeRepository
}

// NewJournal creates a Journal over an already migrated database.
func NewJournal(db *sql.DB) *Journal {
	return &Journal{Runs: NewRunRepository(db), Outcomes: NewOutcomeRepository(db)}
}

func (j *Journal) StartRun(run *models.Run) error {
	return j.Runs.Create(run)
}

func (j *Journal) RecordOutcome(rec models.SyncRecord) error {
	return j.Outcomes.Create(&rec)
}

func (j *Journal) FinishRun(run *models.Run) error {
	return j.Runs.Update(run)
}
