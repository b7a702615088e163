package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/shared"
)

// OutcomeRepository stores the per-target results of a run. Records are append-only.
type OutcomeRepository struct {
	db *sql.DB
}

// NewOutcomeRepository creates a new OutcomeRepository with the given database connection
func NewOutcomeRepository(db *sql.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Create inserts rec with a generated ID
func (r *OutcomeRepository) Create(rec *models.SyncRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO outcomes (id, run_id, source_title, target, target_title, outcome, dry_run, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		id,
		rec.RunID,
		rec.SourceTitle,
		rec.Target,
		rec.TargetTitle,
		string(rec.Outcome),
		rec.DryRun,
		rec.Detail,
		rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}

	rec.ID = id
	return nil
}

// ListByRun returns a run's outcomes in the order they were recorded.
//
// An empty outcome filters nothing; otherwise only records with that outcome are returned.
func (r *OutcomeRepository) ListByRun(runID string, outcome models.Outcome) ([]models.SyncRecord, error) {
	query := `
		SELECT id, run_id, source_title, target, target_title, outcome, dry_run, detail, recorded_at
		FROM outcomes
		WHERE run_id = ?
	`
	args := []any{runID}

	if outcome != "" {
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	}
	query += " ORDER BY recorded_at ASC, rowid ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var records []models.SyncRecord
	for rows.Next() {
		var (
			rec     models.SyncRecord
			outcome string
		)
		err := rows.Scan(&rec.ID, &rec.RunID, &rec.SourceTitle, &rec.Target, &rec.TargetTitle,
			&outcome, &rec.DryRun, &rec.Detail, &rec.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		if rec.Outcome, err = models.ParseOutcome(outcome); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}
