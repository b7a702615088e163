package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/shared"
)

const runColumns = `id, sequence, source, dry_run, started_at, finished_at,
	pages, created, updated, unchanged, failed, source_errors, error`

// RunRepository implements models.Repository[*models.Run] for sync run history.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run with a generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	s := run.Summary()
	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Source(),
		run.DryRun(),
		run.StartedAt(),
		nullTime(run.FinishedAt()),
		s.Pages,
		s.Created,
		s.Updated,
		s.Unchanged,
		s.Failed,
		s.SourceErrors,
		run.Error(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	return scanRun(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a run by its sequence number
func (r *RunRepository) GetBySequence(sequence int) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE sequence = ?`
	return scanRun(r.db.QueryRow(query, sequence))
}

// Update stores the run's finish time, totals and error
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE runs
		SET finished_at = ?, pages = ?, created = ?, updated = ?, unchanged = ?,
			failed = ?, source_errors = ?, error = ?
		WHERE id = ?
	`

	s := run.Summary()
	result, err := r.db.Exec(query,
		nullTime(run.FinishedAt()),
		s.Pages,
		s.Created,
		s.Updated,
		s.Unchanged,
		s.Failed,
		s.SourceErrors,
		run.Error(),
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrNotFound, run.ID())
	}

	return nil
}

// Delete removes a run and, through the foreign key, its outcomes
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves runs newest first.
//
// Supported criteria: "source" (string), "dry_run" (bool) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	args := []any{}

	if source, ok := criteria["source"].(string); ok && source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}

	if dryRun, ok := criteria["dry_run"].(bool); ok {
		query += " AND dry_run = ?"
		args = append(args, dryRun)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(limit int) ([]*models.Run, error) {
	return r.List(map[string]any{"limit": limit})
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		id         string
		sequence   int
		source     string
		dryRun     bool
		startedAt  time.Time
		finishedAt sql.NullTime
		s          models.RunSummary
		errText    string
	)

	err := row.Scan(
		&id, &sequence, &source, &dryRun, &startedAt, &finishedAt,
		&s.Pages, &s.Created, &s.Updated, &s.Unchanged, &s.Failed, &s.SourceErrors, &errText,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	var finished *time.Time
	if finishedAt.Valid {
		finished = &finishedAt.Time
	}

	return models.RestoreRun(id, sequence, source, dryRun, startedAt, finished, s, errText), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
