package models

import (
	"errors"
	"fmt"
	"time"
)

// RunSummary counts outcomes across a run.
type RunSummary struct {
	Pages        int `json:"pages"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Unchanged    int `json:"unchanged"`
	Failed       int `json:"failed"`
	SourceErrors int `json:"source_errors"`
}

// Add counts one target outcome.
func (s *RunSummary) Add(o Outcome) {
	switch o {
	case OutcomeCreated:
		s.Created++
	case OutcomeUpdated:
		s.Updated++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomeFailed:
		s.Failed++
	}
}

// Count returns the number of outcomes of kind o.
func (s RunSummary) Count(o Outcome) int {
	switch o {
	case OutcomeCreated:
		return s.Created
	case OutcomeUpdated:
		return s.Updated
	case OutcomeUnchanged:
		return s.Unchanged
	case OutcomeFailed:
		return s.Failed
	}
	return 0
}

// Outcomes is the total number of page/target results.
func (s RunSummary) Outcomes() int {
	return s.Created + s.Updated + s.Unchanged + s.Failed
}

// OK reports whether nothing failed.
func (s RunSummary) OK() bool {
	return s.Failed == 0 && s.SourceErrors == 0
}

// Run is one pass of the synchronizer over the source wiki.
type Run struct {
	id         string
	sequence   int
	source     string
	dryRun     bool
	startedAt  time.Time
	finishedAt *time.Time
	summary    RunSummary
	err        string
}

// NewRun creates a run that starts now.
func NewRun(source string, dryRun bool) *Run {
	return &Run{source: source, dryRun: dryRun, startedAt: time.Now().UTC()}
}

// RestoreRun rebuilds a run read back from storage.
func RestoreRun(id string, sequence int, source string, dryRun bool, startedAt time.Time, finishedAt *time.Time, summary RunSummary, errText string) *Run {
	return &Run{
		id:         id,
		sequence:   sequence,
		source:     source,
		dryRun:     dryRun,
		startedAt:  startedAt,
		finishedAt: finishedAt,
		summary:    summary,
		err:        errText,
	}
}

func (r *Run) ID() string             { return r.id }
func (r *Run) Sequence() int          { return r.sequence }
func (r *Run) Source() string         { return r.source }
func (r *Run) DryRun() bool           { return r.dryRun }
func (r *Run) StartedAt() time.Time   { return r.startedAt }
func (r *Run) FinishedAt() *time.Time { return r.finishedAt }
func (r *Run) Summary() RunSummary    { return r.summary }
func (r *Run) Error() string          { return r.err }
func (r *Run) CreatedAt() time.Time   { return r.startedAt }

func (r *Run) UpdatedAt() time.Time {
	if r.finishedAt != nil {
		return *r.finishedAt
	}
	return r.startedAt
}

func (r *Run) SetID(id string) {
	r.id = id
}

func (r *Run) SetSequence(seq int) {
	r.sequence = seq
}

// Finished reports whether [Run.Finish] has been called.
func (r *Run) Finished() bool {
	return r.finishedAt != nil
}

// Elapsed is the wall time between start and finish, or zero while running.
func (r *Run) Elapsed() time.Duration {
	return r.UpdatedAt().Sub(r.startedAt)
}

// Finish stamps the run with its totals and, when the run aborted, the fatal error.
func (r *Run) Finish(summary RunSummary, err error) {
	now := time.Now().UTC()
	r.finishedAt = &now
	r.summary = summary
	if err != nil {
		r.err = err.Error()
	}
}

// Status is a one-word description of the run state.
func (r *Run) Status() string {
	switch {
	case !r.Finished():
		return "running"
	case r.err != "":
		return "aborted"
	case !r.summary.OK():
		return "partial"
	default:
		return "ok"
	}
}

func (r *Run) Validate() error {
	if r.source == "" {
		return errors.New("run source is required")
	}
	if r.startedAt.IsZero() {
		return errors.New("run start time is required")
	}
	if r.finishedAt != nil && r.finishedAt.Before(r.startedAt) {
		return fmt.Errorf("run finished at %v before it started at %v", *r.finishedAt, r.startedAt)
	}
	return nil
}

// SyncRecord is the journaled outcome of one page on one target.
type SyncRecord struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	SourceTitle string    `json:"source_title"`
	Target      string    `json:"target"`
	TargetTitle string    `json:"target_title"`
	Outcome     Outcome   `json:"outcome"`
	DryRun      bool      `json:"dry_run"`
	Detail      string    `json:"detail,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func (r SyncRecord) Validate() error {
	if r.RunID == "" {
		return errors.New("sync record needs a run id")
	}
	if r.SourceTitle == "" || r.Target == "" {
		return errors.New("sync record needs a source title and a target")
	}
	if _, err := ParseOutcome(string(r.Outcome)); err != nil {
		return err
	}
	return nil
}
