package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/wikimirror/internal/formatter"
	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/repositories"
	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/desertthunder/wikimirror/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) openJournal() (*sql.DB, *repositories.Journal, error) {
	config, err := r.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !config.Journal.Enabled {
		r.logger.Warn("journal is disabled; showing whatever an earlier run recorded", "path", config.Journal.Path)
	}

	db, err := shared.OpenJournal(config.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return db, repositories.NewJournal(db), nil
}

// HistoryRuns lists recent runs, newest first.
func (r *Runner) HistoryRuns(ctx context.Context, cmd *cli.Command) error {
	db, journal, err := r.openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := journal.Runs.Recent(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		reports := make([]formatter.Report, 0, len(runs))
		for _, run := range runs {
			reports = append(reports, formatter.JournalReport(run, nil))
		}
		return r.writeJSON(reports, true)
	}
	return r.writePlain("%s", ui.RenderRuns(runs))
}

// HistoryShow prints one run's outcomes as a Markdown report, or writes the report to --report.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("run")
	if ref == "" {
		return fmt.Errorf("%w: run id or sequence number", shared.ErrMissingArgument)
	}

	db, journal, err := r.openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := findRun(journal.Runs, ref)
	if err != nil {
		return err
	}

	var only models.Outcome
	if cmd.Bool("failed") {
		only = models.OutcomeFailed
	}
	records, err := journal.Outcomes.ListByRun(run.ID(), only)
	if err != nil {
		return err
	}

	report := formatter.JournalReport(run, records)
	if path := cmd.String("report"); path != "" {
		format, err := formatter.WriteReport(report, path)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %s report for run #%d to %s\n", format, run.Sequence(), path)
	}

	data, err := formatter.ExportToMarkdown(report)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// findRun accepts a run UUID, a sequence number, or "#" followed by a sequence number.
func findRun(runs *repositories.RunRepository, ref string) (*models.Run, error) {
	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		run, err := runs.GetBySequence(seq)
		if err == nil || !errors.Is(err, shared.ErrNotFound) {
			return run, err
		}
	}

	run, err := runs.Get(ref)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", ref, err)
	}
	return run, nil
}
