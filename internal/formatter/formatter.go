// package formatter renders sync run reports as JSON, CSV or Markdown
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/desertthunder/wikimirror/internal/tasks"
)

// OutcomeSourceError marks a report row for a page whose source content could not be read.
const OutcomeSourceError = "source_error"

// Row is one line of a report: a source page on one target.
type Row struct {
	SourceTitle string `json:"source_title"`
	Target      string `json:"target,omitempty"`
	TargetTitle string `json:"target_title,omitempty"`
	Outcome     string `json:"outcome"`
	DryRun      bool   `json:"dry_run,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Report is the serialisable form of a run.
type Report struct {
	RunID      string            `json:"run_id,omitempty"`
	Source     string            `json:"source"`
	Status     string            `json:"status"`
	DryRun     bool              `json:"dry_run"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	Summary    models.RunSummary `json:"summary"`
	Rows       []Row             `json:"rows"`
}

// NewReport builds a [Report] from a finished run, keeping source listing order.
func NewReport(result *tasks.RunResult) Report {
	report := newReport(result.Run)
	report.Summary = result.Summary

	for _, p := range result.Pages {
		if p.SourceErr != nil {
			report.Rows = append(report.Rows, Row{
				SourceTitle: p.Title,
				Outcome:     OutcomeSourceError,
				DryRun:      result.Run.DryRun(),
				Detail:      p.SourceErr.Error(),
			})
			continue
		}
		for _, t := range p.Targets {
			report.Rows = append(report.Rows, Row{
				SourceTitle: t.SourceTitle,
				Target:      t.Target,
				TargetTitle: t.TargetTitle,
				Outcome:     string(t.Outcome),
				DryRun:      t.DryRun,
				Detail:      t.Detail(),
			})
		}
	}
	return report
}

// JournalReport builds a [Report] from a run and the outcomes journaled for it.
func JournalReport(run *models.Run, records []models.SyncRecord) Report {
	report := newReport(run)
	report.Summary = run.Summary()
	for _, rec := range records {
		report.Rows = append(report.Rows, Row{
			SourceTitle: rec.SourceTitle,
			Target:      rec.Target,
			TargetTitle: rec.TargetTitle,
			Outcome:     string(rec.Outcome),
			DryRun:      rec.DryRun,
			Detail:      rec.Detail,
		})
	}
	return report
}

func newReport(run *models.Run) Report {
	return Report{
		RunID:      run.ID(),
		Source:     run.Source(),
		Status:     run.Status(),
		DryRun:     run.DryRun(),
		StartedAt:  run.StartedAt(),
		FinishedAt: run.FinishedAt(),
		Error:      run.Error(),
		Rows:       []Row{},
	}
}

// ExportToJSON renders the report as indented JSON.
func ExportToJSON(report Report) ([]byte, error) {
	return shared.MarshalJSON(report, true)
}

// ExportToCSV renders one CSV record per row with columns: Source Title, Target, Target Title, Outcome, Dry Run, Detail
func ExportToCSV(report Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Source Title", "Target", "Target Title", "Outcome", "Dry Run", "Detail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range report.Rows {
		record := []string{
			row.SourceTitle,
			row.Target,
			row.TargetTitle,
			row.Outcome,
			strconv.FormatBool(row.DryRun),
			row.Detail,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the totals and a table of rows.
func ExportToMarkdown(report Report) ([]byte, error) {
	var buf bytes.Buffer

	title := "Sync report"
	if report.DryRun {
		title += " (dry run)"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	buf.WriteString(fmt.Sprintf("**Source**: %s\n", report.Source))
	if report.RunID != "" {
		buf.WriteString(fmt.Sprintf("**Run**: %s\n", report.RunID))
	}
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", report.Status))
	buf.WriteString(fmt.Sprintf("**Started**: %s\n", report.StartedAt.Format(time.RFC3339)))
	if report.Error != "" {
		buf.WriteString(fmt.Sprintf("**Error**: %s\n", report.Error))
	}
	buf.WriteString("\n")

	s := report.Summary
	buf.WriteString("## Totals\n\n")
	buf.WriteString("| Pages | Created | Updated | Unchanged | Failed | Source errors |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	buf.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d |\n\n", s.Pages, s.Created, s.Updated, s.Unchanged, s.Failed, s.SourceErrors))

	buf.WriteString("## Pages\n\n")
	if len(report.Rows) == 0 {
		buf.WriteString("No pages were synced.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("| Source title | Target | Target title | Outcome | Detail |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, row := range report.Rows {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			cell(row.SourceTitle), cell(row.Target), cell(row.TargetTitle), row.Outcome, cell(row.Detail)))
	}

	return buf.Bytes(), nil
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

// Format is a report encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// FormatFor picks the report format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: report %q must end in .json, .csv or .md", shared.ErrInvalidArgument, path)
	}
}

// Render encodes the report in the given format.
func Render(report Report, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(report)
	case FormatCSV:
		return ExportToCSV(report)
	case FormatMarkdown:
		return ExportToMarkdown(report)
	default:
		return nil, fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteReport writes the report to path, choosing the format from its extension.
func WriteReport(report Report, path string) (Format, error) {
	format, err := FormatFor(path)
	if err != nil {
		return "", err
	}

	data, err := Render(report, format)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}

	expanded, err := shared.ExpandPath(path)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(expanded, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return format, nil
}
