package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/tasks"
)

// RenderOutcome colors an outcome word.
func RenderOutcome(o models.Outcome) string {
	return styles.Outcome(o).Render(string(o))
}

// RenderResult summarises a finished run: a title line, the totals, and every failure.
func RenderResult(result *tasks.RunResult) string {
	var b strings.Builder
	s := result.Summary

	title := "✓ Sync complete"
	style := styles.ok
	switch result.Run.Status() {
	case "aborted":
		title, style = "✗ Sync aborted", styles.err
	case "partial":
		title, style = "! Sync finished with failures", styles.warn
	}
	if result.Run.DryRun() {
		title += " (dry run)"
	}
	b.WriteString(style.Render(title))
	b.WriteString("\n")

	fmt.Fprintf(&b, "Pages: %d  %s %d  %s %d  %s %d  %s %d",
		s.Pages,
		RenderOutcome(models.OutcomeCreated), s.Created,
		RenderOutcome(models.OutcomeUpdated), s.Updated,
		RenderOutcome(models.OutcomeUnchanged), s.Unchanged,
		RenderOutcome(models.OutcomeFailed), s.Failed,
	)
	if s.SourceErrors > 0 {
		fmt.Fprintf(&b, "  source errors %d", s.SourceErrors)
	}
	fmt.Fprintf(&b, "\nElapsed: %s\n", result.Run.Elapsed().Round(time.Millisecond))

	if msg := result.Run.Error(); msg != "" {
		b.WriteString(styles.err.Render("Error: " + msg))
		b.WriteString("\n")
	}

	if failures := result.SourceFailures(); len(failures) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("Could not read %d source pages:", len(failures))))
		for _, p := range failures {
			fmt.Fprintf(&b, "\n  • %s: %v", p.Title, p.SourceErr)
		}
		b.WriteString("\n")
	}

	var failed []tasks.TargetOutcome
	for _, out := range result.Outcomes() {
		if out.Failed() {
			failed = append(failed, out)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(fmt.Sprintf("Failed to sync %d page/target pairs:", len(failed))))
		for _, out := range failed {
			fmt.Fprintf(&b, "\n  • [%s] %s → %s: %s", out.Target, out.SourceTitle, out.TargetTitle, out.Detail())
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderRuns lists journaled runs, one per line.
func RenderRuns(runs []*models.Run) string {
	if len(runs) == 0 {
		return styles.help.Render("No runs recorded yet.") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Sync runs"))
	b.WriteString("\n")
	for _, r := range runs {
		s := r.Summary()
		status := r.Status()
		switch status {
		case "ok":
			status = styles.ok.Render(status)
		case "aborted":
			status = styles.err.Render(status)
		case "partial":
			status = styles.warn.Render(status)
		}

		mode := ""
		if r.DryRun() {
			mode = " dry-run"
		}
		fmt.Fprintf(&b, "#%-4d %s  %s  %-8s%s  pages=%d created=%d updated=%d unchanged=%d failed=%d  %s\n",
			r.Sequence(), r.StartedAt().Local().Format("2006-01-02 15:04:05"), r.ID(), status, mode,
			s.Pages, s.Created, s.Updated, s.Unchanged, s.Failed, r.Source())
	}
	return b.String()
}

// DescribeProgress returns a short label for a progress update.
func DescribeProgress(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.ListPages:
		return "Listing source pages"
	case tasks.SyncPages:
		return "Syncing pages"
	case tasks.Complete:
		return "Done"
	default:
		return "Processing"
	}
}
