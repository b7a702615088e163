package tasks

import (
	"fmt"

	"github.com/desertthunder/wikimirror/internal/models"
)

// ProgressUpdate represents a progress event during a sync run.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase; 0 while unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data (a [PageResult] for SyncPages)
}

// Operation phase enumeration
type Phase int

const (
	ListPages Phase = iota
	SyncPages
	Complete
)

func (p Phase) String() string {
	switch p {
	case ListPages:
		return "list_pages"
	case SyncPages:
		return "sync_pages"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func listingUpdate(found int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListPages,
		Step:    found,
		Message: fmt.Sprintf("Listing source pages... %s", title),
	}
}

func explicitTitlesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListPages,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Using %d requested titles", total),
	}
}

func pageSyncedUpdate(step, total int, res PageResult) ProgressUpdate {
	mark := "✓"
	if !res.OK() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   SyncPages,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, res.Title),
		Data:    res,
	}
}

func completeUpdate(total int, summary models.RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase: Complete,
		Step:  total,
		Total: total,
		Message: fmt.Sprintf("Done: %d created, %d updated, %d unchanged, %d failed",
			summary.Created, summary.Updated, summary.Unchanged, summary.Failed),
		Data: summary,
	}
}
