package tasks

import (
	"github.com/desertthunder/wikimirror/internal/models"
)

// Stage names the step of a per-target sync that failed.
type Stage string

const (
	StageFetch Stage = "fetch_target"
	StageLogin Stage = "login"
	StageToken Stage = "csrf_token"
	StageEdit  Stage = "edit"
)

// TargetOutcome is the result of syncing one source page to one target.
type TargetOutcome struct {
	Target      string         // Target name
	Endpoint    string         // Target api.php URL
	SourceTitle string         // Title on the source wiki
	TargetTitle string         // Translated title written on the target
	Action      models.Action  // Decision taken (undefined when failed before deciding)
	Outcome     models.Outcome // Reported outcome
	DryRun      bool           // Outcome is predicted, nothing was written
	Stage       Stage          // Failing stage when Outcome is failed
	Err         error          // Failure cause when Outcome is failed
}

// Failed reports whether the target could not be synced.
func (o TargetOutcome) Failed() bool {
	return o.Outcome == models.OutcomeFailed
}

// Detail is the failure text, or empty.
func (o TargetOutcome) Detail() string {
	if o.Err == nil {
		return ""
	}
	return string(o.Stage) + ": " + o.Err.Error()
}

// PageResult is the result of syncing one source page to every target.
type PageResult struct {
	Title         string          // Source title
	SourceMissing bool            // Source page did not exist; synced as empty content
	SourceErr     error           // Source fetch failed; no targets were attempted
	Targets       []TargetOutcome // One entry per configured target, in configuration order
}

// OK reports whether the page was read and every target succeeded.
func (r PageResult) OK() bool {
	if r.SourceErr != nil {
		return false
	}
	for _, t := range r.Targets {
		if t.Failed() {
			return false
		}
	}
	return true
}

// RunResult contains all data from a sync run, with pages in source listing order.
type RunResult struct {
	Run     *models.Run
	Pages   []PageResult
	Summary models.RunSummary
}

// Outcomes flattens every target outcome in page order.
func (r *RunResult) Outcomes() []TargetOutcome {
	var out []TargetOutcome
	for _, p := range r.Pages {
		out = append(out, p.Targets...)
	}
	return out
}

// SourceFailures lists pages whose source content could not be read.
func (r *RunResult) SourceFailures() []PageResult {
	var out []PageResult
	for _, p := range r.Pages {
		if p.SourceErr != nil {
			out = append(out, p)
		}
	}
	return out
}

func summarize(pages []PageResult) models.RunSummary {
	s := models.RunSummary{Pages: len(pages)}
	for _, p := range pages {
		if p.SourceErr != nil {
			s.SourceErrors++
			continue
		}
		for _, t := range p.Targets {
			s.Add(t.Outcome)
		}
	}
	return s
}
