// package tasks implements the page synchronizer that mirrors a source wiki onto its translated targets.
//
// The core abstraction is [Engine], which enumerates source pages and syncs each one to every target.
// Operations emit progress updates via channels for non-blocking status reporting to the CLI.
package tasks

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/services"
	"github.com/desertthunder/wikimirror/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Source is the wiki pages are read from.
type Source interface {
	services.Reader
	services.Lister
}

// TargetWiki is a wiki pages are written to.
type TargetWiki interface {
	services.Reader
	services.Writer
}

// Target pairs a target wiki client with its title mapping.
type Target struct {
	Mapping models.TargetMapping
	Wiki    TargetWiki
}

// SessionKey keys the target's cached session by name and endpoint.
func (t Target) SessionKey() string {
	return t.Mapping.Name + "@" + t.Wiki.Endpoint()
}

// Journal receives run history. Journal failures are logged and never affect the sync.
type Journal interface {
	StartRun(run *models.Run) error
	RecordOutcome(rec models.SyncRecord) error
	FinishRun(run *models.Run) error
}

// Options tunes a run.
type Options struct {
	Workers      int           // Pages processed concurrently; 1 is strictly sequential
	DryRun       bool          // Decide only: no login, no edits
	SessionCache bool          // Reuse one session per target for the whole run
	Summary      string        // Edit summary
	Titles       []string      // Sync only these titles instead of enumerating the source
	RunTimeout   time.Duration // Deadline for the whole run; 0 for none
}

// Engine syncs pages from a source wiki to a list of targets.
//
// An Engine holds no mutable state besides its session cache and can run once per invocation.
type Engine struct {
	source   Source
	targets  []Target
	creds    services.Credentials
	opts     Options
	sessions *SessionCache
	journal  Journal
	logger   *log.Logger
}

// NewEngine creates an [Engine]. A nil logger discards output.
func NewEngine(source Source, targets []Target, creds services.Credentials, opts Options, logger *log.Logger) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{
		source:   source,
		targets:  targets,
		creds:    creds,
		opts:     opts,
		sessions: NewSessionCache(opts.SessionCache),
		logger:   logger,
	}
}

// WithJournal attaches a run journal.
func (e *Engine) WithJournal(j Journal) *Engine {
	e.journal = j
	return e
}

// Sessions exposes the engine's session cache.
func (e *Engine) Sessions() *SessionCache {
	return e.sessions
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run enumerates the source wiki (or uses [Options.Titles]) and syncs every page to every target.
//
// Pages are processed on a bounded worker pool; results are returned in listing order. A source fetch failure is
// recorded on the page and processing continues. The only errors returned are a failed enumeration and context
// cancellation, in which case the partial result is still returned.
func (e *Engine) Run(ctx context.Context, progress chan<- ProgressUpdate) (*RunResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source wiki not initialized", shared.ErrServiceUnavailable)
	}
	if len(e.targets) == 0 {
		return nil, fmt.Errorf("%w: no targets configured", shared.ErrInvalidConfig)
	}

	if e.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
		defer cancel()
	}

	result := &RunResult{Run: models.NewRun(e.source.Endpoint(), e.opts.DryRun)}
	e.journalStart(result.Run)

	titles, err := e.titles(ctx, progress)
	if err != nil {
		err = fmt.Errorf("enumerating source pages: %w", err)
		e.finish(result, err)
		return result, err
	}

	logger := e.logger.With("source", e.source.Endpoint())
	logger.Info("sync started", "pages", len(titles), "targets", len(e.targets), "workers", e.opts.Workers, "dry_run", e.opts.DryRun)

	result.Pages = make([]PageResult, len(titles))

	var g errgroup.Group
	g.SetLimit(e.opts.Workers)

	var done atomic.Int64
	for i, title := range titles {
		g.Go(func() error {
			res := e.syncTitle(ctx, result.Run, title)
			result.Pages[i] = res
			e.sendProgress(progress, pageSyncedUpdate(int(done.Add(1)), len(titles), res))
			return nil
		})
	}
	g.Wait()

	err = ctx.Err()
	if err != nil {
		err = fmt.Errorf("sync interrupted: %w", err)
	}
	e.finish(result, err)
	e.sendProgress(progress, completeUpdate(len(titles), result.Summary))

	logger.Info("sync finished",
		"created", result.Summary.Created,
		"updated", result.Summary.Updated,
		"unchanged", result.Summary.Unchanged,
		"failed", result.Summary.Failed,
		"source_errors", result.Summary.SourceErrors,
	)
	return result, err
}

// SyncPage writes one source page to every target, sequentially and independently.
//
// A failure on one target is reported in its outcome and never stops the others.
func (e *Engine) SyncPage(ctx context.Context, sourceTitle, sourceContent string) []TargetOutcome {
	outcomes := make([]TargetOutcome, 0, len(e.targets))
	for _, t := range e.targets {
		out := e.syncTarget(ctx, t, sourceTitle, sourceContent)
		e.logOutcome(out)
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (e *Engine) titles(ctx context.Context, progress chan<- ProgressUpdate) ([]string, error) {
	if len(e.opts.Titles) > 0 {
		e.sendProgress(progress, explicitTitlesUpdate(len(e.opts.Titles)))
		return append([]string(nil), e.opts.Titles...), nil
	}

	var titles []string
	for title, err := range e.source.AllPages(ctx) {
		if err != nil {
			return nil, err
		}
		titles = append(titles, title)
		e.sendProgress(progress, listingUpdate(len(titles), title))
	}
	return titles, nil
}

func (e *Engine) syncTitle(ctx context.Context, run *models.Run, title string) PageResult {
	res := PageResult{Title: title}

	if err := ctx.Err(); err != nil {
		res.SourceErr = err
		return res
	}

	lookup, err := e.source.PageContent(ctx, title)
	if err != nil {
		e.logger.Warn("skipping page: source fetch failed", "title", title, "endpoint", e.source.Endpoint(), "error", err)
		res.SourceErr = err
		return res
	}
	if !lookup.Exists {
		e.logger.Debug("source page missing, syncing empty content", "title", title)
		res.SourceMissing = true
	}

	res.Targets = e.SyncPage(ctx, title, lookup.Content)
	for _, out := range res.Targets {
		e.journalOutcome(run, out)
	}
	return res
}

func (e *Engine) syncTarget(ctx context.Context, t Target, sourceTitle, content string) TargetOutcome {
	out := TargetOutcome{
		Target:      t.Mapping.Name,
		Endpoint:    t.Wiki.Endpoint(),
		SourceTitle: sourceTitle,
		TargetTitle: t.Mapping.Resolve(sourceTitle),
		DryRun:      e.opts.DryRun,
	}

	current, err := t.Wiki.PageContent(ctx, out.TargetTitle)
	if err != nil {
		return failed(out, StageFetch, err)
	}

	if e.opts.DryRun {
		out.Action = models.Decide(current, content)
		out.Outcome = out.Action.Outcome()
		return out
	}

	sess, token, stage, err := e.authorize(ctx, t)
	if err != nil {
		return failed(out, stage, err)
	}

	out.Action = models.Decide(current, content)
	if out.Action == models.ActionSkip {
		out.Outcome = models.OutcomeUnchanged
		return out
	}

	req := services.EditRequest{Title: out.TargetTitle, Text: content, Summary: e.opts.Summary, Token: token}
	if _, err := t.Wiki.EditPage(ctx, sess, req); err != nil {
		if services.IsSessionError(err) {
			e.sessions.Invalidate(t.SessionKey(), sess)
		}
		return failed(out, StageEdit, err)
	}

	out.Outcome = out.Action.Outcome()
	return out
}

// authorize acquires a session and a write token. A token failure on a cached session drops the session and
// retries once with a fresh login.
func (e *Engine) authorize(ctx context.Context, t Target) (*services.Session, string, Stage, error) {
	w, key := t.Wiki, t.SessionKey()
	sess, cached, err := e.sessions.Acquire(ctx, key, w, e.creds)
	if err != nil {
		return nil, "", StageLogin, err
	}

	token, err := w.CSRFToken(ctx, sess)
	if err == nil {
		return sess, token, "", nil
	}
	if !cached || !services.IsSessionError(err) {
		return nil, "", StageToken, err
	}

	e.logger.Debug("cached session rejected, logging in again", "target", t.Mapping.Name, "endpoint", w.Endpoint(), "error", err)
	e.sessions.Invalidate(key, sess)

	sess, _, err = e.sessions.Acquire(ctx, key, w, e.creds)
	if err != nil {
		return nil, "", StageLogin, err
	}
	token, err = w.CSRFToken(ctx, sess)
	if err != nil {
		if services.IsSessionError(err) {
			e.sessions.Invalidate(key, sess)
		}
		return nil, "", StageToken, err
	}
	return sess, token, "", nil
}

func failed(out TargetOutcome, stage Stage, err error) TargetOutcome {
	out.Outcome = models.OutcomeFailed
	out.Stage = stage
	out.Err = err
	return out
}

func (e *Engine) logOutcome(out TargetOutcome) {
	kv := []any{
		"target", out.Target,
		"endpoint", out.Endpoint,
		"title", out.SourceTitle,
		"target_title", out.TargetTitle,
		"outcome", out.Outcome,
	}
	if out.DryRun {
		kv = append(kv, "dry_run", true)
	}

	if out.Failed() {
		kv = append(kv, "stage", out.Stage, "error", out.Err)
		e.logger.Error("sync failed", kv...)
		return
	}
	e.logger.Info("synced", kv...)
}

func (e *Engine) finish(result *RunResult, err error) {
	result.Summary = summarize(result.Pages)
	result.Run.Finish(result.Summary, err)
	if e.journal == nil {
		return
	}
	if jerr := e.journal.FinishRun(result.Run); jerr != nil {
		e.logger.Warn("journal: failed to finish run", "run", result.Run.ID(), "error", jerr)
	}
}

func (e *Engine) journalStart(run *models.Run) {
	if e.journal == nil {
		return
	}
	if err := e.journal.StartRun(run); err != nil {
		e.logger.Warn("journal: failed to start run", "error", err)
	}
}

func (e *Engine) journalOutcome(run *models.Run, out TargetOutcome) {
	if e.journal == nil || run.ID() == "" {
		return
	}
	rec := models.SyncRecord{
		RunID:       run.ID(),
		SourceTitle: out.SourceTitle,
		Target:      out.Target,
		TargetTitle: out.TargetTitle,
		Outcome:     out.Outcome,
		DryRun:      out.DryRun,
		Detail:      out.Detail(),
		RecordedAt:  time.Now().UTC(),
	}
	if err := e.journal.RecordOutcome(rec); err != nil {
		e.logger.Warn("journal: failed to record outcome", "run", run.ID(), "title", out.SourceTitle, "target", out.Target, "error", err)
	}
}
