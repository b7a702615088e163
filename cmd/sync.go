package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/desertthunder/wikimirror/internal/formatter"
	"github.com/desertthunder/wikimirror/internal/repositories"
	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/desertthunder/wikimirror/internal/tasks"
	"github.com/desertthunder/wikimirror/internal/ui"
	"github.com/urfave/cli/v3"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// SyncRun mirrors source pages onto every configured target.
//
// Per-page failures are reported and do not fail the command; only configuration errors, a failed enumeration of
// the source and interruption do.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	opts := tasks.Options{
		Workers:      config.Sync.Workers,
		DryRun:       config.Sync.DryRun || cmd.Bool("dry-run"),
		SessionCache: config.Sync.SessionCache,
		Summary:      config.Sync.EditSummary,
		Titles:       cmd.StringSlice("title"),
		RunTimeout:   config.Sync.RunTimeout.Duration,
	}
	if cmd.IsSet("workers") {
		opts.Workers = int(cmd.Int("workers"))
		if opts.Workers < 1 {
			return fmt.Errorf("%w: --workers must be at least 1", shared.ErrInvalidArgument)
		}
	}

	reportPath := cmd.String("report")
	if reportPath != "" {
		if _, err := formatter.FormatFor(reportPath); err != nil {
			return err
		}
	}

	creds, err := r.credentials(ctx, config)
	if err != nil && !opts.DryRun {
		return err
	}

	client := r.client(config)
	if cassette := cmd.String("record"); cassette != "" {
		recording, stop, err := shared.NewRecordingClient(cassette, config.Sync.RequestTimeout.Duration)
		if err != nil {
			return err
		}
		defer func() {
			if err := stop(); err != nil {
				r.logger.Warn("failed to save cassette", "cassette", cassette, "error", err)
			}
		}()
		client = recording
		r.logger.Info("recording HTTP traffic", "cassette", cassette)
	}

	engine := tasks.NewEngine(
		r.wiki(config, client, config.Source.Endpoint()),
		r.targets(config, client),
		creds,
		opts,
		r.logger,
	)

	if config.Journal.Enabled {
		db, err := shared.OpenJournal(config.Journal)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer db.Close()
		engine.WithJournal(repositories.NewJournal(db))
	}

	result, runErr := r.runWithProgress(ctx, engine)
	if result == nil {
		return runErr
	}

	if reportPath != "" {
		format, err := formatter.WriteReport(formatter.NewReport(result), reportPath)
		if err != nil {
			r.logger.Error("failed to write report", "path", reportPath, "error", err)
		} else {
			r.logger.Info("report written", "path", reportPath, "format", format)
		}
	}

	if err := r.writePlain("%s", ui.RenderResult(result)); err != nil {
		return err
	}
	return runErr
}

// runWithProgress runs the engine while drawing a progress bar from its updates.
func (r *Runner) runWithProgress(ctx context.Context, engine *tasks.Engine) (*tasks.RunResult, error) {
	p := mpb.New(mpb.WithOutput(r.progress), mpb.WithWidth(64))

	var label atomic.Value
	label.Store(ui.DescribeProgress(tasks.ProgressUpdate{Phase: tasks.ListPages}))

	bar := p.AddBar(0,
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string { return label.Load().(string) },
				decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
		),
	)

	updates := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range updates {
			switch u.Phase {
			case tasks.ListPages:
				label.Store(fmt.Sprintf("%s (%d)", ui.DescribeProgress(u), u.Step))
			case tasks.SyncPages:
				label.Store(ui.DescribeProgress(u))
				bar.SetTotal(int64(u.Total), false)
				bar.SetCurrent(int64(u.Step))
			case tasks.Complete:
				label.Store(ui.DescribeProgress(u))
				bar.SetTotal(-1, true)
			}
		}
	}()

	result, err := engine.Run(ctx, updates)
	close(updates)
	<-done

	bar.SetTotal(-1, true)
	p.Wait()
	return result, err
}
