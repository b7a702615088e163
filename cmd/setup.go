package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to --output, or to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = r.configPath
	}
	if path == "" {
		path = "config.toml"
	}

	expanded, err := shared.ExpandPath(path)
	if err != nil {
		return err
	}

	if err := shared.CreateConfigFile(expanded); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", expanded)
	r.writePlain("✓ Config written to %s\n", expanded)
	r.writePlain("Next steps:\n")
	r.writePlain("1. Set credentials.username and credentials.password (or password_cmd)\n")
	r.writePlain("2. Point [source] and each [[targets]] entry at your wikis\n")
	r.writePlain("3. Run 'wikimirror auth check', then 'wikimirror sync run --dry-run'\n")
	return nil
}

// SetupDatabase initializes the journal database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	if cmd.Bool("rollback") {
		return r.rollbackDatabase(config.Journal)
	}

	r.logger.Info("initializing database", "path", config.Journal.Path)

	db, err := shared.OpenJournal(config.Journal)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", config.Journal.Path)
	r.writePlain("✓ Journal ready at %s (%d migrations applied)\n", config.Journal.Path, len(versions))
	if !config.Journal.Enabled {
		r.writePlain("Set [journal] enabled = true to record sync runs\n")
	}
	return nil
}

func (r *Runner) rollbackDatabase(cfg shared.JournalConfig) error {
	path, err := shared.ExpandPath(cfg.Path)
	if err != nil {
		return err
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return err
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return err
	}
	r.logger.Warn("rolled back journal migration", "path", path, "remaining", len(versions))
	return r.writePlain("✓ Rolled back one migration (%d remaining)\n", len(versions))
}
