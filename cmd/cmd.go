// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// syncCommand runs the synchronizer
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror source pages onto every target wiki",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Sync all source pages, or only those given with --title",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Decide what would change without logging in or editing",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Pages processed concurrently (overrides sync.workers)",
					},
					&cli.StringSliceFlag{
						Name:    "title",
						Aliases: []string{"t"},
						Usage:   "Sync only this source title (repeatable)",
					},
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Write a run report (.json, .csv or .md)",
					},
					&cli.StringFlag{
						Name:  "record",
						Usage: "Record and replay HTTP traffic through the named go-vcr cassette",
					},
				},
				Action: r.SyncRun,
			},
		},
	}
}

// pagesCommand reads pages from a configured wiki
func pagesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "pages",
		Usage: "Inspect pages on the source or a target wiki",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List every page title in the main namespace",
				Flags: []cli.Flag{
					wikiFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PagesList,
			},
			{
				Name:  "get",
				Usage: "Print the latest wikitext of a page",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "title",
					},
				},
				Flags: []cli.Flag{
					wikiFlag(),
					&cli.BoolFlag{
						Name:  "raw-title",
						Usage: "Do not translate the title through the target's slug map",
					},
				},
				Action: r.PagesGet,
			},
		},
	}
}

// authCommand verifies bot credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Credential checks",
		Commands: []*cli.Command{
			{
				Name:   "check",
				Usage:  "Log into every target and fetch a write token",
				Action: r.AuthCheck,
			},
		},
	}
}

// historyCommand reads the run journal
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse journaled sync runs",
		Commands: []*cli.Command{
			{
				Name:  "runs",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of runs to show",
						Value:   20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryRuns,
			},
			{
				Name:  "show",
				Usage: "Show the outcomes of one run by ID or sequence number",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "run",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "failed",
						Usage: "Only show failed outcomes",
					},
					&cli.StringFlag{
						Name:    "report",
						Aliases: []string{"o"},
						Usage:   "Write the run report to a file (.json, .csv or .md) instead of printing it",
					},
				},
				Action: r.HistoryShow,
			},
		},
	}
}

// setupCommand creates the config file and journal database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create a config file or initialize the journal database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the config (defaults to --config)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Create the journal database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Revert the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// configCommand inspects the loaded configuration
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the configuration",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration with secrets redacted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

func wikiFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "wiki",
		Usage: "Wiki to read: \"source\" or a target name",
		Value: "source",
	}
}
