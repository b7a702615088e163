package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/wikimirror/internal/models"
	"github.com/desertthunder/wikimirror/internal/services"
	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/desertthunder/wikimirror/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The configuration is loaded lazily from the --config flag so that `setup config` works before a config exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	progress   io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config // Preloaded config; skips reading ConfigPath
	ConfigPath string
	HTTPClient *http.Client // Client for every wiki; built from sync.request_timeout when nil
	Logger     *log.Logger
	Output     io.Writer // Command output
	Progress   io.Writer // Progress bar output; discarded when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		progress:   opts.Progress,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, pagesCommand, authCommand, historyCommand, setupCommand, configCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before applies the global flags: --config selects the file and --debug raises the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" && r.config == nil {
		r.configPath = path
	}
	if cmd.Bool("debug") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	return ctx, nil
}

// loadConfig returns the preloaded config or reads it from the config path once.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if r.logger.GetLevel() != log.DebugLevel {
		level, _ := shared.ParseLogLevel(config.LogLevel)
		shared.SetLogLevel(r.logger, level)
	}

	r.config = config
	r.logger.Debug("config loaded", "path", path, "targets", len(config.Targets))
	return config, nil
}

func (r *Runner) client(config *shared.Config) *http.Client {
	if r.httpClient != nil {
		return r.httpClient
	}
	return shared.NewHTTPClient(config.Sync.RequestTimeout.Duration)
}

// wiki builds a client for one endpoint. Each wiki gets its own rate limiter.
func (r *Runner) wiki(config *shared.Config, client *http.Client, endpoint string) *services.WikiService {
	return services.NewWikiService(endpoint,
		services.WithHTTPClient(client),
		services.WithRateLimit(config.Sync.RequestsPerSecond),
		services.WithUserAgent(config.Sync.UserAgent),
	)
}

func (r *Runner) targets(config *shared.Config, client *http.Client) []tasks.Target {
	targets := make([]tasks.Target, 0, len(config.Targets))
	for _, t := range config.Targets {
		targets = append(targets, tasks.Target{
			Mapping: models.TargetMapping{Name: t.DisplayName(), SlugMap: t.SlugMap},
			Wiki:    r.wiki(config, client, t.Endpoint()),
		})
	}
	return targets
}

func (r *Runner) credentials(ctx context.Context, config *shared.Config) (services.Credentials, error) {
	password, err := config.Credentials.ResolvePassword(ctx)
	if err != nil {
		return services.Credentials{}, err
	}
	return services.Credentials{Username: config.Credentials.Username, Password: password}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
