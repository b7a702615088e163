package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/wikimirror/internal/shared"
	tu "github.com/desertthunder/wikimirror/internal/testing"
)

type fixture struct {
	source *tu.FakeWiki
	fr     *tu.FakeWiki
	config *shared.Config
	output *bytes.Buffer
	runner *Runner
}

// newFixture wires a runner to a fake source wiki holding "Main Page" and an empty fake French target.
func newFixture(t *testing.T, extra string) *fixture {
	t.Helper()

	source := tu.NewFakeWiki(t)
	source.AddPage("Main Page", "Hello")
	source.AddPage("Game Guide", "Guide text")

	fr := tu.NewFakeWiki(t)
	fr.AddUser("Bot@Sync", "secret")

	data := fmt.Sprintf(`
[credentials]
username = "Bot@Sync"
password = "secret"

[source]
api_url = %q

[[targets]]
name = "fr"
api_url = %q

[targets.slug_map]
Main_Page = "Accueil"
Game_Guide = "Guide_du_Jeu"

[journal]
enabled = true
path = %q
%s`, source.Endpoint(), fr.Endpoint(), filepath.Join(t.TempDir(), "journal.db"), extra)

	config, err := shared.ParseConfig([]byte(data))
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(io.Discard)})
	return &fixture{source: source, fr: fr, config: config, output: output, runner: runner}
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.output.Reset()
	return newApp(f.runner).Run(context.Background(), append([]string{"wikimirror"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			progress := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Progress:   progress,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output || runner.progress != progress {
				t.Error("expected writers to be set")
			}
			if runner.client(config) != httpClient {
				t.Error("expected httpClient to be used")
			}
		})

		t.Run("with nil dependencies uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("config should be loaded lazily")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.progress != io.Discard {
				t.Error("expected progress to be discarded by default")
			}
		})

		t.Run("builds a client from the request timeout", func(t *testing.T) {
			config := shared.DefaultConfig()
			client := NewRunner(RunnerOpts{}).client(config)
			if client.Timeout != config.Sync.RequestTimeout.Duration || client.Jar != nil {
				t.Errorf("unexpected client %+v", client)
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "nope.toml"), Logger: shared.NewLogger(io.Discard)})
			if _, err := runner.loadConfig(); !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("reads once", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := shared.CreateConfigFile(path); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.NewLogger(io.Discard)})
			first, err := runner.loadConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, _ := runner.loadConfig()
			if first != second {
				t.Error("config should be cached after the first load")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		var names []string
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		want := "sync pages auth history setup config"
		if strings.Join(names, " ") != want {
			t.Errorf("expected commands %q, got %q", want, strings.Join(names, " "))
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("Mirrors Pages And Journals The Run", func(t *testing.T) {
		f := newFixture(t, "")
		report := filepath.Join(t.TempDir(), "report.md")

		if err := f.run(t, "sync", "run", "--report", report); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if content, ok := f.fr.Page("Accueil"); !ok || content != "Hello" {
			t.Errorf("expected Accueil to be created with Hello, got %q (%v)", content, ok)
		}
		if content, ok := f.fr.Page("Guide du Jeu"); !ok || content != "Guide text" {
			t.Errorf("expected Guide du Jeu to be created, got %q (%v)", content, ok)
		}
		if !strings.Contains(f.output.String(), "Sync complete") {
			t.Errorf("expected summary, got:\n%s", f.output.String())
		}
		if md := tu.MustReadFile(t, report); !strings.Contains(md, "| Main Page | fr | Accueil | created |") {
			t.Errorf("report missing row:\n%s", md)
		}

		if err := f.run(t, "history", "runs"); err != nil {
			t.Fatalf("history runs failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "#1") || !strings.Contains(out, "created=2") {
			t.Errorf("unexpected history:\n%s", out)
		}

		if err := f.run(t, "history", "show", "1"); err != nil {
			t.Fatalf("history show failed: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "Accueil") || !strings.Contains(out, "Guide_du_Jeu") {
			t.Errorf("unexpected run detail:\n%s", out)
		}
	})

	t.Run("Second Run Changes Nothing", func(t *testing.T) {
		f := newFixture(t, "")

		if err := f.run(t, "sync", "run"); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}
		if err := f.run(t, "sync", "run", "--workers", "2"); err != nil {
			t.Fatalf("second sync failed: %v", err)
		}
		if len(f.fr.Edits()) != 2 {
			t.Errorf("expected only the 2 initial edits, got %d", len(f.fr.Edits()))
		}
	})

	t.Run("Dry Run", func(t *testing.T) {
		f := newFixture(t, "")

		if err := f.run(t, "sync", "run", "--dry-run", "--title", "Main Page"); err != nil {
			t.Fatalf("dry run failed: %v", err)
		}
		if len(f.fr.Edits()) != 0 || f.fr.Logins() != 0 {
			t.Errorf("dry run should not touch the target, got %d edits and %d logins", len(f.fr.Edits()), f.fr.Logins())
		}
		if !strings.Contains(f.output.String(), "(dry run)") {
			t.Errorf("expected dry run summary, got:\n%s", f.output.String())
		}
	})

	t.Run("Failed Login Is Reported Not Fatal", func(t *testing.T) {
		f := newFixture(t, "")
		f.fr.SetLoginResult("Failed")

		if err := f.run(t, "sync", "run"); err != nil {
			t.Fatalf("per-target failures should not fail the command: %v", err)
		}
		if out := f.output.String(); !strings.Contains(out, "Failed to sync 2 page/target pairs") {
			t.Errorf("expected failures to be listed, got:\n%s", out)
		}
	})

	t.Run("Rejects Bad Flags Before Any Request", func(t *testing.T) {
		f := newFixture(t, "")

		if err := f.run(t, "sync", "run", "--report", "out.xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for report, got %v", err)
		}
		if err := f.run(t, "sync", "run", "--workers", "0"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for workers, got %v", err)
		}
		if n := len(f.source.Requests()); n != 0 {
			t.Errorf("expected no requests, got %d", n)
		}
	})
}

func TestPagesCommand(t *testing.T) {
	f := newFixture(t, "")

	t.Run("List Source", func(t *testing.T) {
		if err := f.run(t, "pages", "list"); err != nil {
			t.Fatalf("pages list failed: %v", err)
		}
		if f.output.String() != "Game Guide\nMain Page\n" && f.output.String() != "Main Page\nGame Guide\n" {
			t.Errorf("unexpected titles %q", f.output.String())
		}
	})

	t.Run("List JSON", func(t *testing.T) {
		if err := f.run(t, "pages", "list", "--json"); err != nil {
			t.Fatalf("pages list failed: %v", err)
		}
		if !strings.Contains(f.output.String(), `"Main Page"`) {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Get Source", func(t *testing.T) {
		if err := f.run(t, "pages", "get", "Main Page"); err != nil {
			t.Fatalf("pages get failed: %v", err)
		}
		if f.output.String() != "Hello\n" {
			t.Errorf("unexpected content %q", f.output.String())
		}
	})

	t.Run("Get Target Translates Title", func(t *testing.T) {
		f.fr.AddPage("Accueil", "Bonjour")

		if err := f.run(t, "pages", "get", "Main Page", "--wiki", "fr"); err != nil {
			t.Fatalf("pages get failed: %v", err)
		}
		if f.output.String() != "Bonjour\n" {
			t.Errorf("unexpected content %q", f.output.String())
		}
	})

	t.Run("Missing Page", func(t *testing.T) {
		if err := f.run(t, "pages", "get", "Nowhere"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Unknown Wiki", func(t *testing.T) {
		if err := f.run(t, "pages", "list", "--wiki", "klingon"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestAuthCommand(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, "")
		if err := f.run(t, "auth", "check"); err != nil {
			t.Fatalf("auth check failed: %v", err)
		}
		if !strings.HasPrefix(f.output.String(), "✓ fr") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})

	t.Run("Rejected", func(t *testing.T) {
		f := newFixture(t, "")
		f.fr.SetLoginResult("Failed")

		if err := f.run(t, "auth", "check"); !errors.Is(err, shared.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if !strings.HasPrefix(f.output.String(), "✗ fr") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestSetupCommand(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})
		app := newApp(runner)

		if err := app.Run(context.Background(), []string{"wikimirror", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}

		if err := newApp(runner).Run(context.Background(), []string{"wikimirror", "setup", "config", "--output", path}); err == nil {
			t.Error("expected error when the config already exists")
		}
	})

	t.Run("Database", func(t *testing.T) {
		f := newFixture(t, "")
		if err := f.run(t, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, f.config.Journal.Path)
		if !strings.Contains(f.output.String(), "2 migrations applied") {
			t.Errorf("unexpected output %q", f.output.String())
		}

		if err := f.run(t, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "1 remaining") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestConfigCommand(t *testing.T) {
	f := newFixture(t, "")

	if err := f.run(t, "config", "show"); err != nil {
		t.Fatalf("config show failed: %v", err)
	}

	out := f.output.String()
	for _, want := range []string{
		`password = "[REDACTED]"`,
		`username = "Bot@Sync"`,
		`workers = 1`,
		`request_timeout = "30s"`,
		`slug_map.Game_Guide = "Guide_du_Jeu"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "secret") {
		t.Error("password leaked into output")
	}
	if strings.Index(out, "slug_map.Game_Guide") > strings.Index(out, "slug_map.Main_Page") {
		t.Error("slug map entries should be sorted")
	}
	if f.config.Credentials.Password != "secret" {
		t.Error("config show must not modify the loaded config")
	}
}
