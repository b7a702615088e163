package shared

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// A Config is built once at startup and treated as read-only afterwards.
type Config struct {
	LogLevel    string            `toml:"log_level"`
	Credentials CredentialsConfig `toml:"credentials"`
	Source      WikiConfig        `toml:"source"`
	Targets     []TargetConfig    `toml:"targets"`
	Sync        SyncConfig        `toml:"sync"`
	Journal     JournalConfig     `toml:"journal"`
}

// CredentialsConfig holds the bot password pair shared by all targets.
type CredentialsConfig struct {
	Username    string   `toml:"username"`
	Password    string   `toml:"password"`
	PasswordCmd []string `toml:"password_cmd"`
}

// WikiConfig locates one wiki's action API.
type WikiConfig struct {
	Wiki   string `toml:"wiki"`    // host + path, e.g. mygame.fandom.com
	APIURL string `toml:"api_url"` // explicit api.php URL; derived from Wiki when empty
}

// TargetConfig is a target wiki plus its title translation table.
type TargetConfig struct {
	Name    string            `toml:"name"`
	Wiki    string            `toml:"wiki"`
	APIURL  string            `toml:"api_url"`
	SlugMap map[string]string `toml:"slug_map"`
}

// SyncConfig tunes the synchronizer.
type SyncConfig struct {
	Workers           int      `toml:"workers"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	RequestTimeout    Duration `toml:"request_timeout"`
	RunTimeout        Duration `toml:"run_timeout"`
	SessionCache      bool     `toml:"session_cache"`
	DryRun            bool     `toml:"dry_run"`
	EditSummary       string   `toml:"edit_summary"`
	UserAgent         string   `toml:"user_agent"`
}

// JournalConfig controls the optional SQLite run journal.
type JournalConfig struct {
	Enabled      bool   `toml:"enabled"`
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Duration is a [time.Duration] that decodes from strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, s)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Endpoint returns the action API endpoint for the wiki.
func (w WikiConfig) Endpoint() string {
	return APIEndpoint(w.Wiki, w.APIURL)
}

// Endpoint returns the action API endpoint for the target.
func (t TargetConfig) Endpoint() string {
	return APIEndpoint(t.Wiki, t.APIURL)
}

// DisplayName is the target name, or its wiki host when unnamed.
func (t TargetConfig) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Wiki
}

// APIEndpoint resolves the api.php URL for a wiki.
//
// An explicit apiURL wins. Otherwise wiki is treated as host+path and served over https, unless it
// already carries a scheme.
func APIEndpoint(wiki, apiURL string) string {
	if apiURL != "" {
		return apiURL
	}
	wiki = strings.TrimSuffix(strings.TrimSpace(wiki), "/")
	if wiki == "" {
		return ""
	}
	if strings.Contains(wiki, "://") {
		return wiki + "/api.php"
	}
	return "https://" + wiki + "/api.php"
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, expanded)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes TOML on top of [DefaultSyncConfig] and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	config := Config{Sync: DefaultSyncConfig(), Journal: DefaultJournalConfig()}
	md, err := toml.Decode(string(data), &config)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// DefaultSyncConfig returns the sync settings used when the file omits them.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Workers:           1,
		RequestsPerSecond: 0,
		RequestTimeout:    Duration{30 * time.Second},
		SessionCache:      true,
		EditSummary:       "Synced from source wiki",
		UserAgent:         "wikimirror/0.1",
	}
}

// DefaultJournalConfig returns the journal settings used when the file omits them.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Path:         "./wikimirror.db",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// Validate reports the first structural problem with the configuration.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if strings.TrimSpace(c.Credentials.Username) == "" {
		return fmt.Errorf("%w: credentials.username is required", ErrInvalidConfig)
	}
	if c.Source.Endpoint() == "" {
		return fmt.Errorf("%w: source.wiki or source.api_url is required", ErrInvalidConfig)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: at least one [[targets]] entry is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Endpoint() == "" {
			return fmt.Errorf("%w: targets[%d] needs wiki or api_url", ErrInvalidConfig, i)
		}
		name := t.DisplayName()
		if seen[name] {
			return fmt.Errorf("%w: duplicate target name %q", ErrInvalidConfig, name)
		}
		seen[name] = true
	}

	if c.Sync.Workers < 1 {
		return fmt.Errorf("%w: sync.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Sync.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: sync.requests_per_second cannot be negative", ErrInvalidConfig)
	}
	if c.Sync.RequestTimeout.Duration < 0 || c.Sync.RunTimeout.Duration < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Target looks up a configured target by name.
func (c *Config) Target(name string) (TargetConfig, bool) {
	for _, t := range c.Targets {
		if t.DisplayName() == name {
			return t, true
		}
	}
	return TargetConfig{}, false
}

// ResolvePassword returns the bot password, running password_cmd when no literal password is set.
//
// Only the first line of the command's output is used.
func (c CredentialsConfig) ResolvePassword(ctx context.Context) (string, error) {
	if c.Password != "" {
		return c.Password, nil
	}
	if len(c.PasswordCmd) == 0 {
		return "", fmt.Errorf("%w: set credentials.password or credentials.password_cmd", ErrMissingCredentials)
	}

	out, err := exec.CommandContext(ctx, c.PasswordCmd[0], c.PasswordCmd[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("%w: password_cmd %v failed: %v", ErrMissingCredentials, c.PasswordCmd, err)
	}

	line, _, _ := bufio.NewReader(bytes.NewReader(out)).ReadLine()
	password := strings.TrimSpace(string(line))
	if password == "" {
		return "", fmt.Errorf("%w: password_cmd %v printed nothing", ErrMissingCredentials, c.PasswordCmd)
	}
	return password, nil
}

// DefaultConfig returns a Config loaded from the embedded example config.
func DefaultConfig() *Config {
	config := Config{Sync: DefaultSyncConfig(), Journal: DefaultJournalConfig()}
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ExampleConfig returns the raw embedded example config.
func ExampleConfig() []byte {
	return exampleConf
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
