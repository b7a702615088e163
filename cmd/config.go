package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/wikimirror/internal/shared"
	"github.com/fatih/structs"
	"github.com/urfave/cli/v3"
	"golang.org/x/exp/maps"
)

const redacted = "[REDACTED]"

// ConfigShow prints the effective configuration, defaults included, with the password redacted.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig()
	if err != nil {
		return err
	}

	shown := *config
	if shown.Credentials.Password != "" {
		shown.Credentials.Password = redacted
	}

	if cmd.Bool("json") {
		return r.writeJSON(shown, true)
	}

	r.writePlain("log_level = %q\n", shown.LogLevel)
	for _, section := range []struct {
		name  string
		value any
	}{
		{"credentials", shown.Credentials},
		{"source", shown.Source},
		{"sync", shown.Sync},
		{"journal", shown.Journal},
	} {
		r.writePlain("\n[%s]\n", section.name)
		for _, line := range tomlFields(section.value) {
			r.writePlain("%s\n", line)
		}
	}

	for _, target := range shown.Targets {
		r.writePlain("\n[[targets]]  # %s\n", target.Endpoint())
		for _, line := range tomlFields(target) {
			r.writePlain("%s\n", line)
		}
	}
	return nil
}

// tomlFields renders the scalar fields of a config section as `key = value` lines, keyed by their toml tags.
//
// Map fields are rendered last, one `key.entry = value` line per entry in sorted order.
func tomlFields(section any) []string {
	var lines, mapLines []string
	for _, field := range structs.Fields(section) {
		key := field.Tag("toml")
		if key == "" || key == "-" {
			continue
		}

		switch v := field.Value().(type) {
		case map[string]string:
			keys := maps.Keys(v)
			slices.Sort(keys)
			for _, k := range keys {
				mapLines = append(mapLines, fmt.Sprintf("%s.%s = %q", key, k, v[k]))
			}
		case string:
			lines = append(lines, fmt.Sprintf("%s = %q", key, v))
		case []string:
			lines = append(lines, fmt.Sprintf("%s = %q", key, v))
		case shared.Duration:
			lines = append(lines, fmt.Sprintf("%s = %q", key, v.String()))
		default:
			lines = append(lines, fmt.Sprintf("%s = %v", key, v))
		}
	}
	return append(lines, mapLines...)
}
