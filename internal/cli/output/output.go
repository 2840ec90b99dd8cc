// Package output formats CLI command results as tables, JSON, or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects how command results are rendered.
type Format string

// Supported formats. Table is the default for interactive use.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

var formatNames = map[string]Format{
	"":      FormatTable,
	"table": FormatTable,
	"json":  FormatJSON,
	"yaml":  FormatYAML,
	"yml":   FormatYAML,
}

// ParseFormat resolves a user-supplied format name. Matching is
// case-insensitive, the empty string means table, and "yml" is accepted
// for yaml.
func ParseFormat(name string) (Format, error) {
	f, ok := formatNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown output format %q (want table, json, or yaml)", name)
	}
	return f, nil
}

// String returns the format name.
func (f Format) String() string { return string(f) }

// PrintJSON writes v to w as two-space indented JSON.
func PrintJSON(w io.Writer, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(buf))
	return err
}

// PrintYAML writes v to w as YAML.
func PrintYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(v)
}

// Print writes v in the requested format. Table output renders through the
// given TableRenderer, or prints empty when isEmpty is set; JSON and YAML
// marshal v directly, so an empty list stays an empty list.
func Print(w io.Writer, format Format, v any, isEmpty bool, empty string, table TableRenderer) error {
	switch format {
	case FormatJSON:
		return PrintJSON(w, v)
	case FormatYAML:
		return PrintYAML(w, v)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, empty)
			return nil
		}
		return PrintTable(w, table)
	}
}
