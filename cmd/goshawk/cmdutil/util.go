// Package cmdutil carries the helpers shared by the goshawk CLI
// subcommand trees: global flag state, output formatting, and
// confirmation plumbing.
package cmdutil

import (
	"fmt"
	"io"

	"github.com/goshawk-nvr/goshawk/internal/cli/output"
	"github.com/goshawk-nvr/goshawk/internal/cli/prompt"
	"github.com/goshawk-nvr/goshawk/internal/logger"
	"github.com/goshawk-nvr/goshawk/pkg/config"
)

// Globals is the set of persistent flags shared across the command
// trees. Cobra binds them once on the root command; subcommands read
// them through the package-level Flags.
type Globals struct {
	ConfigFile string
	Output     string
}

// Flags holds the bound global flag values.
var Flags = &Globals{}

// LoadConfig loads the server configuration for a subcommand and routes
// log output to stderr, keeping tables and JSON on stdout parseable.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.MustLoad(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	err = logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// OutputFormat parses the --output flag into a Format.
func OutputFormat() (output.Format, error) { return output.ParseFormat(Flags.Output) }

// PrintOutput prints a listing in the selected format. Table output
// shows emptyMsg when the listing is empty; JSON and YAML always
// marshal data itself.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, render output.TableRenderer) error {
	format, err := OutputFormat()
	if err != nil {
		return err
	}
	return output.Print(w, format, data, isEmpty, emptyMsg, render)
}

// PrintResource prints a single resource in the selected format. There
// is no empty state: the caller already has the resource in hand.
func PrintResource(w io.Writer, data any, render output.TableRenderer) error {
	format, err := OutputFormat()
	if err != nil {
		return err
	}
	return output.Print(w, format, data, false, "", render)
}

// PrintSuccess prints msg on stdout, but only for table output; JSON
// and YAML consumers get clean documents.
func PrintSuccess(msg string) {
	if format, err := OutputFormat(); err == nil && format == output.FormatTable {
		fmt.Println(msg)
	}
}

func printAborted() { fmt.Println("\nAborted.") }

// ConfirmDelete prompts before running del; force skips the prompt. A
// declined or aborted prompt is not an error.
func ConfirmDelete(resourceType, name string, force bool, del func() error) error {
	question := fmt.Sprintf("Delete %s '%s'?", resourceType, name)
	confirmed, err := prompt.ConfirmWithForce(question, force)
	switch {
	case prompt.IsAborted(err):
		printAborted()
		return nil
	case err != nil:
		return err
	case !confirmed:
		fmt.Println("Aborted.")
		return nil
	}

	if err := del(); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Deleted %s '%s'", resourceType, name))
	return nil
}

// IgnoreAbort maps a Ctrl+C abort to a friendly message and a nil
// error; anything else passes through.
func IgnoreAbort(err error) error {
	if !prompt.IsAborted(err) {
		return err
	}
	printAborted()
	return nil
}

// OrElse substitutes fallback for an empty value, so table cells can
// show "-" instead of nothing.
func OrElse(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
