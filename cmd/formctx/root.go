package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formctx/pkg/renderers/tui"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (bad flags, unreadable files).
	ExitCodeError = 1
	// ExitCodeInvalid indicates the form was evaluated and has blocking
	// violations.
	ExitCodeInvalid = 2
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
)

var errInvalidForm = errors.New("form has blocking violations")

// app carries the global flags and the streams commands write to.
type app struct {
	specDir     string
	openapiFile string
	schema      string
	logLevel    string
	output      string

	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
	// driver replaces the survey prompts of fill when set.
	driver tui.PromptDriver
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (a *app) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "formctx",
		Short:   "Inspect, validate and fill multi-context forms",
		Version: version,
		Long: `formctx loads form definitions (built-in console forms, YAML/JSON
documents from --spec-dir or an OpenAPI component schema) and evaluates them
the way the console does: only the contexts selected by the current mode and
discriminator are active, and only their fields are validated and submitted.`,
		// Errors are reported by execute with the matching exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	root.SetVersionTemplate(`{{printf "formctx version %s\n" .Version}}`)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.specDir, "spec-dir", "", "directory of form definition documents (.json, .yaml, .yml)")
	flags.StringVar(&a.openapiFile, "openapi", "", "OpenAPI document to import a form from")
	flags.StringVar(&a.schema, "schema", "", "component schema name to import from --openapi")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVarP(&a.output, "output", "o", outputTable, "output format (table, json)")

	root.AddCommand(a.newListCmd(), a.newValidateCmd(), a.newFillCmd())
	return root
}

func (a *app) setup() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	switch a.output {
	case outputTable, outputJSON:
	default:
		return fmt.Errorf("invalid --output %q (want %s or %s)", a.output, outputTable, outputJSON)
	}
	return nil
}

// execute runs the CLI and maps the outcome onto an exit code.
func (a *app) execute(args []string) int {
	root := a.newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return ExitCodeSuccess
	case errors.Is(err, errInvalidForm):
		return ExitCodeInvalid
	default:
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return ExitCodeError
	}
}
