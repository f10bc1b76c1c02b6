package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
)

// formFlags are shared by the commands that evaluate a single form.
type formFlags struct {
	form          string
	values        string
	external      string
	mode          string
	discriminator string
}

func (f *formFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.form, "form", "f", "", "form id (see list)")
	flags.StringVar(&f.values, "values", "", "JSON or YAML document of field values")
	flags.StringVar(&f.external, "external", "", "JSON or YAML document of external state (devices, reserved names, usage counts)")
	flags.StringVar(&f.mode, "mode", "", "mode to evaluate the form in (defaults to the form's own mode)")
	flags.StringVar(&f.discriminator, "discriminator", "", "discriminator value overriding the form's discriminator field")
	_ = cmd.MarkFlagRequired("form")
}

func (a *app) newValidateCmd() *cobra.Command {
	var (
		flags        formFlags
		serverErrors string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Evaluate a form against a values document",
		Long: `validate loads --values into the form, selects the active contexts and
reports every violation within them. --server-errors maps an error payload
returned by a backend onto the same fields. It exits with status 2 when a
blocking violation or a server error remains.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.prepare(cmd.Context(), flags)
			if err != nil {
				return err
			}
			r := newReport(flags.form, c)
			if serverErrors != "" {
				payload, err := loadServerErrors(serverErrors)
				if err != nil {
					return err
				}
				r.withServerErrors(c, payload)
			}
			if a.output == outputJSON {
				if err := writeJSON(a.stdout, r); err != nil {
					return err
				}
			} else {
				writeReportTable(a.stdout, r)
			}
			if !r.Valid {
				return errInvalidForm
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&serverErrors, "server-errors", "", "JSON or YAML error payload returned by a backend, keyed by field path")
	return cmd
}

// prepare builds the requested form and applies mode, values and
// discriminator in that order.
func (a *app) prepare(ctx context.Context, flags formFlags) (*form.Controller, error) {
	cat, err := a.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	e, err := cat.lookup(flags.form)
	if err != nil {
		return nil, err
	}
	env, err := loadEnvironment(flags.external)
	if err != nil {
		return nil, err
	}
	c, err := e.build(env, form.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("build form %q: %w", e.ID, err)
	}

	if flags.mode != "" {
		if err := c.SwitchMode(flags.mode, c.DiscriminatorValue()); err != nil {
			return nil, err
		}
	}

	if flags.values != "" {
		assignments, err := loadValues(flags.values)
		if err != nil {
			return nil, err
		}
		for _, as := range assignments {
			warning, err := c.SetValue(as.field.Context, as.field.Field, as.value)
			if err != nil {
				return nil, fmt.Errorf("set %s: %w", as.field, err)
			}
			if warning != nil {
				a.logger.Debug("value targets an inactive context", slog.String("field", as.field.String()))
			}
		}
	}

	if flags.discriminator != "" {
		if err := c.SwitchMode(c.Mode(), flags.discriminator); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type assignment struct {
	field model.QualifiedName
	value any
}

// loadValues accepts flat documents keyed by "context.field" and documents
// nested by context, or any mix of both.
func loadValues(path string) ([]assignment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}

	var out []assignment
	for key, value := range doc {
		if strings.Contains(key, ".") {
			q, err := model.ParseQualifiedName(key)
			if err != nil {
				return nil, fmt.Errorf("values %s: %w", path, err)
			}
			out = append(out, assignment{field: q, value: value})
			continue
		}
		group, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("values %s: key %q must be context.field or a map of fields", path, key)
		}
		for name, v := range group {
			out = append(out, assignment{field: model.Q(key, name), value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].field.String() < out[j].field.String() })
	return out, nil
}

// loadServerErrors reads an error payload whose values are a message or a list
// of messages.
func loadServerErrors(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read server errors: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse server errors %s: %w", path, err)
	}
	out := make(map[string][]string, len(doc))
	for key, value := range doc {
		switch typed := value.(type) {
		case string:
			out[key] = []string{typed}
		case []any:
			for _, item := range typed {
				msg, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("server errors %s: %q must hold strings", path, key)
				}
				out[key] = append(out[key], msg)
			}
		default:
			return nil, fmt.Errorf("server errors %s: %q must be a message or a list of messages", path, key)
		}
	}
	return out, nil
}
