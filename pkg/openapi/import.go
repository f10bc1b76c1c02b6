package openapi

import (
	"context"
	"fmt"

	imodel "github.com/goliatone/go-formctx/internal/model"
	"github.com/goliatone/go-formctx/internal/openapi/parser"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

// ErrSchemaNotFound is returned when the requested component is missing.
var ErrSchemaNotFound = parser.ErrSchemaNotFound

// ImportOptions controls how a schema maps onto contexts.
type ImportOptions struct {
	// Mode is the mode the generated selector table is keyed by. Defaults to
	// "edit".
	Mode string
	// BaseContext names the context holding shared fields and the
	// discriminator. Defaults to "general".
	BaseContext string
	// Labeler turns property names into labels.
	Labeler func(string) string
	// Validate runs document validation before conversion.
	Validate bool
}

// Imported is the outcome of Import.
type Imported struct {
	Contexts      []model.Context
	Discriminator *model.QualifiedName
	Selector      visibility.Table
	Mode          string
	// Skipped lists qualified property paths that have no field equivalent,
	// such as arrays.
	Skipped []string
}

// Import converts the component schema schemaName of the OpenAPI document
// raw. A oneOf schema with a discriminator becomes a base context plus one
// context per variant; a plain object becomes a single context.
func Import(ctx context.Context, raw []byte, schemaName string, opts ImportOptions) (Imported, error) {
	if opts.Mode == "" {
		opts.Mode = "edit"
	}

	doc, err := parser.Load(ctx, raw, parser.Options{Validate: opts.Validate})
	if err != nil {
		return Imported{}, err
	}
	schema, err := parser.Component(doc, schemaName)
	if err != nil {
		return Imported{}, err
	}

	built, err := imodel.New(imodel.Options{Labeler: opts.Labeler, BaseContext: opts.BaseContext}).Build(schema)
	if err != nil {
		return Imported{}, fmt.Errorf("openapi: import %s: %w", schemaName, err)
	}

	base := built.Base.Name
	out := Imported{
		Contexts: []model.Context{built.Base},
		Mode:     opts.Mode,
		Skipped:  built.Skipped,
		Selector: visibility.Table{Default: []string{base}},
	}
	if built.Discriminator == "" {
		out.Selector.Modes = map[string]visibility.Branches{opts.Mode: {Default: []string{base}}}
		return out, nil
	}

	q := model.Q(base, built.Discriminator)
	out.Discriminator = &q
	cases := make(map[string][]string)
	for _, variant := range built.Variants {
		out.Contexts = append(out.Contexts, variant.Context)
		for _, value := range variant.Values {
			cases[value] = []string{base, variant.Context.Name}
		}
	}
	out.Selector.Modes = map[string]visibility.Branches{
		opts.Mode: {Cases: cases, Default: []string{base}},
	}
	return out, nil
}

// Spec returns a controller spec for the imported form.
func (i Imported) Spec() form.Spec {
	spec := form.Spec{
		Contexts: make([]model.Context, len(i.Contexts)),
		Selector: i.Selector,
		Mode:     i.Mode,
	}
	for idx, ctx := range i.Contexts {
		fields := make([]model.Field, len(ctx.Fields))
		for j, f := range ctx.Fields {
			fields[j] = f.Clone()
		}
		spec.Contexts[idx] = model.Context{Name: ctx.Name, Fields: fields}
	}
	if i.Discriminator != nil {
		q := *i.Discriminator
		spec.Discriminator = &q
	}
	return spec
}
