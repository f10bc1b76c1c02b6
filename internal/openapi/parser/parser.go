// Package parser reads OpenAPI documents with kin-openapi and converts
// component schemas into the builder's neutral schema form.
package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formctx/internal/model"
)

// ErrSchemaNotFound is returned when the requested component is missing.
var ErrSchemaNotFound = errors.New("openapi parser: component schema not found")

const orderExtensionKey = "x-formctx-order"

// Options controls document loading.
type Options struct {
	// Validate runs kin-openapi document validation before conversion.
	Validate bool
	// AllowExternalRefs permits $ref values pointing outside the document.
	AllowExternalRefs bool
}

// Load parses raw (JSON or YAML) into a kin-openapi document.
func Load(ctx context.Context, raw []byte, opts Options) (*openapi3.T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: opts.AllowExternalRefs,
	}
	doc, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if opts.Validate {
		if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}
	return doc, nil
}

// ComponentNames lists the component schemas of doc.
func ComponentNames(doc *openapi3.T) []string {
	if doc == nil || doc.Components == nil {
		return nil
	}
	out := make([]string, 0, len(doc.Components.Schemas))
	for name := range doc.Components.Schemas {
		out = append(out, name)
	}
	return out
}

// Component converts the component schema called name.
func Component(doc *openapi3.T, name string) (model.Schema, error) {
	if doc == nil || doc.Components == nil {
		return model.Schema{}, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	ref, ok := doc.Components.Schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return model.Schema{}, fmt.Errorf("%w: %q", ErrSchemaNotFound, name)
	}
	c := &converter{visiting: make(map[*openapi3.Schema]bool)}
	schema := c.convert(ref)
	schema.Name = name
	return schema, nil
}

type converter struct {
	visiting map[*openapi3.Schema]bool
}

func (c *converter) convert(ref *openapi3.SchemaRef) model.Schema {
	if ref == nil {
		return model.Schema{}
	}
	if ref.Value == nil {
		return model.Schema{Ref: ref.Ref, Name: refName(ref.Ref)}
	}
	src := ref.Value
	if c.visiting[src] {
		// Recursive reference; keep only the pointer.
		return model.Schema{Ref: ref.Ref, Name: refName(ref.Ref)}
	}
	c.visiting[src] = true
	defer delete(c.visiting, src)

	schema := model.Schema{
		Ref:         ref.Ref,
		Name:        refName(ref.Ref),
		Type:        firstSchemaType(src.Type),
		Format:      src.Format,
		Title:       src.Title,
		Description: src.Description,
		Default:     src.Default,
		ReadOnly:    src.ReadOnly,
		Pattern:     src.Pattern,
		Extensions:  cloneExtensions(src.Extensions),
	}
	if len(src.Enum) > 0 {
		schema.Enum = append([]any(nil), src.Enum...)
	}
	if len(src.Required) > 0 {
		schema.Required = append([]string(nil), src.Required...)
	}
	if len(src.Properties) > 0 {
		schema.Properties = make(map[string]model.Schema, len(src.Properties))
		for name, prop := range src.Properties {
			schema.Properties[name] = c.convert(prop)
		}
	}
	if src.Items != nil {
		items := c.convert(src.Items)
		schema.Items = &items
	}
	if src.Min != nil {
		value := *src.Min
		schema.Minimum = &value
	}
	if src.Max != nil {
		value := *src.Max
		schema.Maximum = &value
	}
	schema.ExclusiveMinimum = src.ExclusiveMin
	schema.ExclusiveMaximum = src.ExclusiveMax
	if src.MinLength != 0 {
		value := int(src.MinLength)
		schema.MinLength = &value
	}
	if src.MaxLength != nil {
		value := int(*src.MaxLength)
		schema.MaxLength = &value
	}
	schema.Order = orderFromExtensions(src.Extensions)

	for _, part := range src.AllOf {
		mergeAllOf(&schema, c.convert(part))
	}

	for _, variant := range src.OneOf {
		schema.OneOf = append(schema.OneOf, c.convert(variant))
	}
	if d := src.Discriminator; d != nil {
		disc := &model.Discriminator{Property: d.PropertyName}
		if len(d.Mapping) > 0 {
			disc.Mapping = make(map[string]string, len(d.Mapping))
			for value, target := range d.Mapping {
				disc.Mapping[value] = target
			}
		}
		schema.Discriminator = disc
	}
	if schema.Type == "" && len(schema.Properties) > 0 {
		schema.Type = "object"
	}
	return schema
}

// mergeAllOf folds an allOf member into target. Existing properties win.
func mergeAllOf(target *model.Schema, part model.Schema) {
	if target.Type == "" {
		target.Type = part.Type
	}
	if target.Description == "" {
		target.Description = part.Description
	}
	if len(part.Properties) > 0 && target.Properties == nil {
		target.Properties = make(map[string]model.Schema, len(part.Properties))
	}
	for name, prop := range part.Properties {
		if _, exists := target.Properties[name]; !exists {
			target.Properties[name] = prop
		}
	}
	for _, name := range part.Required {
		if !contains(target.Required, name) {
			target.Required = append(target.Required, name)
		}
	}
	// Members listed first keep their order ahead of the composite's own.
	if len(part.Order) > 0 {
		target.Order = append(append([]string(nil), part.Order...), target.Order...)
	}
	for key, value := range part.Extensions {
		if target.Extensions == nil {
			target.Extensions = make(map[string]any)
		}
		if _, exists := target.Extensions[key]; !exists {
			target.Extensions[key] = value
		}
	}
}

func orderFromExtensions(ext map[string]any) []string {
	raw, ok := ext[orderExtensionKey].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		// Nullable unions such as ["string", "null"] keep the concrete type.
		for _, v := range values {
			if v != "null" {
				return v
			}
		}
		return values[0]
	}
}

func cloneExtensions(raw map[string]any) map[string]any {
	var out map[string]any
	for key, value := range raw {
		if !strings.HasPrefix(key, "x-formctx") {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[key] = value
	}
	return out
}

func refName(ref string) string {
	if ref == "" {
		return ""
	}
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
