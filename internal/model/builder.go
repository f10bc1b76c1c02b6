// Package model converts parser-neutral schemas into console form contexts.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	pkgmodel "github.com/goliatone/go-formctx/pkg/model"
)

const extensionNamespace = "x-formctx"

var errVariantUnnamed = errors.New("model builder: oneOf variant has no name")

// Options configures the Builder.
type Options struct {
	Labeler func(string) string
	// BaseContext names the context holding shared and discriminator fields.
	BaseContext string
}

// Variant is one oneOf branch: the discriminator values selecting it and the
// context holding its own fields.
type Variant struct {
	Values  []string
	Context pkgmodel.Context
}

// Form is the builder output: a base context plus zero or more variants.
type Form struct {
	Base          pkgmodel.Context
	Discriminator string
	Variants      []Variant
	// Skipped lists properties that have no console field equivalent.
	Skipped []string
}

// Builder converts schemas into contexts.
type Builder struct {
	opts Options
}

// New creates a Builder with the supplied options.
func New(options Options) *Builder {
	if options.Labeler == nil {
		options.Labeler = DefaultLabeler
	}
	if strings.TrimSpace(options.BaseContext) == "" {
		options.BaseContext = "general"
	}
	return &Builder{opts: options}
}

// Build transforms schema into a Form. A schema with oneOf and a
// discriminator yields one variant per branch; a plain object yields only the
// base context.
func (b *Builder) Build(schema Schema) (Form, error) {
	form := Form{Base: pkgmodel.Context{Name: b.opts.BaseContext}}

	base, skipped := b.fieldsFromObject("", schema, nil)
	form.Base.Fields = base
	form.Skipped = skipped

	if len(schema.OneOf) == 0 {
		return form, nil
	}
	if schema.Discriminator == nil || schema.Discriminator.Property == "" {
		return Form{}, fmt.Errorf("model builder: schema %q uses oneOf without a discriminator", schema.Name)
	}

	prop := schema.Discriminator.Property
	form.Discriminator = prop

	shared := make(map[string]struct{}, len(base)+1)
	for _, field := range base {
		shared[field.Name] = struct{}{}
	}
	shared[prop] = struct{}{}

	valuesByVariant := invertMapping(schema.Discriminator.Mapping)
	seen := make(map[string]struct{}, len(schema.OneOf))
	var options []pkgmodel.Option
	var discriminatorSchema *Schema

	for _, variant := range schema.OneOf {
		name := variantName(variant)
		if name == "" {
			return Form{}, errVariantUnnamed
		}
		ctxName := lowerFirst(name)
		if _, dup := seen[ctxName]; dup {
			return Form{}, fmt.Errorf("model builder: duplicate oneOf variant %q", name)
		}
		seen[ctxName] = struct{}{}

		values := valuesByVariant[name]
		if len(values) == 0 {
			if own, ok := variant.Properties[prop]; ok && len(own.Enum) == 1 {
				values = []string{fmt.Sprint(own.Enum[0])}
			} else {
				values = []string{name}
			}
		}
		if own, ok := variant.Properties[prop]; ok && discriminatorSchema == nil {
			cp := own
			discriminatorSchema = &cp
		}
		for _, v := range values {
			options = append(options, pkgmodel.Option{Value: v, Label: b.opts.Labeler(v)})
		}

		fields, skippedVariant := b.fieldsFromObject("", variant, shared)
		form.Skipped = append(form.Skipped, prefixAll(ctxName, skippedVariant)...)
		form.Variants = append(form.Variants, Variant{
			Values:  values,
			Context: pkgmodel.Context{Name: ctxName, Fields: fields},
		})
	}

	form.Base.Fields = upsertDiscriminator(form.Base.Fields, b.discriminatorField(prop, schema, discriminatorSchema, options))
	return form, nil
}

func (b *Builder) discriminatorField(prop string, parent Schema, variant *Schema, options []pkgmodel.Option) pkgmodel.Field {
	field := pkgmodel.Field{
		Name:     prop,
		Type:     pkgmodel.FieldTypeRadioGroup,
		Required: true,
		Label:    b.opts.Labeler(prop),
		Options:  options,
	}
	if own, ok := parent.Properties[prop]; ok {
		field.Description = own.Description
		field.Default = own.Default
		if widget := extensionString(own.Extensions, "widget"); widget == string(pkgmodel.FieldTypeDropdown) {
			field.Type = pkgmodel.FieldTypeDropdown
		}
	} else if variant != nil {
		field.Description = variant.Description
	}
	return field
}

func (b *Builder) fieldsFromObject(prefix string, schema Schema, exclude map[string]struct{}) ([]pkgmodel.Field, []string) {
	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	var (
		fields  []pkgmodel.Field
		skipped []string
	)
	for _, name := range propertyOrder(schema) {
		if _, skip := exclude[name]; skip && prefix == "" {
			continue
		}
		prop := schema.Properties[name]
		qualified := name
		if prefix != "" {
			qualified = prefix + "." + name
		}
		_, isRequired := required[name]

		switch prop.Type {
		case "object":
			nested, nestedSkipped := b.fieldsFromObject(qualified, prop, nil)
			fields = append(fields, nested...)
			skipped = append(skipped, nestedSkipped...)
		case "array":
			skipped = append(skipped, qualified)
		default:
			fields = append(fields, b.fieldFromPrimitive(qualified, prop, isRequired))
		}
	}
	return fields, skipped
}

func (b *Builder) fieldFromPrimitive(name string, schema Schema, required bool) pkgmodel.Field {
	label := schema.Title
	if custom := extensionString(schema.Extensions, "label"); custom != "" {
		label = custom
	}
	if label == "" {
		label = b.opts.Labeler(name)
	}

	field := pkgmodel.Field{
		Name:        name,
		Type:        mapType(schema),
		Required:    required,
		Label:       label,
		Description: schema.Description,
		Default:     schema.Default,
		Metadata:    metadataFromExtensions(schema.Extensions),
	}
	if schema.Format != "" {
		field.Metadata = setMetadata(field.Metadata, "format", schema.Format)
	}
	if schema.Type == "integer" {
		field.Metadata = setMetadata(field.Metadata, "integer", "true")
	}
	for _, v := range schema.Enum {
		field.Options = append(field.Options, pkgmodel.Option{Value: v, Label: fmt.Sprint(v)})
	}
	if field.Type == pkgmodel.FieldTypeStatic {
		field.Required = false
		return field
	}
	applyValidations(&field, schema)
	return field
}

func mapType(schema Schema) pkgmodel.FieldType {
	if schema.ReadOnly {
		return pkgmodel.FieldTypeStatic
	}
	if widget := pkgmodel.FieldType(extensionString(schema.Extensions, "widget")); widget.Valid() {
		return widget
	}
	if len(schema.Enum) > 0 {
		return pkgmodel.FieldTypeDropdown
	}
	switch schema.Type {
	case "integer", "number":
		return pkgmodel.FieldTypeNumber
	case "boolean":
		return pkgmodel.FieldTypeCheckbox
	default:
		return pkgmodel.FieldTypeText
	}
}

func applyValidations(field *pkgmodel.Field, schema Schema) {
	if schema.Minimum != nil {
		params := map[string]string{"value": formatFloat(*schema.Minimum)}
		if schema.ExclusiveMinimum {
			params["exclusive"] = "true"
		}
		field.Validations = append(field.Validations, pkgmodel.ValidationRule{Kind: pkgmodel.ValidationRuleMin, Params: params})
	}
	if schema.Maximum != nil {
		params := map[string]string{"value": formatFloat(*schema.Maximum)}
		if schema.ExclusiveMaximum {
			params["exclusive"] = "true"
		}
		field.Validations = append(field.Validations, pkgmodel.ValidationRule{Kind: pkgmodel.ValidationRuleMax, Params: params})
	}
	if schema.MinLength != nil {
		field.Validations = append(field.Validations, pkgmodel.ValidationRule{
			Kind:   pkgmodel.ValidationRuleMinLength,
			Params: map[string]string{"value": strconv.Itoa(*schema.MinLength)},
		})
	}
	if schema.MaxLength != nil {
		field.Validations = append(field.Validations, pkgmodel.ValidationRule{
			Kind:   pkgmodel.ValidationRuleMaxLength,
			Params: map[string]string{"value": strconv.Itoa(*schema.MaxLength)},
		})
	}
	if schema.Pattern != "" {
		params := map[string]string{"pattern": schema.Pattern}
		if msg := extensionString(schema.Extensions, "pattern-message"); msg != "" {
			params["message"] = msg
		}
		field.Validations = append(field.Validations, pkgmodel.ValidationRule{Kind: pkgmodel.ValidationRulePattern, Params: params})
	}
}

// metadataFromExtensions collects x-formctx-* keys and the nested x-formctx
// map into flat string metadata.
func metadataFromExtensions(ext map[string]any) map[string]string {
	var out map[string]string
	for key, value := range ext {
		if key == extensionNamespace {
			nested, ok := value.(map[string]any)
			if !ok {
				continue
			}
			for nestedKey, nestedValue := range nested {
				if str, ok := scalarString(nestedValue); ok {
					out = setMetadata(out, nestedKey, str)
				}
			}
			continue
		}
		if trimmed, ok := strings.CutPrefix(key, extensionNamespace+"-"); ok {
			if str, ok := scalarString(value); ok {
				out = setMetadata(out, trimmed, str)
			}
		}
	}
	return out
}

func extensionString(ext map[string]any, key string) string {
	return metadataFromExtensions(ext)[key]
}

func scalarString(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, typed != ""
	case bool:
		return strconv.FormatBool(typed), true
	case float64:
		return formatFloat(typed), true
	case int:
		return strconv.Itoa(typed), true
	default:
		return "", false
	}
}

func setMetadata(meta map[string]string, key, value string) map[string]string {
	if meta == nil {
		meta = make(map[string]string)
	}
	meta[key] = value
	return meta
}

func propertyOrder(schema Schema) []string {
	out := make([]string, 0, len(schema.Properties))
	listed := make(map[string]struct{}, len(schema.Order))
	for _, name := range schema.Order {
		if _, ok := schema.Properties[name]; !ok {
			continue
		}
		if _, dup := listed[name]; dup {
			continue
		}
		listed[name] = struct{}{}
		out = append(out, name)
	}
	var rest []string
	for name := range schema.Properties {
		if _, ok := listed[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func upsertDiscriminator(fields []pkgmodel.Field, disc pkgmodel.Field) []pkgmodel.Field {
	for i, field := range fields {
		if field.Name == disc.Name {
			fields[i] = disc
			return fields
		}
	}
	return append([]pkgmodel.Field{disc}, fields...)
}

func invertMapping(mapping map[string]string) map[string][]string {
	out := make(map[string][]string, len(mapping))
	keys := make([]string, 0, len(mapping))
	for value := range mapping {
		keys = append(keys, value)
	}
	sort.Strings(keys)
	for _, value := range keys {
		name := refName(mapping[value])
		out[name] = append(out[name], value)
	}
	return out
}

func variantName(schema Schema) string {
	if schema.Name != "" {
		return schema.Name
	}
	if schema.Ref != "" {
		return refName(schema.Ref)
	}
	return schema.Title
}

// refName returns the last segment of a JSON reference such as
// "#/components/schemas/CephStorage".
func refName(ref string) string {
	if idx := strings.LastIndex(ref, "/"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// lowerFirst lowercases the leading capital run: "CephStorage" becomes
// "cephStorage" and "NFSStorage" becomes "nfsStorage".
func lowerFirst(s string) string {
	runes := []rune(s)
	n := 0
	for n < len(runes) && isUpper(runes[n]) {
		n++
	}
	if n > 1 && n < len(runes) && isLower(runes[n]) {
		n--
	}
	return strings.ToLower(string(runes[:n])) + string(runes[n:])
}

func prefixAll(prefix string, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = prefix + "." + name
	}
	return out
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
