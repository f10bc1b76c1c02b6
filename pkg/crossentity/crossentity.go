// Package crossentity implements validators whose outcome depends on state
// aggregated across many fields or forms. The host derives that state as a
// pure function of the whole store (UsageDeriver, or its own code), pushes it
// into the engine, and the rules here only read it back. Rules never reach
// into sibling fields directly.
package crossentity

import (
	"strings"

	"github.com/goliatone/go-formctx/pkg/validation"
)

// Resolver maps a field value onto the shared resource id it refers to.
type Resolver func(value any) (id string, ok bool)

// Identity resolves non-empty values to their trimmed string form.
func Identity(value any) (string, bool) {
	if validation.IsEmpty(value) {
		return "", false
	}
	return strings.TrimSpace(validation.ValueString(value)), true
}

// CountUsage counts, across every context of src, how many fields called
// field resolve to each resource id.
func CountUsage(src validation.Source, field string, resolve Resolver) map[string]int {
	if resolve == nil {
		resolve = Identity
	}
	counts := make(map[string]int)
	for _, ctx := range src.Contexts() {
		values := src.Values(ctx)
		raw, ok := values[field]
		if !ok {
			continue
		}
		id, ok := resolve(raw)
		if !ok {
			continue
		}
		counts[id]++
	}
	return counts
}

// UsageDeriver returns a derivation storing CountUsage under key. It fits
// form.WithDeriver.
func UsageDeriver(key, field string, resolve Resolver) func(validation.Source) validation.External {
	return func(src validation.Source) validation.External {
		return validation.External{key: CountUsage(src, field, resolve)}
	}
}

// Unique fails a field when the resource it refers to is used more than once
// according to the counts stored under key.
func Unique(key, field string, resolve Resolver, message string) validation.Rule {
	if resolve == nil {
		resolve = Identity
	}
	if message == "" {
		message = "is already used by another entry"
	}
	return validation.Rule{
		Name:  "unique:" + field,
		Match: validation.FieldInAnyContext(field),
		Check: func(in validation.Input) string {
			id, ok := resolve(in.Value)
			if !ok {
				return ""
			}
			if in.External.Counts(key)[id] > 1 {
				return message
			}
			return ""
		},
	}
}

// Denylist fails a field whose value appears in the list stored under key.
// Comparison ignores case and surrounding whitespace.
func Denylist(key, field, message string) validation.Rule {
	if message == "" {
		message = "is a reserved word"
	}
	return validation.Rule{
		Name:  "denylist:" + field,
		Match: validation.FieldInAnyContext(field),
		Check: func(in validation.Input) string {
			if validation.IsEmpty(in.Value) {
				return ""
			}
			candidate := strings.TrimSpace(validation.ValueString(in.Value))
			for _, denied := range in.External.Strings(key) {
				if strings.EqualFold(candidate, strings.TrimSpace(denied)) {
					return message
				}
			}
			return ""
		},
	}
}
