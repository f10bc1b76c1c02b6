package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QualifiedName identifies a field by its context and name.
type QualifiedName struct {
	Context string
	Field   string
}

// Q is shorthand for QualifiedName{Context: context, Field: field}.
func Q(context, field string) QualifiedName {
	return QualifiedName{Context: context, Field: field}
}

// String renders the dotted `context.field` form used by submission payloads.
func (q QualifiedName) String() string {
	if q.Context == "" {
		return q.Field
	}
	return q.Context + "." + q.Field
}

// InContext reports whether q belongs to one of the supplied contexts.
func (q QualifiedName) InContext(contexts ...string) bool {
	for _, ctx := range contexts {
		if q.Context == ctx {
			return true
		}
	}
	return false
}

// ParseQualifiedName splits a dotted `context.field` string at the first dot.
// Field names may themselves contain dots.
func ParseQualifiedName(raw string) (QualifiedName, error) {
	trimmed := strings.TrimSpace(raw)
	ctx, field, ok := strings.Cut(trimmed, ".")
	if !ok || ctx == "" || field == "" {
		return QualifiedName{}, fmt.Errorf("model: invalid qualified name %q", raw)
	}
	return QualifiedName{Context: ctx, Field: field}, nil
}

// MarshalText implements encoding.TextMarshaler so qualified names can be used
// as JSON object keys.
func (q QualifiedName) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (q *QualifiedName) UnmarshalText(text []byte) error {
	parsed, err := ParseQualifiedName(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// MarshalJSON encodes the dotted form.
func (q QualifiedName) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON decodes the dotted form.
func (q *QualifiedName) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("model: qualified name: %w", err)
	}
	return q.UnmarshalText([]byte(raw))
}

// UnmarshalYAML accepts the dotted form in YAML documents.
func (q *QualifiedName) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return q.UnmarshalText([]byte(raw))
}
