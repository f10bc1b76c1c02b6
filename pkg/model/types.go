package model

// FieldType is the simplified enum for console form field kinds.
type FieldType string

const (
	FieldTypeText       FieldType = "text"
	FieldTypeNumber     FieldType = "number"
	FieldTypeCheckbox   FieldType = "checkbox"
	FieldTypeRadioGroup FieldType = "radio-group"
	FieldTypeDropdown   FieldType = "dropdown"
	FieldTypeStatic     FieldType = "static"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypeNumber, FieldTypeCheckbox, FieldTypeRadioGroup, FieldTypeDropdown, FieldTypeStatic:
		return true
	default:
		return false
	}
}

// HasOptions reports whether values of this type are picked from Options.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeRadioGroup || t == FieldTypeDropdown
}

const (
	ValidationRuleMin       = "min"
	ValidationRuleMax       = "max"
	ValidationRuleMinLength = "minLength"
	ValidationRuleMaxLength = "maxLength"
	ValidationRulePattern   = "pattern"
)

// ValidationRule represents a single intrinsic constraint applied to a field.
// Numeric bounds and length limits encode their threshold in Params["value"]
// while pattern rules preserve the original expression in Params["pattern"].
// Boolean flags such as exclusivity are encoded as string values
// (Params["exclusive"] = "true"). Params["message"] overrides the default
// violation message.
type ValidationRule struct {
	Kind   string            `json:"kind" yaml:"kind"`
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Option is a selectable value for radio-group and dropdown fields. Aliases
// are other spellings accepted as this option, such as the id or path of a
// device listed by name.
type Option struct {
	Value   any      `json:"value" yaml:"value"`
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Field is the FieldDefinition of a single input inside a context. It is
// treated as immutable once registered; only Options may be recomputed when
// the external data they derive from changes.
type Field struct {
	Name        string            `json:"name" yaml:"name"`
	Type        FieldType         `json:"type" yaml:"type"`
	Required    bool              `json:"required" yaml:"required"`
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any               `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option          `json:"options,omitempty" yaml:"options,omitempty"`
	Validations []ValidationRule  `json:"validations,omitempty" yaml:"validations,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Clone returns a copy of the field that shares no slices or maps with f.
func (f Field) Clone() Field {
	out := f
	if len(f.Options) > 0 {
		out.Options = append([]Option(nil), f.Options...)
	}
	if len(f.Validations) > 0 {
		out.Validations = make([]ValidationRule, len(f.Validations))
		for i, rule := range f.Validations {
			out.Validations[i] = ValidationRule{Kind: rule.Kind, Params: cloneStringMap(rule.Params)}
		}
	}
	out.Metadata = cloneStringMap(f.Metadata)
	return out
}

// Context is a named namespace grouping fields edited or displayed together,
// for example "editBluestore" or "showFilestore".
type Context struct {
	Name   string  `json:"name" yaml:"name"`
	Fields []Field `json:"fields" yaml:"fields"`
}

func cloneStringMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
