package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formctx/pkg/model"
)

// External is host-owned state consumed by cross-entity rules, for example
// usage counts keyed by device id or a list of reserved names. The engine
// never mutates it.
type External map[string]any

// Clone returns a shallow copy of e.
func (e External) Clone() External {
	if len(e) == 0 {
		return External{}
	}
	out := make(External, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge returns a copy of e with the keys of other applied on top.
func (e External) Merge(other External) External {
	out := e.Clone()
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Counts reads a map of counters stored under key. Numeric values of any
// common type are accepted.
func (e External) Counts(key string) map[string]int {
	switch typed := e[key].(type) {
	case map[string]int:
		return typed
	case map[string]any:
		out := make(map[string]int, len(typed))
		for k, v := range typed {
			n, err := CoerceNumber(v)
			if err != nil {
				continue
			}
			out[k] = int(n)
		}
		return out
	default:
		return nil
	}
}

// Strings reads a list of strings stored under key.
func (e External) Strings(key string) []string {
	switch typed := e[key].(type) {
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, v := range typed {
			out = append(out, ValueString(v))
		}
		return out
	default:
		return nil
	}
}

// Input is everything a rule may inspect about the field under evaluation.
type Input struct {
	Field      model.QualifiedName
	Definition model.Field
	Value      any
	// Siblings holds the current values of the field's own context.
	Siblings map[string]any
	External External
}

// Check returns an error message, or "" when the input passes.
type Check func(in Input) string

// Matcher selects which fields a rule applies to.
type Matcher func(q model.QualifiedName) bool

// Field matches a single qualified field.
func Field(context, name string) Matcher {
	return func(q model.QualifiedName) bool {
		return q.Context == context && q.Field == name
	}
}

// FieldInAnyContext matches every field called name regardless of context,
// the shape cross-entity rules usually take (one device field per OSD).
func FieldInAnyContext(name string) Matcher {
	return func(q model.QualifiedName) bool {
		return q.Field == name
	}
}

// InContext matches every field of a context.
func InContext(context string) Matcher {
	return func(q model.QualifiedName) bool {
		return q.Context == context
	}
}

// AnyOf matches when any of the matchers does.
func AnyOf(matchers ...Matcher) Matcher {
	return func(q model.QualifiedName) bool {
		for _, m := range matchers {
			if m != nil && m(q) {
				return true
			}
		}
		return false
	}
}

// Rule is a host-declared constraint evaluated after intrinsic checks.
// Rules run in ascending Precedence; ties keep registration order. Advisory
// rules surface messages on the field without blocking submission.
type Rule struct {
	Name       string
	Match      Matcher
	Check      Check
	Advisory   bool
	Precedence int
}

func (r Rule) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("validation: rule name is required")
	}
	if r.Match == nil {
		return fmt.Errorf("validation: rule %q has no matcher", r.Name)
	}
	if r.Check == nil {
		return fmt.Errorf("validation: rule %q has no check", r.Name)
	}
	return nil
}

// LessThan is a cross-field rule within one context: the value of lower must
// be strictly smaller than upper. The violation is reported on upper. Empty or
// malformed operands are left to the intrinsic checks.
func LessThan(context, lower, upper, message string) Rule {
	if message == "" {
		message = fmt.Sprintf("must be greater than %s", lower)
	}
	return Rule{
		Name:  "lessThan:" + context + "." + lower + "<" + upper,
		Match: Field(context, upper),
		Check: func(in Input) string {
			lo, hi := in.Siblings[lower], in.Value
			if IsEmpty(lo) || IsEmpty(hi) {
				return ""
			}
			loN, err := CoerceNumber(lo)
			if err != nil {
				return ""
			}
			hiN, err := CoerceNumber(hi)
			if err != nil {
				return ""
			}
			if loN >= hiN {
				return message
			}
			return ""
		},
	}
}
