package validation

import "github.com/goliatone/go-formctx/pkg/model"

// Violation is a field-scoped validation failure. It is data to render, not
// an error.
type Violation struct {
	Field    model.QualifiedName `json:"qualifiedName"`
	Message  string              `json:"message"`
	Code     string              `json:"code"`
	Rule     string              `json:"rule,omitempty"`
	Advisory bool                `json:"advisory,omitempty"`
}

// Malformed reports whether the violation stems from a value that failed
// coercion, bounds or pattern checks.
func (v Violation) Malformed() bool {
	switch v.Code {
	case CodeMalformed, CodeMin, CodeMax, CodePattern:
		return true
	default:
		return false
	}
}

// Result is the outcome of one evaluation keyed by qualified name.
type Result struct {
	violations map[model.QualifiedName]Violation
	order      []model.QualifiedName
}

// Len returns the number of violations across every context.
func (r Result) Len() int {
	return len(r.violations)
}

// Violation returns the violation recorded for q.
func (r Result) Violation(q model.QualifiedName) (Violation, bool) {
	v, ok := r.violations[q]
	return v, ok
}

// Message returns the violation message for q or "".
func (r Result) Message(q model.QualifiedName) string {
	return r.violations[q].Message
}

// All returns every violation in declaration order.
func (r Result) All() []Violation {
	return r.collect(func(model.QualifiedName) bool { return true })
}

// ForContext returns the violations of a single context in declaration order.
func (r Result) ForContext(context string) []Violation {
	return r.collect(func(q model.QualifiedName) bool { return q.Context == context })
}

// Scoped returns the violations whose context is one of active.
func (r Result) Scoped(active []string) []Violation {
	return r.collect(func(q model.QualifiedName) bool { return q.InContext(active...) })
}

// Blocking returns the scoped violations that are not advisory.
func (r Result) Blocking(active []string) []Violation {
	var out []Violation
	for _, v := range r.Scoped(active) {
		if !v.Advisory {
			out = append(out, v)
		}
	}
	return out
}

// Valid reports whether no blocking violation exists within active.
func (r Result) Valid(active []string) bool {
	return len(r.Blocking(active)) == 0
}

func (r Result) collect(keep func(model.QualifiedName) bool) []Violation {
	if len(r.violations) == 0 {
		return nil
	}
	var out []Violation
	for _, q := range r.order {
		v, ok := r.violations[q]
		if !ok || !keep(q) {
			continue
		}
		out = append(out, v)
	}
	return out
}
