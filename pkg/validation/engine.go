// Package validation evaluates intrinsic field constraints, cross-field rules
// and cross-entity rules over a whole form store. Evaluation always covers
// every context, active or not, because cross-entity rules may depend on
// fields the user cannot currently see; scoping to active contexts happens
// when results are queried.
package validation

import (
	"regexp"
	"sort"

	"github.com/goliatone/go-formctx/pkg/model"
)

// Source exposes the store contents the engine reads. *store.Store satisfies
// it.
type Source interface {
	Contexts() []string
	Fields(context string) []model.Field
	Values(context string) map[string]any
}

// Engine holds the rule set and the externally supplied state. It is not
// safe for concurrent use.
type Engine struct {
	rules    []Rule
	external External
	patterns map[string]*regexp.Regexp
}

// New constructs an engine with optional rules. Invalid rules are skipped;
// use AddRule to observe registration errors.
func New(rules ...Rule) *Engine {
	e := &Engine{
		external: External{},
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, rule := range rules {
		_ = e.AddRule(rule)
	}
	return e
}

// AddRule registers a rule.
func (e *Engine) AddRule(rule Rule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	e.rules = append(e.rules, rule)
	return nil
}

// Rules returns the registered rules in evaluation order.
func (e *Engine) Rules() []Rule {
	ordered := append([]Rule(nil), e.rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Precedence < ordered[j].Precedence
	})
	return ordered
}

// SetExternal replaces the external state seen by cross-entity rules.
func (e *Engine) SetExternal(ext External) {
	e.external = ext.Clone()
}

// External returns a copy of the current external state.
func (e *Engine) External() External {
	return e.external.Clone()
}

// Evaluate runs the full rule set against src. Each field reports at most
// one violation: the first failing blocking check in precedence order, or
// the first advisory failure when no blocking check fails.
func (e *Engine) Evaluate(src Source) Result {
	return e.EvaluateWith(src, nil)
}

// EvaluateWith is Evaluate with extra external state merged over the state
// set through SetExternal for this run only.
func (e *Engine) EvaluateWith(src Source, extra External) Result {
	external := e.external
	if len(extra) > 0 {
		external = external.Merge(extra)
	}

	type target struct {
		q     model.QualifiedName
		def   model.Field
		value any
	}

	var (
		targets  []target
		siblings = make(map[string]map[string]any)
		res      = Result{violations: make(map[model.QualifiedName]Violation)}
	)

	for _, ctx := range src.Contexts() {
		values := src.Values(ctx)
		siblings[ctx] = values
		for _, field := range src.Fields(ctx) {
			q := model.Q(ctx, field.Name)
			res.order = append(res.order, q)
			if field.Type == model.FieldTypeStatic {
				continue
			}
			targets = append(targets, target{q: q, def: field, value: values[field.Name]})
		}
	}

	for _, t := range targets {
		if f := e.checkIntrinsic(t.def, t.value); f != nil {
			res.violations[t.q] = Violation{Field: t.q, Message: f.message, Code: f.code}
		}
	}

	for _, rule := range e.Rules() {
		for _, t := range targets {
			if prev, failed := res.violations[t.q]; failed && !prev.Advisory {
				continue
			}
			if !rule.Match(t.q) {
				continue
			}
			msg := rule.Check(Input{
				Field:      t.q,
				Definition: t.def,
				Value:      t.value,
				Siblings:   siblings[t.q.Context],
				External:   external,
			})
			if msg == "" {
				continue
			}
			if prev, failed := res.violations[t.q]; failed && rule.Advisory && prev.Advisory {
				continue
			}
			res.violations[t.q] = Violation{
				Field:    t.q,
				Message:  msg,
				Code:     CodeRule,
				Rule:     rule.Name,
				Advisory: rule.Advisory,
			}
		}
	}

	return res
}
