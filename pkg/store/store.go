// Package store holds the ValueStore and per-field runtime state of a form.
// Every registered context keeps its values for the lifetime of the form, even
// while inactive, so switching contexts never loses user input.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formctx/pkg/model"
)

var (
	// ErrEmptyName is returned when a context or field name is blank.
	ErrEmptyName = errors.New("store: context and field names are required")
	// ErrUntrimmedName is returned for names with leading or trailing
	// whitespace. Lookups are exact, so such names would be unreachable.
	ErrUntrimmedName = errors.New("store: names must not have surrounding whitespace")
)

// FieldState is the mutable interaction state of a single field. Valid and
// Invalid are mutually exclusive and both false while the field is untouched.
type FieldState struct {
	Touched bool   `json:"touched"`
	Valid   bool   `json:"isValid"`
	Invalid bool   `json:"isInvalid"`
	Message string `json:"message,omitempty"`
}

type entry struct {
	def   model.Field
	value any
	state FieldState
}

type contextEntry struct {
	name   string
	order  []string
	fields map[string]*entry
}

// Store keeps current values keyed by (context, field name). It is not safe
// for concurrent use; the form controller serialises access.
type Store struct {
	order    []string
	contexts map[string]*contextEntry
}

// New seeds a store with the supplied contexts, using each field's Default as
// its initial value. A repeated (context, name) pair yields a
// *model.DuplicateFieldError.
func New(contexts ...model.Context) (*Store, error) {
	s := &Store{contexts: make(map[string]*contextEntry)}
	for _, ctx := range contexts {
		if err := s.AddContext(ctx.Name); err != nil {
			return nil, err
		}
		for _, field := range ctx.Fields {
			if err := s.Register(ctx.Name, field); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// AddContext declares an empty context so it survives even without fields.
func (s *Store) AddContext(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.ensureContext(name)
	return nil
}

// Register adds a field definition under context, creating the context when
// needed.
func (s *Store) Register(context string, field model.Field) error {
	for _, n := range []string{context, field.Name} {
		if err := checkName(n); err != nil {
			return fmt.Errorf("%w: %q", err, model.Q(context, field.Name).String())
		}
	}
	name := field.Name
	ctx := s.ensureContext(context)
	if _, exists := ctx.fields[name]; exists {
		return &model.DuplicateFieldError{Field: model.Q(context, name)}
	}

	def := field.Clone()
	ctx.fields[name] = &entry{
		def:   def,
		value: deepCopy(def.Default),
	}
	ctx.order = append(ctx.order, name)
	return nil
}

// Has reports whether q was registered.
func (s *Store) Has(q model.QualifiedName) bool {
	return s.lookup(q) != nil
}

// HasContext reports whether the context was declared.
func (s *Store) HasContext(name string) bool {
	_, ok := s.contexts[name]
	return ok
}

// Value returns the current value of q.
func (s *Store) Value(q model.QualifiedName) (any, bool) {
	e := s.lookup(q)
	if e == nil {
		return nil, false
	}
	return deepCopy(e.value), true
}

// SetValue writes value to q and marks it touched.
func (s *Store) SetValue(q model.QualifiedName, value any) error {
	e := s.lookup(q)
	if e == nil {
		return &model.UnknownFieldError{Field: q}
	}
	e.value = deepCopy(value)
	e.state.Touched = true
	return nil
}

// Reset restores default values and clears runtime state for the supplied
// contexts, or for every context when none are given. Unknown names are
// ignored.
func (s *Store) Reset(contexts ...string) {
	if len(contexts) == 0 {
		contexts = s.order
	}
	for _, name := range contexts {
		ctx, ok := s.contexts[name]
		if !ok {
			continue
		}
		for _, e := range ctx.fields {
			e.value = deepCopy(e.def.Default)
			e.state = FieldState{}
		}
	}
}

// State returns the runtime state of q.
func (s *Store) State(q model.QualifiedName) (FieldState, bool) {
	e := s.lookup(q)
	if e == nil {
		return FieldState{}, false
	}
	return e.state, true
}

// ApplyResult records the outcome of a recalculation. message is the first
// violation for the field, or empty when it passed. Untouched fields keep
// Valid and Invalid false.
func (s *Store) ApplyResult(q model.QualifiedName, message string) {
	e := s.lookup(q)
	if e == nil {
		return
	}
	if !e.state.Touched {
		e.state.Valid = false
		e.state.Invalid = false
		e.state.Message = ""
		return
	}
	failed := message != ""
	e.state.Valid = !failed
	e.state.Invalid = failed
	e.state.Message = message
}

// Definition returns the registered field definition for q.
func (s *Store) Definition(q model.QualifiedName) (model.Field, bool) {
	e := s.lookup(q)
	if e == nil {
		return model.Field{}, false
	}
	return e.def.Clone(), true
}

// SetOptions replaces the options of a registered field. It is the only
// mutation a definition accepts after registration.
func (s *Store) SetOptions(q model.QualifiedName, options []model.Option) error {
	e := s.lookup(q)
	if e == nil {
		return &model.UnknownFieldError{Field: q}
	}
	e.def.Options = append([]model.Option(nil), options...)
	return nil
}

// Contexts lists context names in declaration order.
func (s *Store) Contexts() []string {
	return append([]string(nil), s.order...)
}

// Fields lists the definitions of a context in declaration order.
func (s *Store) Fields(context string) []model.Field {
	ctx, ok := s.contexts[context]
	if !ok {
		return nil
	}
	out := make([]model.Field, 0, len(ctx.order))
	for _, name := range ctx.order {
		out = append(out, ctx.fields[name].def.Clone())
	}
	return out
}

// Values returns a copy of the current values of a context keyed by field
// name.
func (s *Store) Values(context string) map[string]any {
	ctx, ok := s.contexts[context]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(ctx.fields))
	for name, e := range ctx.fields {
		out[name] = deepCopy(e.value)
	}
	return out
}

func checkName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrEmptyName
	case strings.TrimSpace(name) != name:
		return ErrUntrimmedName
	}
	return nil
}

func (s *Store) ensureContext(name string) *contextEntry {
	if ctx, ok := s.contexts[name]; ok {
		return ctx
	}
	ctx := &contextEntry{name: name, fields: make(map[string]*entry)}
	s.contexts[name] = ctx
	s.order = append(s.order, name)
	return ctx
}

func (s *Store) lookup(q model.QualifiedName) *entry {
	if s == nil {
		return nil
	}
	ctx, ok := s.contexts[q.Context]
	if !ok {
		return nil
	}
	return ctx.fields[q.Field]
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
