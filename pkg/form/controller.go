// Package form provides the FormController: the single entry point hosts use
// to register fields, write values, switch modes, reset contexts and read
// validation output. Every mutating call runs to completion, including a full
// recalculation, before it returns; there is no background work.
package form

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/store"
	"github.com/goliatone/go-formctx/pkg/validation"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

// ErrReentrantMutation is returned when an observer tries to mutate the
// controller while it is delivering an event.
var ErrReentrantMutation = errors.New("form: mutation from inside an observer")

// Spec describes a form at construction time.
type Spec struct {
	Contexts []model.Context
	// Discriminator names the field whose value selects active contexts.
	// Optional; without it the discriminator is whatever SwitchMode supplied.
	Discriminator *model.QualifiedName
	// Selector derives the active contexts. Defaults to every context.
	Selector visibility.Selector
	Rules    []validation.Rule
	// Mode is the initial mode passed to the selector.
	Mode string
	// DiscriminatorValue seeds the discriminator when no Discriminator field
	// is declared.
	DiscriminatorValue any
}

// Controller orchestrates the store, validation engine and context selector.
// It is not safe for concurrent use.
type Controller struct {
	store         *store.Store
	engine        *validation.Engine
	selector      visibility.Selector
	discriminator *model.QualifiedName
	derivers      []Deriver
	logger        *slog.Logger

	mode               string
	discriminatorValue any
	selection          visibility.Selection
	result             validation.Result

	observers    []subscription
	nextObserver int
	notifying    bool
}

// New builds a controller from spec. Construction errors (duplicate fields,
// an unknown discriminator field, malformed rules) are fatal.
func New(spec Spec, options ...Option) (*Controller, error) {
	s, err := store.New(spec.Contexts...)
	if err != nil {
		return nil, fmt.Errorf("form: %w", err)
	}

	c := &Controller{
		store:              s,
		engine:             validation.New(),
		selector:           spec.Selector,
		logger:             discardLogger(),
		mode:               spec.Mode,
		discriminatorValue: spec.DiscriminatorValue,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}

	if c.selector == nil {
		c.selector = visibility.Static(s.Contexts()...)
	}

	if spec.Discriminator != nil {
		q := *spec.Discriminator
		if !s.Has(q) {
			return nil, fmt.Errorf("form: discriminator: %w", &model.UnknownFieldError{Field: q})
		}
		c.discriminator = &q
		c.discriminatorValue, _ = s.Value(q)
	}

	for _, rule := range spec.Rules {
		if err := c.engine.AddRule(rule); err != nil {
			return nil, fmt.Errorf("form: %w", err)
		}
	}

	c.reselect()
	c.recalculate()
	return c, nil
}

// RegisterField adds a field definition after construction.
func (c *Controller) RegisterField(context string, field model.Field) error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.store.Register(context, field); err != nil {
		return fmt.Errorf("form: register field: %w", err)
	}
	c.reselect()
	c.recalculate()
	c.notify(EventFieldRegistered, model.Q(context, field.Name))
	return nil
}

// AddRule registers a rule and recalculates.
func (c *Controller) AddRule(rule validation.Rule) error {
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.engine.AddRule(rule); err != nil {
		return fmt.Errorf("form: %w", err)
	}
	c.recalculate()
	c.notify(EventRecalculated, model.QualifiedName{})
	return nil
}

// SetValue writes a value and recalculates. Writing a field that was never
// registered fails with *model.UnknownFieldError. Writing a registered field
// outside the active contexts succeeds and returns a *model.UnknownFieldWarning.
func (c *Controller) SetValue(context, name string, value any) (*model.UnknownFieldWarning, error) {
	if err := c.guard(); err != nil {
		return nil, err
	}
	q := model.Q(context, name)
	if err := c.store.SetValue(q, value); err != nil {
		return nil, err
	}

	var warning *model.UnknownFieldWarning
	if !q.InContext(c.selection.Contexts...) {
		warning = &model.UnknownFieldWarning{Field: q, Active: c.ActiveContexts()}
		c.logger.Warn("form: write to inactive field",
			slog.String("field", q.String()),
			slog.Any("active", c.selection.Contexts),
		)
	}

	if c.discriminator != nil && *c.discriminator == q {
		c.discriminatorValue, _ = c.store.Value(q)
		c.reselect()
	}

	c.recalculate()
	c.notify(EventValueChanged, q)
	return warning, nil
}

// SwitchMode recomputes the active contexts for mode and discriminator. No
// stored value or runtime state changes.
func (c *Controller) SwitchMode(mode string, discriminator any) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.mode = mode
	c.discriminatorValue = discriminator
	c.reselect()
	c.notify(EventContextSwitched, model.QualifiedName{})
	return nil
}

// ResetForm restores defaults and clears runtime state for the supplied
// contexts, or for every context when none are given, then reruns context
// selection.
func (c *Controller) ResetForm(contexts ...string) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.store.Reset(contexts...)
	if c.discriminator != nil && (len(contexts) == 0 || c.discriminator.InContext(contexts...)) {
		c.discriminatorValue, _ = c.store.Value(*c.discriminator)
	}
	c.reselect()
	c.recalculate()
	c.notify(EventReset, model.QualifiedName{})
	return nil
}

// OnExternalStateChanged replaces the host-owned cross-entity state and
// recalculates, so rules depending on it re-run even though no field changed.
func (c *Controller) OnExternalStateChanged(ext validation.External) error {
	if err := c.guard(); err != nil {
		return err
	}
	c.engine.SetExternal(ext)
	c.recalculate()
	c.notify(EventExternalChanged, model.QualifiedName{})
	return nil
}

// UpdateOptions recomputes the options of a field whose choices derive from
// external data, such as the list of available devices.
func (c *Controller) UpdateOptions(context, name string, options []model.Option) error {
	if err := c.guard(); err != nil {
		return err
	}
	q := model.Q(context, name)
	if err := c.store.SetOptions(q, options); err != nil {
		return err
	}
	c.recalculate()
	c.notify(EventOptionsChanged, q)
	return nil
}

// Recalculate reruns every rule against the whole store.
func (c *Controller) Recalculate() error {
	if err := c.guard(); err != nil {
		return err
	}
	c.recalculate()
	c.notify(EventRecalculated, model.QualifiedName{})
	return nil
}

// Mode returns the current mode.
func (c *Controller) Mode() string { return c.mode }

// DiscriminatorValue returns the value the selector last saw.
func (c *Controller) DiscriminatorValue() any { return c.discriminatorValue }

// Selection returns the last context selection, including whether it fell
// back to a default branch.
func (c *Controller) Selection() visibility.Selection {
	sel := c.selection
	sel.Contexts = append([]string(nil), sel.Contexts...)
	return sel
}

// ActiveContexts returns the ActiveContextSet in selection order.
func (c *Controller) ActiveContexts() []string {
	return append([]string(nil), c.selection.Contexts...)
}

// IsActive reports whether context is currently active.
func (c *Controller) IsActive(context string) bool {
	return slices.Contains(c.selection.Contexts, context)
}

// ActiveFields returns the definitions of the active contexts in declaration
// order.
func (c *Controller) ActiveFields() []model.Field {
	var out []model.Field
	for _, ctx := range c.selection.Contexts {
		out = append(out, c.store.Fields(ctx)...)
	}
	return out
}

// ActiveQualifiedFields returns the qualified names matching ActiveFields.
func (c *Controller) ActiveQualifiedFields() []model.QualifiedName {
	var out []model.QualifiedName
	for _, ctx := range c.selection.Contexts {
		for _, field := range c.store.Fields(ctx) {
			out = append(out, model.Q(ctx, field.Name))
		}
	}
	return out
}

// Definition returns the definition of a registered field.
func (c *Controller) Definition(context, name string) (model.Field, bool) {
	return c.store.Definition(model.Q(context, name))
}

// Value returns the stored value of a field, active or not.
func (c *Controller) Value(context, name string) (any, bool) {
	return c.store.Value(model.Q(context, name))
}

// State returns the runtime state of a field.
func (c *Controller) State(context, name string) (store.FieldState, bool) {
	return c.store.State(model.Q(context, name))
}

// IsValid reports whether no blocking violation exists in the active
// contexts. Advisory rule violations never block.
func (c *Controller) IsValid() bool {
	return c.result.Valid(c.selection.Contexts)
}

// ErrorsFor returns the violations of context, or nil when context is not
// active.
func (c *Controller) ErrorsFor(context string) []validation.Violation {
	if !c.IsActive(context) {
		return nil
	}
	return c.result.ForContext(context)
}

// Errors returns every violation within the active contexts.
func (c *Controller) Errors() []validation.Violation {
	return c.result.Scoped(c.selection.Contexts)
}

// Result exposes the unscoped outcome of the last recalculation.
func (c *Controller) Result() validation.Result {
	return c.result
}

// Store exposes read access to the underlying store for host derivations.
func (c *Controller) Store() validation.Source {
	return c.store
}

func (c *Controller) guard() error {
	if c.notifying {
		return ErrReentrantMutation
	}
	return nil
}

func (c *Controller) reselect() {
	sel := c.selector.Select(c.mode, c.discriminatorValue)

	seen := make(map[string]struct{}, len(sel.Contexts))
	active := make([]string, 0, len(sel.Contexts))
	for _, name := range sel.Contexts {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !c.store.HasContext(name) {
			c.logger.Warn("form: selector returned unknown context",
				slog.String("context", name),
				slog.String("mode", c.mode),
			)
			continue
		}
		active = append(active, name)
	}
	sel.Contexts = active

	if sel.Fallback {
		c.logger.Debug("form: context selection fell back to default",
			slog.String("mode", c.mode),
			slog.Any("discriminator", c.discriminatorValue),
			slog.Any("contexts", active),
		)
	}
	c.selection = sel
}

func (c *Controller) recalculate() {
	var derived validation.External
	for _, derive := range c.derivers {
		derived = derived.Merge(derive(c.store))
	}
	c.result = c.engine.EvaluateWith(c.store, derived)

	for _, ctx := range c.store.Contexts() {
		for _, field := range c.store.Fields(ctx) {
			q := model.Q(ctx, field.Name)
			c.store.ApplyResult(q, c.result.Message(q))
		}
	}
}
