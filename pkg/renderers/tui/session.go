// Package tui fills a form controller from the terminal. Fields are prompted
// in the order of the active contexts; a discriminator answer that changes
// the active set is picked up before the next prompt, so only relevant
// contexts are ever asked for.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Session walks a controller's active fields through a PromptDriver.
type Session struct {
	driver      PromptDriver
	maxAttempts int
	theme       Theme
	logger      *slog.Logger
}

// New constructs a session with defaults (survey driver on stdout).
func New(options ...Option) *Session {
	s := &Session{
		maxAttempts: DefaultMaxAttempts,
		theme:       DefaultTheme,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		s.driver = NewSurveyDriver(nil)
	}
	return s
}

// Run prompts every active field once, re-prompting fields whose answer is
// rejected, then settles cross-field violations. It returns the controller's
// snapshot once the form is valid.
func (s *Session) Run(ctx context.Context, c *form.Controller) (map[string]any, error) {
	if c == nil {
		return nil, ErrNoController
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prompted := make(map[model.QualifiedName]bool)
	for {
		q, ok := nextField(c, prompted)
		if !ok {
			break
		}
		prompted[q] = true
		if err := s.promptField(ctx, c, q); err != nil {
			return nil, err
		}
	}

	for round := 0; !c.IsValid(); round++ {
		blocking := c.Result().Blocking(c.ActiveContexts())
		if round >= s.maxAttempts {
			return nil, fmt.Errorf("%w: %s", ErrTooManyAttempts, blocking[0].Field)
		}
		for _, v := range blocking {
			if _, still := c.Result().Violation(v.Field); !still {
				continue
			}
			if err := s.promptField(ctx, c, v.Field); err != nil {
				return nil, err
			}
		}
	}

	return c.Snapshot(), nil
}

// nextField returns the first active field not prompted yet. The active set
// is read fresh on every call.
func nextField(c *form.Controller, prompted map[model.QualifiedName]bool) (model.QualifiedName, bool) {
	for _, q := range c.ActiveQualifiedFields() {
		if !prompted[q] {
			return q, true
		}
	}
	return model.QualifiedName{}, false
}

func (s *Session) promptField(ctx context.Context, c *form.Controller, q model.QualifiedName) error {
	def, ok := c.Definition(q.Context, q.Field)
	if !ok {
		return fmt.Errorf("tui: %w", &model.UnknownFieldError{Field: q})
	}
	if def.Type == model.FieldTypeStatic {
		current, _ := c.Value(q.Context, q.Field)
		return s.say(ctx, s.theme.InfoPrefix, label(def), validation.ValueString(current))
	}

	for attempt := 1; ; attempt++ {
		value, err := s.ask(ctx, c, q, def)
		if err != nil {
			return err
		}
		if _, err := c.SetValue(q.Context, q.Field, value); err != nil {
			return fmt.Errorf("tui: %w", err)
		}

		v, found := c.Result().Violation(q)
		if !found {
			return nil
		}
		if v.Advisory {
			return s.say(ctx, s.theme.WarningPrefix, label(def), v.Message)
		}
		if err := s.say(ctx, s.theme.ErrorPrefix, label(def), v.Message); err != nil {
			return err
		}
		s.logger.Debug("tui: rejected answer",
			slog.String("field", q.String()),
			slog.String("code", v.Code),
			slog.Int("attempt", attempt),
		)
		if attempt >= s.maxAttempts {
			return fmt.Errorf("%w: %s", ErrTooManyAttempts, q)
		}
	}
}

func (s *Session) ask(ctx context.Context, c *form.Controller, q model.QualifiedName, def model.Field) (any, error) {
	current, _ := c.Value(q.Context, q.Field)
	message := label(def)

	switch def.Type {
	case model.FieldTypeCheckbox:
		defaultVal, _ := validation.CoerceBool(current)
		return s.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: defaultVal, Help: def.Description})

	case model.FieldTypeRadioGroup, model.FieldTypeDropdown:
		if len(def.Options) == 0 {
			break
		}
		labels := make([]string, len(def.Options))
		defaultIdx := -1
		for i, opt := range def.Options {
			labels[i] = optionLabel(opt)
			if current != nil && validation.ValueString(opt.Value) == validation.ValueString(current) {
				defaultIdx = i
			}
		}
		pageSize, _ := strconv.Atoi(def.Metadata["pageSize"])
		idx, err := s.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      labels,
			DefaultIndex: defaultIdx,
			Help:         def.Description,
			PageSize:     pageSize,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(def.Options) {
			return nil, nil
		}
		return def.Options[idx].Value, nil

	case model.FieldTypeNumber:
		raw, err := s.driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   validation.ValueString(current),
			Help:      def.Description,
			Validator: answerValidator(def),
		})
		if err != nil {
			return nil, err
		}
		return parseNumber(raw, def.Metadata["integer"] == "true"), nil
	}

	cfg := InputConfig{
		Message:   message,
		Default:   validation.ValueString(current),
		Help:      def.Description,
		Validator: answerValidator(def),
	}
	switch {
	case def.Metadata["format"] == "password":
		return s.driver.Password(ctx, cfg)
	case def.Metadata["format"] == "textarea" || def.Metadata["widget"] == "textarea":
		return s.driver.TextArea(ctx, TextAreaConfig(cfg))
	default:
		return s.driver.Input(ctx, cfg)
	}
}

func (s *Session) say(ctx context.Context, prefix, subject, message string) error {
	if message == "" {
		return nil
	}
	return s.driver.Info(ctx, prefix+subject+": "+message)
}

// answerValidator rejects answers the form would refuse on shape alone: blank
// required answers and numbers that do not parse. Rules and bounds are left
// to the form.
func answerValidator(def model.Field) func(string) error {
	integer := def.Metadata["integer"] == "true"
	return func(raw string) error {
		if strings.TrimSpace(raw) == "" {
			if def.Required {
				return errAnswerRequired
			}
			return nil
		}
		if def.Type != model.FieldTypeNumber {
			return nil
		}
		switch parseNumber(raw, integer).(type) {
		case int, float64:
			return nil
		}
		return errAnswerNotNumber
	}
}

// parseNumber keeps unparsable input as text so the engine reports it as
// malformed instead of silently storing zero.
func parseNumber(raw string, integer bool) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if integer {
		if n, err := strconv.Atoi(trimmed); err == nil {
			return n
		}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return raw
}

func label(def model.Field) string {
	if strings.TrimSpace(def.Label) != "" {
		return def.Label
	}
	return def.Name
}

func optionLabel(opt model.Option) string {
	if opt.Label != "" {
		return opt.Label
	}
	return fmt.Sprint(opt.Value)
}
