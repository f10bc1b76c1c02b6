package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateField signals two definitions sharing a qualified name.
	ErrDuplicateField = errors.New("model: duplicate field")
	// ErrUnknownField signals a (context, name) pair that was never registered.
	ErrUnknownField = errors.New("model: unknown field")
	// ErrInactiveField signals a registered field outside the active contexts.
	ErrInactiveField = errors.New("model: field is not in an active context")
)

// DuplicateFieldError is returned at construction time when a context already
// holds a field with the same name. It is fatal for the form being built.
type DuplicateFieldError struct {
	Field QualifiedName
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("model: duplicate field %q", e.Field.String())
}

func (e *DuplicateFieldError) Unwrap() error { return ErrDuplicateField }

// UnknownFieldError is returned when a write targets a field that was never
// registered.
type UnknownFieldError struct {
	Field QualifiedName
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("model: unknown field %q", e.Field.String())
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// UnknownFieldWarning reports a write to a registered field whose context is
// not active. The write is still recorded; hosts pre-populate inactive fields.
type UnknownFieldWarning struct {
	Field  QualifiedName
	Active []string
}

func (w *UnknownFieldWarning) Error() string {
	return fmt.Sprintf("model: field %q is outside the active contexts %v", w.Field.String(), w.Active)
}

func (w *UnknownFieldWarning) Unwrap() error { return ErrInactiveField }
