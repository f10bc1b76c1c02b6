package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrTooManyAttempts is returned when a field stays invalid after the
	// configured number of prompts.
	ErrTooManyAttempts = errors.New("tui: too many invalid attempts")
	// ErrNoController is returned when Run is called without a controller.
	ErrNoController = errors.New("tui: controller is nil")

	errAnswerRequired  = errors.New("field is required")
	errAnswerNotNumber = errors.New("must be a number")
)
