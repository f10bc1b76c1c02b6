package tui

import "log/slog"

// DefaultMaxAttempts bounds how often a single field is re-prompted.
const DefaultMaxAttempts = 3

// Theme captures optional prefixes the session applies when printing
// messages. Keep minimal to avoid coupling prompt logic to ANSI specifics.
type Theme struct {
	InfoPrefix    string
	WarningPrefix string
	ErrorPrefix   string
}

// DefaultTheme is used when no theme is configured.
var DefaultTheme = Theme{
	InfoPrefix:    "",
	WarningPrefix: "warning: ",
	ErrorPrefix:   "error: ",
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithMaxAttempts sets how many times an invalid field is prompted before
// Run gives up. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// WithLogger routes session diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
