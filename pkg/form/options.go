package form

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-formctx/pkg/validation"
)

// Deriver computes cross-entity state as a pure function of the whole store.
// When configured, the controller calls it ahead of every recalculation and
// merges the result over the state pushed with OnExternalStateChanged.
type Deriver func(src validation.Source) validation.External

// Option customises the controller configuration.
type Option func(*Controller)

// WithLogger routes controller diagnostics (inactive writes, selection
// fallbacks) to logger. The default discards them.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithExternal seeds the external state before the first recalculation.
func WithExternal(ext validation.External) Option {
	return func(c *Controller) {
		c.engine.SetExternal(ext)
	}
}

// WithDeriver registers host derivations of external state. Multiple
// derivers run in registration order; later keys win.
func WithDeriver(derivers ...Deriver) Option {
	return func(c *Controller) {
		for _, d := range derivers {
			if d != nil {
				c.derivers = append(c.derivers, d)
			}
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
