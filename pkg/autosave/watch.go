package autosave

import (
	"log/slog"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/render"
)

// Watch enqueues the controller's payload after every value change, reset or
// context switch that leaves the form valid. Invalid states are never saved.
// The returned function stops watching.
func Watch(c *form.Controller, q *Queue, opts render.PayloadOptions) func() {
	return c.Subscribe(func(ev form.Event) {
		switch ev.Kind {
		case form.EventValueChanged, form.EventReset, form.EventContextSwitched, form.EventExternalChanged:
		default:
			return
		}
		if !ev.Valid {
			return
		}
		payload, err := render.Payload(c.Snapshot(), opts)
		if err != nil {
			q.logger.Warn("autosave: build payload", slog.String("error", err.Error()))
			return
		}
		if err := q.Enqueue(payload); err != nil {
			q.logger.Debug("autosave: enqueue", slog.String("error", err.Error()))
		}
	})
}
