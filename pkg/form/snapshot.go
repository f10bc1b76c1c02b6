package form

import "github.com/goliatone/go-formctx/pkg/model"

// Snapshot flattens the active contexts into a map keyed by the dotted
// `context.field` form. Static fields are display-only and left out.
func (c *Controller) Snapshot() map[string]any {
	out := make(map[string]any)
	for _, ctx := range c.selection.Contexts {
		values := c.store.Values(ctx)
		for _, field := range c.store.Fields(ctx) {
			if field.Type == model.FieldTypeStatic {
				continue
			}
			out[model.Q(ctx, field.Name).String()] = values[field.Name]
		}
	}
	return out
}

// SnapshotByContext is Snapshot grouped by context name.
func (c *Controller) SnapshotByContext() map[string]map[string]any {
	out := make(map[string]map[string]any, len(c.selection.Contexts))
	for _, ctx := range c.selection.Contexts {
		values := c.store.Values(ctx)
		group := make(map[string]any, len(values))
		for _, field := range c.store.Fields(ctx) {
			if field.Type == model.FieldTypeStatic {
				continue
			}
			group[field.Name] = values[field.Name]
		}
		out[ctx] = group
	}
	return out
}
