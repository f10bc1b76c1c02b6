package crossentity

import (
	"strings"

	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Device is a block device reported by a host, as listed by the storage
// inventory.
type Device struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// DeviceResolver resolves a field value (device id, name or path) to the id
// of a known device. Unknown values do not resolve.
func DeviceResolver(devices []Device) Resolver {
	index := make(map[string]string, len(devices)*3)
	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		index[d.ID] = d.ID
		if d.Name != "" {
			index[d.Name] = d.ID
		}
		if d.Path != "" {
			index[d.Path] = d.ID
		}
	}
	return func(value any) (string, bool) {
		if validation.IsEmpty(value) {
			return "", false
		}
		id, ok := index[strings.TrimSpace(validation.ValueString(value))]
		return id, ok
	}
}

// DeviceOptions renders devices as dropdown options keyed by name. The id and
// path are accepted as aliases so every value DeviceResolver resolves is also
// a valid option.
func DeviceOptions(devices []Device) []model.Option {
	out := make([]model.Option, 0, len(devices))
	for _, d := range devices {
		label := d.Name
		if d.Path != "" {
			label = d.Path
		}
		var aliases []string
		for _, alias := range []string{d.ID, d.Path} {
			if alias != "" && alias != d.Name {
				aliases = append(aliases, alias)
			}
		}
		out = append(out, model.Option{Value: d.Name, Label: label, Aliases: aliases})
	}
	return out
}
