// Package forms holds the concrete console forms built on the form
// controller: the OSD editor, provider registration, storage add and storage
// import. Each constructor returns a ready controller; hosts stay in charge
// of pushing external state such as device lists or reserved names.
package forms

import (
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
)

// Keys under which the forms read host-owned external state.
const (
	DeviceUsageKey        = "deviceUsage"
	ExcludedSubdomainsKey = "excludedSubdomains"
)

// Modes shared by the console forms.
const (
	ModeAdd    = "add"
	ModeEdit   = "edit"
	ModeShow   = "show"
	ModeImport = "import"
)

// Option customises a concrete form.
type Option func(*config)

type config struct {
	advisoryReuse bool
	formOptions   []form.Option
}

// WithAdvisoryDeviceReuse surfaces device collisions as field messages
// without blocking submission.
func WithAdvisoryDeviceReuse() Option {
	return func(c *config) {
		c.advisoryReuse = true
	}
}

// WithFormOptions forwards options to the underlying controller.
func WithFormOptions(opts ...form.Option) Option {
	return func(c *config) {
		c.formOptions = append(c.formOptions, opts...)
	}
}

func newConfig(opts []Option) config {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func rule(kind string, params ...string) model.ValidationRule {
	out := model.ValidationRule{Kind: kind, Params: map[string]string{}}
	for i := 0; i+1 < len(params); i += 2 {
		out.Params[params[i]] = params[i+1]
	}
	return out
}

func options(values ...string) []model.Option {
	out := make([]model.Option, 0, len(values))
	for _, v := range values {
		out = append(out, model.Option{Value: v, Label: v})
	}
	return out
}

func discriminator(context, field string) *model.QualifiedName {
	q := model.Q(context, field)
	return &q
}
