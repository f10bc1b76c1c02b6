package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctx/pkg/crossentity"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/forms"
	"github.com/goliatone/go-formctx/pkg/formspec"
	"github.com/goliatone/go-formctx/pkg/openapi"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Sources a catalog entry can come from.
const (
	sourceBuiltin = "builtin"
	sourceSpecDir = "spec-dir"
	sourceOpenAPI = "openapi"
)

// environment is the host-owned state read from --external. Devices and osds
// are lifted out for the forms that need typed inventories.
type environment struct {
	External validation.External
	Devices  []crossentity.Device
	OSDs     []forms.OSDEntry
}

type entry struct {
	ID     string
	Source string
	build  func(env environment, opts ...form.Option) (*form.Controller, error)
}

type catalog struct {
	entries map[string]entry
}

func (c *catalog) add(e entry) error {
	if _, exists := c.entries[e.ID]; exists {
		return fmt.Errorf("form %q defined by %s shadows an existing form", e.ID, e.Source)
	}
	c.entries[e.ID] = e
	return nil
}

func (c *catalog) lookup(id string) (entry, error) {
	e, ok := c.entries[id]
	if !ok {
		return entry{}, fmt.Errorf("%w: %q", formspec.ErrUnknownForm, id)
	}
	return e, nil
}

func (c *catalog) sorted() []entry {
	out := make([]entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// loadCatalog gathers the built-in console forms plus whatever --spec-dir and
// --openapi contribute.
func (a *app) loadCatalog(ctx context.Context) (*catalog, error) {
	cat := &catalog{entries: make(map[string]entry)}
	for _, e := range builtinForms() {
		if err := cat.add(e); err != nil {
			return nil, err
		}
	}

	if a.specDir != "" {
		store, err := formspec.LoadFS(os.DirFS(a.specDir))
		if err != nil {
			return nil, err
		}
		for _, id := range store.IDs() {
			if err := cat.add(specDirForm(store, id)); err != nil {
				return nil, err
			}
		}
		a.logger.Debug("loaded form definitions", slog.String("dir", a.specDir), slog.Int("forms", len(store.IDs())))
	}

	if a.openapiFile != "" {
		e, err := a.openapiForm(ctx)
		if err != nil {
			return nil, err
		}
		if err := cat.add(e); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

func builtinForms() []entry {
	return []entry{
		{ID: "osdEditor", Source: sourceBuiltin, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
			entries := env.OSDs
			if len(entries) == 0 {
				entries = []forms.OSDEntry{{ID: "0"}, {ID: "1"}}
			}
			osd, err := forms.OSDEditor(entries, env.Devices, formOptions(env, opts)...)
			if err != nil {
				return nil, err
			}
			return osd.Controller, nil
		}},
		{ID: "providerRegistration", Source: sourceBuiltin, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
			return forms.ProviderRegistration(env.External.Strings(forms.ExcludedSubdomainsKey), formOptions(env, opts)...)
		}},
		{ID: "storageAdd", Source: sourceBuiltin, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
			return forms.StorageAdd(formOptions(env, opts)...)
		}},
		{ID: "storageImport", Source: sourceBuiltin, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
			return forms.StorageImport(formOptions(env, opts)...)
		}},
	}
}

// formOptions hands the environment to a built-in form. The external state
// is applied after the form's own seed so host values win.
func formOptions(env environment, opts []form.Option) []forms.Option {
	all := append([]form.Option(nil), opts...)
	if len(env.External) > 0 {
		all = append(all, form.WithExternal(env.External))
	}
	return []forms.Option{forms.WithFormOptions(all...)}
}

func specDirForm(store *formspec.Store, id string) entry {
	return entry{ID: id, Source: sourceSpecDir, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
		def, _ := store.Definition(id)
		resolvers := formspec.Resolvers{"devices": crossentity.Identity}
		if len(env.Devices) > 0 {
			resolvers["devices"] = crossentity.DeviceResolver(env.Devices)
		}
		all := append([]form.Option(nil), opts...)
		if len(env.External) > 0 {
			all = append(all, form.WithExternal(def.External.Merge(env.External)))
		}
		return store.Controller(id, resolvers, all...)
	}}
}

func (a *app) openapiForm(ctx context.Context) (entry, error) {
	if a.schema == "" {
		return entry{}, fmt.Errorf("--schema is required with --openapi")
	}
	raw, err := os.ReadFile(a.openapiFile)
	if err != nil {
		return entry{}, fmt.Errorf("read openapi document: %w", err)
	}
	imported, err := openapi.Import(ctx, raw, a.schema, openapi.ImportOptions{})
	if err != nil {
		return entry{}, err
	}
	for _, skipped := range imported.Skipped {
		a.logger.Warn("openapi property has no field equivalent", slog.String("property", skipped))
	}
	return entry{ID: a.schema, Source: sourceOpenAPI, build: func(env environment, opts ...form.Option) (*form.Controller, error) {
		all := append([]form.Option(nil), opts...)
		if len(env.External) > 0 {
			all = append(all, form.WithExternal(env.External))
		}
		return form.New(imported.Spec(), all...)
	}}, nil
}

// loadEnvironment reads the --external document. JSON documents parse as
// YAML.
func loadEnvironment(path string) (environment, error) {
	if path == "" {
		return environment{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return environment{}, fmt.Errorf("read external state: %w", err)
	}
	var doc struct {
		Devices []crossentity.Device `yaml:"devices"`
		OSDs    []forms.OSDEntry     `yaml:"osds"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return environment{}, fmt.Errorf("parse external state %s: %w", path, err)
	}
	var ext map[string]any
	if err := yaml.Unmarshal(raw, &ext); err != nil {
		return environment{}, fmt.Errorf("parse external state %s: %w", path, err)
	}
	delete(ext, "devices")
	delete(ext, "osds")
	return environment{External: validation.External(ext), Devices: doc.Devices, OSDs: doc.OSDs}, nil
}
