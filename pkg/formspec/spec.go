package formspec

import (
	"fmt"

	"github.com/goliatone/go-formctx/pkg/crossentity"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Resolvers maps the resolver names used by unique rules onto host
// resolvers. Rules without a resolver compare trimmed values.
type Resolvers map[string]crossentity.Resolver

// Spec converts the form registered under id into a controller spec.
func (s *Store) Spec(id string, resolvers Resolvers) (form.Spec, error) {
	def, ok := s.Definition(id)
	if !ok {
		return form.Spec{}, fmt.Errorf("%w: %q", ErrUnknownForm, id)
	}

	spec := form.Spec{
		Contexts:           cloneContexts(def.Contexts),
		Mode:               def.Mode,
		DiscriminatorValue: def.DiscriminatorValue,
	}
	if def.Discriminator != nil {
		q := *def.Discriminator
		spec.Discriminator = &q
	}
	if def.Selector != nil {
		spec.Selector = *def.Selector
	}

	for i, cfg := range def.Rules {
		rule, err := buildRule(cfg, resolvers)
		if err != nil {
			return form.Spec{}, fmt.Errorf("formspec: form %q rule %d: %w", id, i, err)
		}
		spec.Rules = append(spec.Rules, rule)
	}
	return spec, nil
}

// Controller builds a controller for the form registered under id, seeded
// with the definition's external state. opts apply after the seed.
func (s *Store) Controller(id string, resolvers Resolvers, opts ...form.Option) (*form.Controller, error) {
	spec, err := s.Spec(id, resolvers)
	if err != nil {
		return nil, err
	}
	def, _ := s.Definition(id)
	all := make([]form.Option, 0, len(opts)+2)
	if len(def.External) > 0 {
		all = append(all, form.WithExternal(def.External))
	}
	for _, cfg := range def.Rules {
		if cfg.Kind != RuleUnique || !cfg.Derive {
			continue
		}
		// Spec already rejected unknown resolvers.
		all = append(all, form.WithDeriver(crossentity.UsageDeriver(cfg.Key, cfg.Field, resolvers[cfg.Resolver])))
	}
	all = append(all, opts...)
	return form.New(spec, all...)
}

func buildRule(cfg RuleConfig, resolvers Resolvers) (validation.Rule, error) {
	var rule validation.Rule
	switch cfg.Kind {
	case RuleUnique:
		var resolve crossentity.Resolver
		if cfg.Resolver != "" {
			r, ok := resolvers[cfg.Resolver]
			if !ok || r == nil {
				return validation.Rule{}, fmt.Errorf("unknown resolver %q", cfg.Resolver)
			}
			resolve = r
		}
		rule = crossentity.Unique(cfg.Key, cfg.Field, resolve, cfg.Message)
	case RuleDenylist:
		rule = crossentity.Denylist(cfg.Key, cfg.Field, cfg.Message)
	case RuleLessThan:
		rule = validation.LessThan(cfg.Context, cfg.Lower, cfg.Upper, cfg.Message)
	default:
		return validation.Rule{}, fmt.Errorf("unknown rule kind %q", cfg.Kind)
	}

	if cfg.Name != "" {
		rule.Name = cfg.Name
	}
	rule.Advisory = cfg.Advisory
	rule.Precedence = cfg.Precedence
	return rule, nil
}

func cloneContexts(in []model.Context) []model.Context {
	out := make([]model.Context, len(in))
	for i, ctx := range in {
		fields := make([]model.Field, len(ctx.Fields))
		for j, f := range ctx.Fields {
			fields[j] = f.Clone()
		}
		out[i] = model.Context{Name: ctx.Name, Fields: fields}
	}
	return out
}
