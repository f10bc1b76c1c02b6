package forms

import (
	"fmt"

	"github.com/goliatone/go-formctx/pkg/crossentity"
	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

// Domain types of the provider registration form.
const (
	DomainCustom    = "custom"
	DomainSubdomain = "subdomain"
)

// ProviderContexts are the context names of the provider registration form.
var ProviderContexts = struct {
	General, EditDomain, EditSubdomain, ShowDomain string
}{"general", "editDomain", "editSubdomain", "showDomain"}

// ProviderRegistration builds the provider registration form. The domainType
// field chooses between a custom domain and a subdomain of the console host;
// subdomains listed in excluded are reserved. Hosts can replace the reserved
// list later through OnExternalStateChanged under ExcludedSubdomainsKey.
func ProviderRegistration(excluded []string, opts ...Option) (*form.Controller, error) {
	cfg := newConfig(opts)
	ctx := ProviderContexts

	spec := form.Spec{
		Contexts: []model.Context{
			{Name: ctx.General, Fields: []model.Field{
				{Name: "name", Type: model.FieldTypeText, Required: true, Label: "Provider name", Validations: []model.ValidationRule{
					rule(model.ValidationRuleMaxLength, "value", "64"),
				}},
				{Name: "domainType", Type: model.FieldTypeRadioGroup, Required: true, Label: "Domain", Default: DomainSubdomain, Options: options(DomainCustom, DomainSubdomain)},
			}},
			{Name: ctx.EditDomain, Fields: []model.Field{
				{Name: "domain", Type: model.FieldTypeText, Required: true, Label: "Domain", Validations: []model.ValidationRule{
					rule(model.ValidationRulePattern, "pattern", `^([a-z0-9]([a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}$`, "message", "must be a valid domain name"),
				}},
				{Name: "certificate", Type: model.FieldTypeCheckbox, Label: "Provide my own certificate", Default: false},
			}},
			{Name: ctx.EditSubdomain, Fields: []model.Field{
				{Name: "subdomain", Type: model.FieldTypeText, Required: true, Label: "Subdomain", Validations: []model.ValidationRule{
					rule(model.ValidationRuleMaxLength, "value", "63"),
					rule(model.ValidationRulePattern, "pattern", `^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`, "message", "may only contain lowercase letters, digits and dashes"),
				}},
			}},
			{Name: ctx.ShowDomain, Fields: []model.Field{
				{Name: "summary", Type: model.FieldTypeStatic, Label: "The provider will be reachable at the selected domain"},
			}},
		},
		Discriminator: discriminator(ctx.General, "domainType"),
		Mode:          ModeEdit,
		Selector: visibility.Table{
			Modes: map[string]visibility.Branches{
				ModeEdit: {
					Cases: map[string][]string{
						DomainCustom:    {ctx.General, ctx.EditDomain},
						DomainSubdomain: {ctx.General, ctx.EditSubdomain},
					},
					Default: []string{ctx.General, ctx.EditSubdomain},
				},
				ModeShow: {Default: []string{ctx.General, ctx.ShowDomain}},
			},
			Default: []string{ctx.General},
		},
		Rules: []validation.Rule{
			crossentity.Denylist(ExcludedSubdomainsKey, "subdomain", ""),
		},
	}

	formOpts := append([]form.Option{
		form.WithExternal(validation.External{ExcludedSubdomainsKey: append([]string(nil), excluded...)}),
	}, cfg.formOptions...)

	c, err := form.New(spec, formOpts...)
	if err != nil {
		return nil, fmt.Errorf("forms: provider registration: %w", err)
	}
	return c, nil
}
