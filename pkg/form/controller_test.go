package form_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/store"
	"github.com/goliatone/go-formctx/pkg/validation"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

var domainQ = model.Q("general", "domainType")

func domainSpec() form.Spec {
	return form.Spec{
		Contexts: []model.Context{
			{Name: "general", Fields: []model.Field{
				{Name: "domainType", Type: model.FieldTypeRadioGroup, Default: "custom", Options: []model.Option{{Value: "custom"}, {Value: "subdomain"}}},
				{Name: "notice", Type: model.FieldTypeStatic, Default: "Pick a domain"},
			}},
			{Name: "editDomain", Fields: []model.Field{
				{Name: "domain", Type: model.FieldTypeText, Required: true, Validations: []model.ValidationRule{
					{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": `^[a-z0-9.-]+\.[a-z]{2,}$`}},
				}},
			}},
			{Name: "editSubdomain", Fields: []model.Field{
				{Name: "subdomain", Type: model.FieldTypeText, Required: true},
				{Name: "weight", Type: model.FieldTypeNumber, Default: 10, Validations: []model.ValidationRule{
					{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}},
				}},
			}},
		},
		Discriminator: &domainQ,
		Mode:          "edit",
		Selector: visibility.Table{
			Modes: map[string]visibility.Branches{
				"edit": {
					Cases: map[string][]string{
						"custom":    {"general", "editDomain"},
						"subdomain": {"general", "editSubdomain"},
					},
					Default: []string{"general", "editSubdomain"},
				},
			},
			Default: []string{"general"},
		},
	}
}

func newController(t *testing.T, opts ...form.Option) *form.Controller {
	t.Helper()
	c, err := form.New(domainSpec(), opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func mustSet(t *testing.T, c *form.Controller, context, name string, value any) {
	t.Helper()
	if _, err := c.SetValue(context, name, value); err != nil {
		t.Fatalf("set %s.%s: %v", context, name, err)
	}
}

func TestNewSelectsFromDiscriminatorDefault(t *testing.T) {
	t.Parallel()

	c := newController(t)
	if diff := cmp.Diff([]string{"general", "editDomain"}, c.ActiveContexts()); diff != "" {
		t.Fatalf("active contexts mismatch (-want +got):\n%s", diff)
	}

	var names []string
	for _, f := range c.ActiveFields() {
		names = append(names, f.Name)
	}
	if diff := cmp.Diff([]string{"domainType", "notice", "domain"}, names); diff != "" {
		t.Fatalf("active fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsDuplicateAndUnknownDiscriminator(t *testing.T) {
	t.Parallel()

	spec := domainSpec()
	spec.Contexts[1].Fields = append(spec.Contexts[1].Fields, model.Field{Name: "domain"})
	if _, err := form.New(spec); !errors.Is(err, model.ErrDuplicateField) {
		t.Fatalf("expected duplicate field error, got %v", err)
	}

	spec = domainSpec()
	missing := model.Q("general", "missing")
	spec.Discriminator = &missing
	if _, err := form.New(spec); !errors.Is(err, model.ErrUnknownField) {
		t.Fatalf("expected unknown discriminator error, got %v", err)
	}
}

func TestRegisterFieldDuplicate(t *testing.T) {
	t.Parallel()

	c := newController(t)
	err := c.RegisterField("editDomain", model.Field{Name: "domain"})
	var dup *model.DuplicateFieldError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateFieldError, got %v", err)
	}

	if err := c.RegisterField("editDomain", model.Field{Name: "alias", Type: model.FieldTypeText}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := c.Definition("editDomain", "alias"); !ok {
		t.Fatalf("expected alias to be registered")
	}
}

func TestSetValueUnknownAndInactive(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := newController(t, form.WithLogger(logger))

	_, err := c.SetValue("editDomain", "nope", "x")
	var unknown *model.UnknownFieldError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}

	warning, err := c.SetValue("editSubdomain", "subdomain", "api")
	if err != nil {
		t.Fatalf("inactive write must not fail: %v", err)
	}
	if warning == nil || warning.Field != model.Q("editSubdomain", "subdomain") {
		t.Fatalf("expected UnknownFieldWarning, got %+v", warning)
	}
	if v, _ := c.Value("editSubdomain", "subdomain"); v != "api" {
		t.Fatalf("inactive write must be recorded, got %v", v)
	}
	if !strings.Contains(logs.String(), "write to inactive field") {
		t.Fatalf("expected warning to be logged, got %q", logs.String())
	}
}

func TestTouchedGating(t *testing.T) {
	t.Parallel()

	c := newController(t)

	state, _ := c.State("editDomain", "domain")
	if state.Invalid || state.Touched {
		t.Fatalf("untouched required field must not be invalid: %+v", state)
	}
	if c.IsValid() {
		t.Fatalf("form with empty required field must not be valid")
	}
	if got := c.ErrorsFor("editDomain"); len(got) != 1 || got[0].Code != validation.CodeRequired {
		t.Fatalf("expected required violation to be reported, got %+v", got)
	}

	mustSet(t, c, "editDomain", "domain", "not a domain")
	state, _ = c.State("editDomain", "domain")
	if !state.Invalid || state.Valid || state.Message != "has an invalid format" {
		t.Fatalf("expected invalid touched state, got %+v", state)
	}

	mustSet(t, c, "editDomain", "domain", "example.com")
	state, _ = c.State("editDomain", "domain")
	if state.Invalid || !state.Valid || state.Message != "" {
		t.Fatalf("expected valid state, got %+v", state)
	}
	if !c.IsValid() {
		t.Fatalf("expected form to be valid, errors: %+v", c.Errors())
	}
}

func TestValidationCompleteness(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "general", "domainType", "subdomain")
	mustSet(t, c, "editSubdomain", "weight", "heavy")

	var found bool
	for _, v := range c.ErrorsFor("editSubdomain") {
		if v.Field == model.Q("editSubdomain", "weight") && v.Code == validation.CodeMalformed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected malformed weight violation, got %+v", c.ErrorsFor("editSubdomain"))
	}
}

func TestErrorsScopedToActiveContexts(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "editDomain", "domain", "example.com")

	if got := c.ErrorsFor("editSubdomain"); got != nil {
		t.Fatalf("inactive context must report no errors, got %+v", got)
	}
	if _, ok := c.Result().Violation(model.Q("editSubdomain", "subdomain")); !ok {
		t.Fatalf("inactive contexts are still evaluated")
	}
	if !c.IsValid() {
		t.Fatalf("violations in inactive contexts must not block: %+v", c.Errors())
	}
}

func TestDiscriminatorWriteReselects(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "general", "domainType", "subdomain")
	if diff := cmp.Diff([]string{"general", "editSubdomain"}, c.ActiveContexts()); diff != "" {
		t.Fatalf("active contexts mismatch (-want +got):\n%s", diff)
	}
}

func TestContextSwitchPreservesValues(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "editDomain", "domain", "example.com")
	before, _ := c.State("editDomain", "domain")

	if err := c.SwitchMode("edit", "subdomain"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if c.IsActive("editDomain") {
		t.Fatalf("editDomain should be inactive")
	}
	if err := c.SwitchMode("edit", "custom"); err != nil {
		t.Fatalf("switch back: %v", err)
	}

	if v, _ := c.Value("editDomain", "domain"); v != "example.com" {
		t.Fatalf("value lost across switch: %v", v)
	}
	after, _ := c.State("editDomain", "domain")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("state changed across switch (-want +got):\n%s", diff)
	}
}

func TestDiscriminatorFallback(t *testing.T) {
	t.Parallel()

	c := newController(t)
	if err := c.SwitchMode("edit", "unknown-type"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	sel := c.Selection()
	if !sel.Fallback {
		t.Fatalf("expected fallback selection")
	}
	if diff := cmp.Diff([]string{"general", "editSubdomain"}, sel.Contexts); diff != "" {
		t.Fatalf("fallback contexts mismatch (-want +got):\n%s", diff)
	}
}

func TestResetForm(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "general", "domainType", "subdomain")
	mustSet(t, c, "editSubdomain", "subdomain", "api")
	mustSet(t, c, "editDomain", "domain", "example.com")

	if err := c.ResetForm("editSubdomain"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	once := c.SnapshotByContext()
	onceState, _ := c.State("editSubdomain", "subdomain")
	if err := c.ResetForm("editSubdomain"); err != nil {
		t.Fatalf("reset twice: %v", err)
	}
	if diff := cmp.Diff(once, c.SnapshotByContext()); diff != "" {
		t.Fatalf("reset is not idempotent (-want +got):\n%s", diff)
	}
	twiceState, _ := c.State("editSubdomain", "subdomain")
	if diff := cmp.Diff(onceState, twiceState); diff != "" {
		t.Fatalf("reset state not idempotent (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(store.FieldState{}, twiceState); diff != "" {
		t.Fatalf("reset must clear state (-want +got):\n%s", diff)
	}
	if v, _ := c.Value("editDomain", "domain"); v != "example.com" {
		t.Fatalf("untargeted context was reset: %v", v)
	}

	if err := c.ResetForm(); err != nil {
		t.Fatalf("reset all: %v", err)
	}
	if diff := cmp.Diff([]string{"general", "editDomain"}, c.ActiveContexts()); diff != "" {
		t.Fatalf("reset must reselect from the restored discriminator (-want +got):\n%s", diff)
	}
}

func TestSnapshot(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "editDomain", "domain", "example.com")
	mustSet(t, c, "editSubdomain", "subdomain", "api")

	want := map[string]any{
		"general.domainType": "custom",
		"editDomain.domain":  "example.com",
	}
	if diff := cmp.Diff(want, c.Snapshot()); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvisoryRulesDoNotBlock(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "editDomain", "domain", "example.com")
	err := c.AddRule(validation.Rule{
		Name:     "dns-propagation",
		Match:    validation.Field("editDomain", "domain"),
		Check:    func(validation.Input) string { return "DNS changes may take a while" },
		Advisory: true,
	})
	if err != nil {
		t.Fatalf("add rule: %v", err)
	}

	state, _ := c.State("editDomain", "domain")
	if !state.Invalid || state.Message != "DNS changes may take a while" {
		t.Fatalf("advisory message must surface on the field, got %+v", state)
	}
	if !c.IsValid() {
		t.Fatalf("advisory violations must not block submission")
	}
}

func TestExternalStateTriggersRecalculation(t *testing.T) {
	t.Parallel()

	spec := domainSpec()
	spec.Rules = []validation.Rule{{
		Name:  "taken",
		Match: validation.Field("editDomain", "domain"),
		Check: func(in validation.Input) string {
			for _, taken := range in.External.Strings("taken") {
				if taken == in.Value {
					return "domain is taken"
				}
			}
			return ""
		},
	}}
	c, err := form.New(spec)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	mustSet(t, c, "editDomain", "domain", "example.com")
	if !c.IsValid() {
		t.Fatalf("expected valid form")
	}

	if err := c.OnExternalStateChanged(validation.External{"taken": []string{"example.com"}}); err != nil {
		t.Fatalf("external: %v", err)
	}
	if c.IsValid() {
		t.Fatalf("expected external change to invalidate the form")
	}
}

func TestDeriverRunsBeforeRecalculation(t *testing.T) {
	t.Parallel()

	spec := domainSpec()
	spec.Rules = []validation.Rule{{
		Name:  "mirror",
		Match: validation.Field("editDomain", "domain"),
		Check: func(in validation.Input) string {
			if in.External["subdomain"] == in.Value {
				return "must differ from subdomain"
			}
			return ""
		},
	}}
	derive := func(src validation.Source) validation.External {
		return validation.External{"subdomain": src.Values("editSubdomain")["subdomain"]}
	}
	c, err := form.New(spec, form.WithDeriver(derive))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	mustSet(t, c, "editDomain", "domain", "same.io")
	mustSet(t, c, "editSubdomain", "subdomain", "same.io")

	state, _ := c.State("editDomain", "domain")
	if !state.Invalid {
		t.Fatalf("derived state must be refreshed on every mutation, got %+v", state)
	}
}

func TestObserversAndReentrancy(t *testing.T) {
	t.Parallel()

	c := newController(t)

	var (
		events    []form.EventKind
		reentrant error
	)
	unsubscribe := c.Subscribe(func(e form.Event) {
		events = append(events, e.Kind)
		if e.Kind == form.EventValueChanged {
			_, reentrant = c.SetValue("editDomain", "domain", "loop.io")
		}
	})

	mustSet(t, c, "editDomain", "domain", "example.com")
	if err := c.SwitchMode("edit", "subdomain"); err != nil {
		t.Fatalf("switch: %v", err)
	}

	if !errors.Is(reentrant, form.ErrReentrantMutation) {
		t.Fatalf("expected reentrant mutation error, got %v", reentrant)
	}
	if v, _ := c.Value("editDomain", "domain"); v != "example.com" {
		t.Fatalf("reentrant write must be rejected, got %v", v)
	}
	if diff := cmp.Diff([]form.EventKind{form.EventValueChanged, form.EventContextSwitched}, events); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}

	unsubscribe()
	mustSet(t, c, "editDomain", "domain", "other.io")
	if len(events) != 2 {
		t.Fatalf("unsubscribed observer still called")
	}
}

func TestUpdateOptions(t *testing.T) {
	t.Parallel()

	c := newController(t)
	mustSet(t, c, "general", "domainType", "custom")

	if err := c.UpdateOptions("general", "domainType", []model.Option{{Value: "subdomain"}}); err != nil {
		t.Fatalf("update options: %v", err)
	}
	state, _ := c.State("general", "domainType")
	if !state.Invalid {
		t.Fatalf("value outside the refreshed options must be invalid, got %+v", state)
	}
}
