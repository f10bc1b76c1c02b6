package validation_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/store"
	"github.com/goliatone/go-formctx/pkg/validation"
)

func mustStore(t *testing.T, contexts ...model.Context) *store.Store {
	t.Helper()
	s, err := store.New(contexts...)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func TestIntrinsicChecks(t *testing.T) {
	t.Parallel()

	field := func(f model.Field) model.Context {
		f.Name = "value"
		return model.Context{Name: "ctx", Fields: []model.Field{f}}
	}

	cases := []struct {
		name     string
		field    model.Field
		value    any
		wantCode string
		wantMsg  string
	}{
		{name: "required empty", field: model.Field{Type: model.FieldTypeText, Required: true}, value: "  ", wantCode: validation.CodeRequired, wantMsg: "field is required"},
		{name: "optional empty skips rules", field: model.Field{Type: model.FieldTypeNumber, Validations: []model.ValidationRule{{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "5"}}}}, value: nil},
		{name: "malformed number", field: model.Field{Type: model.FieldTypeNumber}, value: "12abc", wantCode: validation.CodeMalformed, wantMsg: "must be a number"},
		{name: "number from string", field: model.Field{Type: model.FieldTypeNumber}, value: " 12.5 "},
		{name: "min", field: model.Field{Type: model.FieldTypeNumber, Validations: []model.ValidationRule{{Kind: model.ValidationRuleMin, Params: map[string]string{"value": "1"}}}}, value: 0, wantCode: validation.CodeMin, wantMsg: "must be at least 1"},
		{name: "exclusive max", field: model.Field{Type: model.FieldTypeNumber, Validations: []model.ValidationRule{{Kind: model.ValidationRuleMax, Params: map[string]string{"value": "10", "exclusive": "true"}}}}, value: 10, wantCode: validation.CodeMax, wantMsg: "must be less than 10"},
		{name: "max length", field: model.Field{Type: model.FieldTypeText, Validations: []model.ValidationRule{{Kind: model.ValidationRuleMaxLength, Params: map[string]string{"value": "3"}}}}, value: "abcd", wantCode: validation.CodeMaxLength, wantMsg: "must be at most 3 characters"},
		{name: "pattern custom message", field: model.Field{Type: model.FieldTypeText, Validations: []model.ValidationRule{{Kind: model.ValidationRulePattern, Params: map[string]string{"pattern": "^[a-z]+$", "message": "lowercase letters only"}}}}, value: "ABC", wantCode: validation.CodePattern, wantMsg: "lowercase letters only"},
		{name: "option membership", field: model.Field{Type: model.FieldTypeDropdown, Options: []model.Option{{Value: "ceph"}, {Value: "nfs"}}}, value: "iscsi", wantCode: validation.CodeOption, wantMsg: "must be one of the available options"},
		{name: "option match", field: model.Field{Type: model.FieldTypeRadioGroup, Options: []model.Option{{Value: "ceph"}}}, value: "ceph"},
		{name: "option alias", field: model.Field{Type: model.FieldTypeDropdown, Options: []model.Option{{Value: "sda", Aliases: []string{"d1", "/dev/sda"}}}}, value: "/dev/sda"},
		{name: "checkbox malformed", field: model.Field{Type: model.FieldTypeCheckbox}, value: "maybe", wantCode: validation.CodeMalformed, wantMsg: "must be true or false"},
		{name: "required checkbox unchecked", field: model.Field{Type: model.FieldTypeCheckbox, Required: true}, value: false, wantCode: validation.CodeRequired, wantMsg: "field is required"},
		{name: "static ignored", field: model.Field{Type: model.FieldTypeStatic, Required: true}, value: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := mustStore(t, field(tc.field))
			q := model.Q("ctx", "value")
			if err := s.SetValue(q, tc.value); err != nil {
				t.Fatalf("set: %v", err)
			}

			res := validation.New().Evaluate(s)
			v, ok := res.Violation(q)
			if tc.wantCode == "" {
				if ok {
					t.Fatalf("expected no violation, got %+v", v)
				}
				return
			}
			if !ok {
				t.Fatalf("expected %s violation", tc.wantCode)
			}
			if v.Code != tc.wantCode || v.Message != tc.wantMsg {
				t.Fatalf("got %s/%q want %s/%q", v.Code, v.Message, tc.wantCode, tc.wantMsg)
			}
		})
	}
}

func TestCoerceNumberRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []any{"", "1e", "NaN", "Inf", true, []any{1}} {
		_, err := validation.CoerceNumber(raw)
		var malformed *validation.MalformedValueError
		if !errors.As(err, &malformed) {
			t.Fatalf("%v: expected MalformedValueError, got %v", raw, err)
		}
	}

	n, err := validation.CoerceNumber(json.Number("42"))
	if err != nil || n != 42 {
		t.Fatalf("json.Number: got %v, %v", n, err)
	}
}

func TestRulePrecedenceAndFirstFailure(t *testing.T) {
	t.Parallel()

	s := mustStore(t, model.Context{Name: "ctx", Fields: []model.Field{
		{Name: "name", Type: model.FieldTypeText},
	}})
	_ = s.SetValue(model.Q("ctx", "name"), "x")

	fail := func(msg string) validation.Check {
		return func(validation.Input) string { return msg }
	}

	engine := validation.New()
	for _, rule := range []validation.Rule{
		{Name: "late", Match: validation.FieldInAnyContext("name"), Check: fail("late"), Precedence: 10},
		{Name: "first", Match: validation.FieldInAnyContext("name"), Check: fail("first")},
		{Name: "second", Match: validation.FieldInAnyContext("name"), Check: fail("second")},
	} {
		if err := engine.AddRule(rule); err != nil {
			t.Fatalf("add rule: %v", err)
		}
	}

	res := engine.Evaluate(s)
	v, _ := res.Violation(model.Q("ctx", "name"))
	if v.Rule != "first" || v.Message != "first" || v.Code != validation.CodeRule {
		t.Fatalf("expected first rule to win, got %+v", v)
	}
}

func TestBlockingRuleOverridesEarlierAdvisory(t *testing.T) {
	t.Parallel()

	newStore := func(device string) *store.Store {
		s := mustStore(t, model.Context{Name: "osdA", Fields: []model.Field{
			{Name: "device", Type: model.FieldTypeText},
		}})
		_ = s.SetValue(model.Q("osdA", "device"), device)
		return s
	}
	engine := validation.New(
		validation.Rule{
			Name:     "reuse",
			Match:    validation.FieldInAnyContext("device"),
			Check:    func(validation.Input) string { return "used twice" },
			Advisory: true,
		},
		validation.Rule{
			Name:       "late-advisory",
			Match:      validation.FieldInAnyContext("device"),
			Check:      func(validation.Input) string { return "late" },
			Advisory:   true,
			Precedence: 5,
		},
		validation.Rule{
			Name:  "system-disk",
			Match: validation.FieldInAnyContext("device"),
			Check: func(in validation.Input) string {
				if validation.ValueString(in.Value) == "sda" {
					return "system disk"
				}
				return ""
			},
			Precedence: 10,
		},
	)
	q := model.Q("osdA", "device")

	res := engine.Evaluate(newStore("sda"))
	v, _ := res.Violation(q)
	if v.Rule != "system-disk" || v.Advisory {
		t.Fatalf("expected blocking system-disk violation, got %+v", v)
	}
	if res.Valid([]string{"osdA"}) {
		t.Fatalf("blocking violation must invalidate the form")
	}

	res = engine.Evaluate(newStore("sdb"))
	v, _ = res.Violation(q)
	if v.Rule != "reuse" || !v.Advisory || v.Message != "used twice" {
		t.Fatalf("expected first advisory violation, got %+v", v)
	}
	if !res.Valid([]string{"osdA"}) {
		t.Fatalf("advisory violations must not invalidate the form")
	}
}

func TestIntrinsicBeatsRules(t *testing.T) {
	t.Parallel()

	s := mustStore(t, model.Context{Name: "ctx", Fields: []model.Field{
		{Name: "name", Type: model.FieldTypeText, Required: true},
	}})
	engine := validation.New(validation.Rule{
		Name:  "custom",
		Match: validation.InContext("ctx"),
		Check: func(validation.Input) string { return "custom" },
	})

	v, _ := engine.Evaluate(s).Violation(model.Q("ctx", "name"))
	if v.Code != validation.CodeRequired {
		t.Fatalf("expected required violation first, got %+v", v)
	}
}

func TestAddRuleValidates(t *testing.T) {
	t.Parallel()

	engine := validation.New()
	if err := engine.AddRule(validation.Rule{Name: "x"}); err == nil {
		t.Fatalf("expected error for rule without matcher")
	}
	if err := engine.AddRule(validation.Rule{Match: validation.InContext("a"), Check: func(validation.Input) string { return "" }}); err == nil {
		t.Fatalf("expected error for unnamed rule")
	}
}

func TestLessThan(t *testing.T) {
	t.Parallel()

	s := mustStore(t, model.Context{Name: "addLVM", Fields: []model.Field{
		{Name: "minFreeGB", Type: model.FieldTypeNumber},
		{Name: "maxFreeGB", Type: model.FieldTypeNumber},
	}})
	engine := validation.New(validation.LessThan("addLVM", "minFreeGB", "maxFreeGB", ""))

	_ = s.SetValue(model.Q("addLVM", "minFreeGB"), 20)
	_ = s.SetValue(model.Q("addLVM", "maxFreeGB"), "10")

	v, ok := engine.Evaluate(s).Violation(model.Q("addLVM", "maxFreeGB"))
	if !ok || v.Message != "must be greater than minFreeGB" {
		t.Fatalf("expected cross-field violation, got %+v (ok=%v)", v, ok)
	}

	_ = s.SetValue(model.Q("addLVM", "maxFreeGB"), 30)
	if _, ok := engine.Evaluate(s).Violation(model.Q("addLVM", "maxFreeGB")); ok {
		t.Fatalf("expected violation to clear")
	}
}

func TestResultScoping(t *testing.T) {
	t.Parallel()

	s := mustStore(t,
		model.Context{Name: "a", Fields: []model.Field{{Name: "x", Required: true}, {Name: "y", Required: true}}},
		model.Context{Name: "ab", Fields: []model.Field{{Name: "x", Required: true}}},
	)
	engine := validation.New(validation.Rule{
		Name:     "advisory",
		Match:    validation.Field("ab", "x"),
		Check:    func(validation.Input) string { return "heads up" },
		Advisory: true,
	})
	_ = s.SetValue(model.Q("ab", "x"), "set")

	res := engine.Evaluate(s)
	if res.Len() != 3 {
		t.Fatalf("expected 3 violations across contexts, got %d", res.Len())
	}

	var names []string
	for _, v := range res.ForContext("a") {
		names = append(names, v.Field.String())
	}
	if diff := cmp.Diff([]string{"a.x", "a.y"}, names); diff != "" {
		t.Fatalf("declaration order mismatch (-want +got):\n%s", diff)
	}

	if got := res.Scoped([]string{"ab"}); len(got) != 1 || got[0].Field != model.Q("ab", "x") {
		t.Fatalf("prefix-like context names must not leak: %+v", got)
	}
	if !res.Valid([]string{"ab"}) {
		t.Fatalf("advisory violations must not block")
	}
	if res.Valid([]string{"a"}) {
		t.Fatalf("required violations must block")
	}
}

func TestExternalAccessors(t *testing.T) {
	t.Parallel()

	ext := validation.External{
		"usage":    map[string]any{"d1": 2, "d2": "1", "bad": "x"},
		"reserved": []any{"foo", 1},
	}
	if diff := cmp.Diff(map[string]int{"d1": 2, "d2": 1}, ext.Counts("usage")); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"foo", "1"}, ext.Strings("reserved")); diff != "" {
		t.Fatalf("strings mismatch (-want +got):\n%s", diff)
	}

	engine := validation.New()
	engine.SetExternal(ext)
	ext["usage"] = nil
	if engine.External()["usage"] == nil {
		t.Fatalf("engine must keep its own copy of external state")
	}
}
