package model_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/model"
)

func TestParseQualifiedName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw     string
		want    model.QualifiedName
		wantErr bool
	}{
		{raw: "editDomain.domain", want: model.Q("editDomain", "domain")},
		{raw: "osd.db.device", want: model.Q("osd", "db.device")},
		{raw: " general.name ", want: model.Q("general", "name")},
		{raw: "nodot", wantErr: true},
		{raw: ".field", wantErr: true},
		{raw: "ctx.", wantErr: true},
	}

	for _, tc := range cases {
		got, err := model.ParseQualifiedName(tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %#v want %#v", tc.raw, got, tc.want)
		}
	}
}

func TestQualifiedNameJSONKeys(t *testing.T) {
	t.Parallel()

	in := map[model.QualifiedName]string{
		model.Q("osdA", "device"): "sda",
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"osdA.device":"sda"}` {
		t.Fatalf("unexpected payload %s", data)
	}

	var out map[model.QualifiedName]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsUnwrapToSentinels(t *testing.T) {
	t.Parallel()

	q := model.Q("general", "name")
	if !errors.Is(&model.DuplicateFieldError{Field: q}, model.ErrDuplicateField) {
		t.Fatalf("duplicate error should unwrap to sentinel")
	}
	if !errors.Is(&model.UnknownFieldError{Field: q}, model.ErrUnknownField) {
		t.Fatalf("unknown error should unwrap to sentinel")
	}
	if !errors.Is(&model.UnknownFieldWarning{Field: q}, model.ErrInactiveField) {
		t.Fatalf("warning should unwrap to sentinel")
	}
}
