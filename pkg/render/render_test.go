package render_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/render"
)

func TestMapErrorPayload(t *testing.T) {
	t.Parallel()

	fields := []model.QualifiedName{
		model.Q("general", "name"),
		model.Q("general", "storageType"),
		model.Q("importNew", "name"),
		model.Q("importNew", "capacityGB"),
		model.Q("provider", "tls.enabled"),
	}
	payload := map[string][]string{
		"/body/capacityGB":        {"Capacity too small", " Capacity too small "},
		"data.importNew.name":     {"Name taken"},
		"$.body.tls.enabled":      {"TLS required"},
		"#/storageType/0":         {"Unsupported type"},
		"name":                    {"Ambiguous name"},
		"non_field_errors":        {"Form level error"},
		"request/body/unknown":    {"Unknown field"},
		"general.storageType/sub": {"Nested under a scalar"},
		"":                        {"  "},
	}

	mapped := render.MapErrorPayload(fields, payload)

	wantFields := map[model.QualifiedName][]string{
		model.Q("importNew", "capacityGB"): {"Capacity too small"},
		model.Q("importNew", "name"):       {"Name taken"},
		model.Q("provider", "tls.enabled"): {"TLS required"},
		model.Q("general", "storageType"):  {"Unsupported type", "Nested under a scalar"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Ambiguous name", "Form level error", "Unknown field"}
	if diff := cmp.Diff(wantForm, mapped.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
	if got := mapped.For(model.Q("importNew", "name")); len(got) != 1 {
		t.Fatalf("unexpected For result %v", got)
	}
}

func TestMapErrorPayloadEmpty(t *testing.T) {
	t.Parallel()

	if mapped := render.MapErrorPayload(nil, nil); !mapped.Empty() {
		t.Fatalf("expected empty mapping, got %+v", mapped)
	}
}

func TestMergeFormErrors(t *testing.T) {
	t.Parallel()

	merged := render.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	if diff := cmp.Diff([]string{"First", "Second", "third"}, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadNestsByContext(t *testing.T) {
	t.Parallel()

	snapshot := map[string]any{
		"general.storageType":  "ceph",
		"addCeph.pool":         "rbd",
		"provider.tls.enabled": true,
	}
	got, err := render.Payload(snapshot, render.PayloadOptions{
		Hidden: []render.HiddenField{render.VersionField("version", 3), render.Hidden(" ", "skip")},
	})
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := map[string]any{
		"general":  map[string]any{"storageType": "ceph"},
		"addCeph":  map[string]any{"pool": "rbd"},
		"provider": map[string]any{"tls": map[string]any{"enabled": true}},
		"version":  "3",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadStripContextAndSanitize(t *testing.T) {
	t.Parallel()

	snapshot := map[string]any{
		"general.name":   "<b>Shelf</b> R&D",
		"addNFS.export":  "/srv/<script>alert(1)</script>nfs",
		"addNFS.version": 4,
	}
	got, err := render.Payload(snapshot, render.PayloadOptions{
		StripContext: true,
		Sanitize:     true,
		Hidden:       []render.HiddenField{render.CSRFToken("_csrf", "tok")},
	})
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	want := map[string]any{
		"name":    "Shelf R&D",
		"export":  "/srv/nfs",
		"version": 4,
		"_csrf":   "tok",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestPayloadConflicts(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]any{
		"same field in two contexts": {"general.name": "a", "importNew.name": "b"},
		"scalar and object":          {"general.tls": "x", "importNew.tls.enabled": true},
	}
	for name, snapshot := range cases {
		snapshot := snapshot
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := render.Payload(snapshot, render.PayloadOptions{StripContext: true})
			if !errors.Is(err, render.ErrPayloadConflict) {
				t.Fatalf("expected ErrPayloadConflict, got %v", err)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  plain  ":                    "plain",
		"<i>ceph</i>-pool":             "ceph-pool",
		"<img src=x onerror=alert(1)>": "",
		"a < b":                        "a < b",
	}
	for in, want := range cases {
		if got := render.SanitizeText(in); got != want {
			t.Errorf("SanitizeText(%q) = %q, want %q", in, got, want)
		}
	}
}
