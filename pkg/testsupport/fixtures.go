// Package testsupport holds helpers shared by the controller, form and CLI
// tests. Helpers fail the test on error to keep table tests concise.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formctx/pkg/form"
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
)

// Setter is the write surface shared by *form.Controller and the concrete
// forms embedding it.
type Setter interface {
	SetValue(context, name string, value any) (*model.UnknownFieldWarning, error)
}

// MustController builds a controller and fails the test on construction
// errors.
func MustController(t *testing.T, spec form.Spec, opts ...form.Option) *form.Controller {
	t.Helper()

	c, err := form.New(spec, opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

// MustSet writes a value and fails the test on error. Writes to inactive
// contexts are allowed; their warning is discarded.
func MustSet(t *testing.T, s Setter, context, name string, value any) {
	t.Helper()

	if _, err := s.SetValue(context, name, value); err != nil {
		t.Fatalf("set %s: %v", model.Q(context, name), err)
	}
}

// Messages indexes violations by their dotted field name.
func Messages(violations []validation.Violation) map[string]string {
	out := make(map[string]string, len(violations))
	for _, v := range violations {
		out[v.Field.String()] = v.Message
	}
	return out
}

// DiffViolations compares the expected "context.field" -> message map with
// violations and returns a cmp diff, or "" when they match.
func DiffViolations(want map[string]string, violations []validation.Violation) string {
	if want == nil {
		want = map[string]string{}
	}
	return cmp.Diff(want, Messages(violations))
}

// LoadValues reads a JSON fixture of dotted field values.
func LoadValues(path string) (map[string]any, error) {
	if path == "" {
		return nil, errors.New("testsupport: values path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read values: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("testsupport: unmarshal values: %w", err)
	}
	return out, nil
}

// MustApplyValues loads a values fixture and writes every entry into s.
func MustApplyValues(t *testing.T, s Setter, path string) {
	t.Helper()

	values, err := LoadValues(path)
	if err != nil {
		t.Fatalf("load values: %v", err)
	}
	for key, value := range values {
		q, err := model.ParseQualifiedName(key)
		if err != nil {
			t.Fatalf("values %s: %v", path, err)
		}
		MustSet(t, s, q.Context, q.Field, value)
	}
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, append(payload, '\n'), 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGolden reads a JSON golden file into out.
func MustReadGolden(t *testing.T, path string, out any) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal golden: %v", err)
	}
}

// Normalize returns v as it reads back from JSON, so snapshots holding ints
// compare equal to golden files decoded into float64.
func Normalize(t *testing.T, v any) any {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
