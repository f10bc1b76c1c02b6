package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// MalformedValueError reports a value that cannot be coerced to the type its
// field declares. It is surfaced to hosts as a field-scoped Violation, never
// returned from the engine.
type MalformedValueError struct {
	Value any
	Want  string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("validation: cannot use %v as %s", e.Value, e.Want)
}

// IsEmpty reports whether value counts as "not provided": nil, blank strings
// and empty collections.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case []string:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.Len() == 0
	}
	return false
}

// CoerceNumber converts user input into a float64. Strings are parsed
// strictly; malformed input is rejected rather than defaulted to zero.
func CoerceNumber(value any) (float64, error) {
	switch typed := value.(type) {
	case float64:
		return checkFinite(typed, value)
	case float32:
		return checkFinite(float64(typed), value)
	case int:
		return float64(typed), nil
	case int8:
		return float64(typed), nil
	case int16:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case uint:
		return float64(typed), nil
	case uint8:
		return float64(typed), nil
	case uint16:
		return float64(typed), nil
	case uint32:
		return float64(typed), nil
	case uint64:
		return float64(typed), nil
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, &MalformedValueError{Value: value, Want: "number"}
		}
		return checkFinite(parsed, value)
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return 0, &MalformedValueError{Value: value, Want: "number"}
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, &MalformedValueError{Value: value, Want: "number"}
		}
		return checkFinite(parsed, value)
	default:
		return 0, &MalformedValueError{Value: value, Want: "number"}
	}
}

// CoerceBool converts checkbox input into a bool.
func CoerceBool(value any) (bool, error) {
	switch typed := value.(type) {
	case bool:
		return typed, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true", "on", "yes", "1":
			return true, nil
		case "false", "off", "no", "0":
			return false, nil
		}
	}
	return false, &MalformedValueError{Value: value, Want: "boolean"}
}

// ValueString renders a value for string comparisons (patterns, option
// membership, denylists).
func ValueString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

func checkFinite(n float64, raw any) (float64, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &MalformedValueError{Value: raw, Want: "number"}
	}
	return n, nil
}
