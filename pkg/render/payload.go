package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-formctx/pkg/model"
)

// ErrPayloadConflict is returned when two snapshot keys expand onto the same
// payload path, for example "general.name" and "importNew.name" with the
// context prefix stripped.
var ErrPayloadConflict = errors.New("render: conflicting payload keys")

// PayloadOptions controls how a snapshot becomes a request payload.
type PayloadOptions struct {
	// StripContext drops the leading context segment so active contexts merge
	// into a single object.
	StripContext bool
	// Hidden fields are set at the top level after the snapshot; they win
	// over snapshot values with the same name.
	Hidden []HiddenField
	// Sanitize strips markup from string values.
	Sanitize bool
}

// Payload expands the dotted keys of snapshot into nested maps.
// {"addCeph.pool": "rbd"} becomes {"addCeph": {"pool": "rbd"}}, or
// {"pool": "rbd"} when StripContext is set. Field names containing dots nest
// further.
func Payload(snapshot map[string]any, opts PayloadOptions) (map[string]any, error) {
	out := make(map[string]any, len(snapshot))

	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := key
		if opts.StripContext {
			q, err := model.ParseQualifiedName(key)
			if err != nil {
				return nil, fmt.Errorf("render: payload key: %w", err)
			}
			path = q.Field
		}
		value := snapshot[key]
		if opts.Sanitize {
			value = sanitizeValue(value)
		}
		if err := setPath(out, strings.Split(path, "."), value); err != nil {
			return nil, fmt.Errorf("%w: %s", err, key)
		}
	}

	for _, field := range opts.Hidden {
		if field.Name == "" {
			continue
		}
		out[field.Name] = field.Value
	}
	return out, nil
}

func setPath(target map[string]any, segments []string, value any) error {
	head := segments[0]
	if len(segments) == 1 {
		if _, exists := target[head]; exists {
			return ErrPayloadConflict
		}
		target[head] = value
		return nil
	}

	next, exists := target[head]
	if !exists {
		child := make(map[string]any)
		target[head] = child
		return setPath(child, segments[1:], value)
	}
	child, ok := next.(map[string]any)
	if !ok {
		return ErrPayloadConflict
	}
	return setPath(child, segments[1:], value)
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case string:
		return SanitizeText(typed)
	case []string:
		out := make([]string, len(typed))
		for i, s := range typed {
			out[i] = SanitizeText(s)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			out[i] = sanitizeValue(v)
		}
		return out
	default:
		return value
	}
}

// HiddenField is a value submitted alongside the form that users never edit,
// such as a CSRF token or an optimistic-locking version.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken returns a hidden field carrying token under name.
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// VersionField returns a hidden field used for version-aware submissions.
func VersionField(name string, version any) HiddenField {
	return Hidden(name, version)
}
