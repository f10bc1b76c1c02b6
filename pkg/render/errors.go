package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formctx/pkg/model"
)

// ErrorMapping splits a server error payload into field messages keyed by
// qualified name and form-level messages.
type ErrorMapping struct {
	Fields map[model.QualifiedName][]string
	Form   []string
}

// For returns the messages mapped onto q.
func (m ErrorMapping) For(q model.QualifiedName) []string {
	return m.Fields[q]
}

// Empty reports whether the mapping carries no message at all.
func (m ErrorMapping) Empty() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// dropping duplicates while keeping order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps a payload keyed by dotted or JSON pointer paths onto
// the supplied fields. A path matches either the qualified `context.field`
// form or the bare field name when exactly one context declares it. Request
// wrappers ("body", "data"...) and array indexes are ignored. Paths that match
// no field become form-level messages so nothing is lost.
func MapErrorPayload(fields []model.QualifiedName, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[model.QualifiedName][]string)}
	if len(payload) == 0 {
		mapping.Fields = nil
		return mapping
	}

	index := pathIndex(fields)

	// Sorted keys keep form-level message order deterministic.
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, rawPath := range keys {
		messages := normalizeMessages(payload[rawPath])
		if len(messages) == 0 {
			continue
		}
		q, ok := resolvePath(rawPath, index)
		if !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[q] = normalizeMessages(append(mapping.Fields[q], messages...))
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func pathIndex(fields []model.QualifiedName) map[string]model.QualifiedName {
	index := make(map[string]model.QualifiedName, len(fields)*2)
	owners := make(map[string][]model.QualifiedName, len(fields))
	for _, q := range fields {
		if q.Context == "" || q.Field == "" {
			continue
		}
		index[q.String()] = q
		owners[q.Field] = append(owners[q.Field], q)
	}
	for name, qs := range owners {
		if len(qs) != 1 {
			continue
		}
		if _, taken := index[name]; !taken {
			index[name] = qs[0]
		}
	}
	return index
}

func resolvePath(raw string, index map[string]model.QualifiedName) (model.QualifiedName, bool) {
	if isFormLevelKey(raw) {
		return model.QualifiedName{}, false
	}
	segments := parsePathSegments(raw)
	if len(segments) == 0 {
		return model.QualifiedName{}, false
	}

	var (
		best      model.QualifiedName
		bestDepth int
	)
	for _, variant := range segmentVariants(segments) {
		for end := len(variant); end > bestDepth; end-- {
			if q, ok := index[strings.Join(variant[:end], ".")]; ok {
				best, bestDepth = q, end
				break
			}
		}
	}
	return best, bestDepth > 0
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parsePathSegments accepts "#/body/name", "$.data.items[0].name" and plain
// dotted paths. JSON pointer escapes are decoded.
func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$/.")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func segmentVariants(segments []string) [][]string {
	var variants [][]string
	seen := make(map[string]struct{}, 4)
	add := func(candidate []string) {
		if len(candidate) == 0 {
			return
		}
		key := strings.Join(candidate, ".")
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		variants = append(variants, append([]string(nil), candidate...))
	}

	unwrapped := dropWrapperSegments(segments)
	add(segments)
	add(unwrapped)
	add(stripNumericSegments(segments))
	add(stripNumericSegments(unwrapped))
	return variants
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
