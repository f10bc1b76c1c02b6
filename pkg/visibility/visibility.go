// Package visibility decides which contexts of a form are active for a given
// mode (add, edit, show...) and discriminator value (storage type, import
// mode...). Selection is a pure function of its inputs and never fails: an
// unmapped discriminator value falls back to a declared default branch.
package visibility

import (
	"fmt"
	"sort"
	"strings"
)

// Selection is the outcome of a Select call.
type Selection struct {
	// Contexts is the ordered ActiveContextSet.
	Contexts []string
	// Branch names the matched case, or "" when a default was used.
	Branch string
	// Fallback is true when the discriminator matched no case and a default
	// branch was used instead.
	Fallback bool
}

// Selector derives the active contexts from mode and discriminator value.
type Selector interface {
	Select(mode string, discriminator any) Selection
}

// SelectorFunc adapts a function into a Selector.
type SelectorFunc func(mode string, discriminator any) Selection

// Select calls the underlying function.
func (fn SelectorFunc) Select(mode string, discriminator any) Selection {
	return fn(mode, discriminator)
}

// Static always selects the same contexts.
func Static(contexts ...string) Selector {
	return SelectorFunc(func(string, any) Selection {
		return Selection{Contexts: append([]string(nil), contexts...)}
	})
}

// Branches maps discriminator values to context lists within one mode.
type Branches struct {
	Cases   map[string][]string `json:"cases,omitempty" yaml:"cases,omitempty"`
	Default []string            `json:"default,omitempty" yaml:"default,omitempty"`
}

// Table is a declarative Selector keyed by mode, then discriminator value.
// Discriminator values are matched on their string form, so "ceph" and a
// typed enum rendering as "ceph" select the same branch.
type Table struct {
	Modes   map[string]Branches `json:"modes,omitempty" yaml:"modes,omitempty"`
	Default []string            `json:"default,omitempty" yaml:"default,omitempty"`
}

// Select implements Selector. Lookup order: mode case, mode default, table
// default.
func (t Table) Select(mode string, discriminator any) Selection {
	key := discriminatorKey(discriminator)
	if branches, ok := t.Modes[mode]; ok {
		if contexts, ok := branches.Cases[key]; ok {
			return Selection{Contexts: append([]string(nil), contexts...), Branch: key}
		}
		if len(branches.Default) > 0 {
			// A mode without cases has a single branch; using it is not a fallback.
			return Selection{Contexts: append([]string(nil), branches.Default...), Fallback: len(branches.Cases) > 0}
		}
	}
	return Selection{Contexts: append([]string(nil), t.Default...), Fallback: true}
}

// ModeNames lists the modes declared in the table, sorted.
func (t Table) ModeNames() []string {
	out := make([]string, 0, len(t.Modes))
	for mode := range t.Modes {
		out = append(out, mode)
	}
	sort.Strings(out)
	return out
}

func discriminatorKey(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
