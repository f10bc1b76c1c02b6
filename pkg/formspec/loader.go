// Package formspec loads declarative form definitions from JSON or YAML
// documents and turns them into controller specs.
//
// A document maps form ids to definitions:
//
//	forms:
//	  storageAdd:
//	    mode: add
//	    discriminator: general.storageType
//	    contexts: [...]
//	    selector:
//	      modes:
//	        add:
//	          cases: {ceph: [general, addCeph]}
//	          default: [general]
//	    rules:
//	      - kind: lessThan
//	        context: addCeph
//	        lower: minFreeGB
//	        upper: maxFreeGB
package formspec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formctx/pkg/model"
)

// ErrUnknownForm is returned when a form id is not present in the store.
var ErrUnknownForm = errors.New("formspec: unknown form")

// LoadFS walks fsys and parses every JSON/YAML form document. A nil fsys
// yields an empty store.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Definition)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSpecFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("formspec: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for rawID, def := range doc.Forms {
			id := strings.TrimSpace(rawID)
			if id == "" {
				return fmt.Errorf("formspec: file %s defines an empty form id", path)
			}
			if _, exists := store.forms[id]; exists {
				return fmt.Errorf("formspec: duplicate form %q (file %s)", id, path)
			}
			def.ID = id
			def.Source = path
			if err := checkDefinition(def); err != nil {
				return err
			}
			store.forms[id] = def
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Definition returns the form registered under id.
func (s *Store) Definition(id string) (Definition, bool) {
	if s == nil {
		return Definition{}, false
	}
	def, ok := s.forms[id]
	return def, ok
}

// IDs lists the form ids, sorted.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.forms))
	for id := range s.forms {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether the store holds any forms.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

type documentFile struct {
	Forms map[string]Definition `json:"forms" yaml:"forms"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formspec: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formspec: parse %s: %w", source, err)
	}
	return doc, nil
}

func checkDefinition(def Definition) error {
	where := fmt.Sprintf("form %q (file %s)", def.ID, def.Source)
	if len(def.Contexts) == 0 {
		return fmt.Errorf("formspec: %s declares no contexts", where)
	}

	declared := make(map[string]map[string]struct{}, len(def.Contexts))
	for _, ctx := range def.Contexts {
		name := strings.TrimSpace(ctx.Name)
		if name == "" {
			return fmt.Errorf("formspec: %s has a context without a name", where)
		}
		if _, dup := declared[name]; dup {
			return fmt.Errorf("formspec: %s declares context %q twice", where, name)
		}
		fields := make(map[string]struct{}, len(ctx.Fields))
		for _, field := range ctx.Fields {
			if !field.Type.Valid() {
				return fmt.Errorf("formspec: %s field %s has unknown type %q", where, model.Q(name, field.Name), field.Type)
			}
			fields[field.Name] = struct{}{}
		}
		declared[name] = fields
	}

	if q := def.Discriminator; q != nil {
		if _, ok := declared[q.Context][q.Field]; !ok {
			return fmt.Errorf("formspec: %s discriminator %s is not declared", where, q)
		}
	}

	if def.Selector != nil {
		check := func(contexts []string, branch string) error {
			for _, name := range contexts {
				if _, ok := declared[name]; !ok {
					return fmt.Errorf("formspec: %s selector %s references unknown context %q", where, branch, name)
				}
			}
			return nil
		}
		if err := check(def.Selector.Default, "default"); err != nil {
			return err
		}
		for mode, branches := range def.Selector.Modes {
			if err := check(branches.Default, mode+".default"); err != nil {
				return err
			}
			for value, contexts := range branches.Cases {
				if err := check(contexts, mode+"."+value); err != nil {
					return err
				}
			}
		}
	}

	for i, rule := range def.Rules {
		if err := checkRule(rule); err != nil {
			return fmt.Errorf("formspec: %s rule %d: %w", where, i, err)
		}
	}
	return nil
}

func checkRule(rule RuleConfig) error {
	missing := func(attrs ...string) error {
		return fmt.Errorf("%s rule requires %s", rule.Kind, strings.Join(attrs, ", "))
	}
	switch rule.Kind {
	case RuleUnique, RuleDenylist:
		if rule.Key == "" || rule.Field == "" {
			return missing("key", "field")
		}
	case RuleLessThan:
		if rule.Context == "" || rule.Lower == "" || rule.Upper == "" {
			return missing("context", "lower", "upper")
		}
	default:
		return fmt.Errorf("unknown rule kind %q", rule.Kind)
	}
	return nil
}

func isSpecFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
