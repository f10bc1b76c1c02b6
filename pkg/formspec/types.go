package formspec

import (
	"github.com/goliatone/go-formctx/pkg/model"
	"github.com/goliatone/go-formctx/pkg/validation"
	"github.com/goliatone/go-formctx/pkg/visibility"
)

// Rule kinds understood by the loader.
const (
	RuleUnique   = "unique"
	RuleDenylist = "denylist"
	RuleLessThan = "lessThan"
)

// Store holds every form definition discovered by LoadFS keyed by id.
type Store struct {
	forms map[string]Definition
}

// Definition is a declarative form: its contexts, how they are selected and
// which host rules apply.
type Definition struct {
	ID     string `json:"-" yaml:"-"`
	Source string `json:"-" yaml:"-"`

	Title              string               `json:"title,omitempty" yaml:"title,omitempty"`
	Mode               string               `json:"mode,omitempty" yaml:"mode,omitempty"`
	Discriminator      *model.QualifiedName `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
	DiscriminatorValue any                  `json:"discriminatorValue,omitempty" yaml:"discriminatorValue,omitempty"`
	Contexts           []model.Context      `json:"contexts" yaml:"contexts"`
	Selector           *visibility.Table    `json:"selector,omitempty" yaml:"selector,omitempty"`
	Rules              []RuleConfig         `json:"rules,omitempty" yaml:"rules,omitempty"`
	// External seeds host-owned state such as reserved names.
	External validation.External `json:"external,omitempty" yaml:"external,omitempty"`
}

// RuleConfig declares a host rule. Which attributes apply depends on Kind:
//
//	unique:   key, field, resolver
//	denylist: key, field
//	lessThan: context, lower, upper
type RuleConfig struct {
	Kind       string `json:"kind" yaml:"kind"`
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	Key        string `json:"key,omitempty" yaml:"key,omitempty"`
	Field      string `json:"field,omitempty" yaml:"field,omitempty"`
	Resolver   string `json:"resolver,omitempty" yaml:"resolver,omitempty"`
	Context    string `json:"context,omitempty" yaml:"context,omitempty"`
	Lower      string `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper      string `json:"upper,omitempty" yaml:"upper,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
	Advisory   bool   `json:"advisory,omitempty" yaml:"advisory,omitempty"`
	// Derive computes the usage counts of a unique rule from the form's own
	// contexts instead of waiting for the host to push them.
	Derive     bool   `json:"derive,omitempty" yaml:"derive,omitempty"`
	Precedence int    `json:"precedence,omitempty" yaml:"precedence,omitempty"`
}
