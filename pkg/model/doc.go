// Package model defines the declarative field registry consumed by the store,
// validation engine and form controller. Builders reside in internal/model but
// return the types defined here. Validation rules expose canonical identifiers
// (min/max, minLength/maxLength, pattern) with string parameters so form
// definitions loaded from YAML, JSON or OpenAPI documents share one encoding.
// Fields are grouped into named contexts and addressed by QualifiedName, which
// only turns into the dotted `context.field` form at export boundaries.
package model
