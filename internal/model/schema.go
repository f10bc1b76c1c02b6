package model

// Schema is the parser-neutral view of a JSON schema node the builder works
// from. internal/openapi/parser fills it from kin-openapi documents.
type Schema struct {
	Name        string
	Ref         string
	Type        string
	Format      string
	Title       string
	Description string
	Default     any
	Enum        []any
	ReadOnly    bool

	Required   []string
	Properties map[string]Schema
	// Order lists property names in their preferred display order. Names not
	// listed follow in lexical order.
	Order []string
	Items *Schema

	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum bool
	ExclusiveMaximum bool
	MinLength        *int
	MaxLength        *int
	Pattern          string

	OneOf         []Schema
	Discriminator *Discriminator

	Extensions map[string]any
}

// Discriminator names the property selecting a oneOf variant and the
// optional value to variant mapping.
type Discriminator struct {
	Property string
	// Mapping maps discriminator values to variant names.
	Mapping map[string]string
}
