// Package openapi imports console forms from OpenAPI component schemas. The
// kin-openapi dependency stays behind internal/openapi; callers only see
// contexts, a selector table and the discriminator field.
package openapi
