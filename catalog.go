package sidecar

import (
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/sidecar-bridge-go/internal/schema"
)

// Method describes one method the worker serves.
type Method = schema.Method

// Schema is a JSON Schema object for method params.
type Schema = jsonschema.Schema

// Catalog returns the methods served by the FixMe worker.
func Catalog() []Method {
	return schema.Catalog()
}

// SimpleSchema creates an object schema from a simple type map where every
// property is required.
//
// Input format: {"x": "int", "text": "string"}
func SimpleSchema(props map[string]string) *Schema {
	return schema.SimpleSchema(props)
}
