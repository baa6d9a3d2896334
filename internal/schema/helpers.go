package schema

import (
	"maps"
	"slices"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// SimpleSchema creates an object schema from a simple type map where every
// property is required.
//
// Input format: {"x": "int", "text": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return ObjectSchema(props, slices.Sorted(maps.Keys(props))...)
}

// ObjectSchema creates an object schema from a simple type map. Only the
// named properties are required.
func ObjectSchema(props map[string]string, required ...string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if itemType, ok := strings.CutPrefix(goType, "[]"); ok && itemType != "" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(itemType),
			}
		}

		// Default to string
		return &jsonschema.Schema{Type: "string"}
	}
}

// withDescriptions sets property descriptions on an object schema.
func withDescriptions(s *jsonschema.Schema, descriptions map[string]string) *jsonschema.Schema {
	for name, desc := range descriptions {
		if prop, ok := s.Properties[name]; ok {
			prop.Description = desc
		}
	}

	return s
}

// withEnum restricts a string property to the given values.
func withEnum(s *jsonschema.Schema, property string, values ...string) *jsonschema.Schema {
	if prop, ok := s.Properties[property]; ok {
		prop.Enum = make([]any, len(values))
		for i, v := range values {
			prop.Enum[i] = v
		}
	}

	return s
}
