package schema

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// Languages the worker can reply, speak and transcribe in.
var Languages = []string{"en", "es", "pa", "hi", "fr"}

// Catalog returns the methods served by the FixMe worker.
func Catalog() []Method {
	return []Method{
		{
			Name:        "chat",
			Description: "Send user text to the assistant; returns a reply and suggested commands.",
			Params:      chatParams(),
		},
		{
			Name:        "diagnose",
			Description: "Capture the screen and diagnose the visible problem.",
			Params:      ObjectSchema(nil),
			ReadOnly:    true,
		},
		{
			Name:        "execute_step",
			Description: "Execute one shell command, optionally with administrator rights.",
			Params: withDescriptions(ObjectSchema(map[string]string{
				"command": "string",
				"admin":   "bool",
			}, "command"), map[string]string{
				"command": "Shell command to run",
				"admin":   "Run with elevated privileges",
			}),
		},
		{
			Name:        "speak",
			Description: "Speak text aloud.",
			Params: withEnum(ObjectSchema(map[string]string{
				"text": "string",
				"lang": "string",
			}, "text"), "lang", Languages...),
		},
		{
			Name:        "screenshot",
			Description: "Take a screenshot and return the file path.",
			Params:      ObjectSchema(nil),
			ReadOnly:    true,
		},
		{
			Name:        "click_at",
			Description: "Click at screen coordinates.",
			Params:      SimpleSchema(map[string]string{"x": "int", "y": "int"}),
		},
		{
			Name:        "type_text",
			Description: "Type text with the keyboard.",
			Params:      SimpleSchema(map[string]string{"text": "string"}),
		},
		{
			Name:        "listen",
			Description: "Record from the microphone until stop_listen, then transcribe.",
			Params:      withEnum(ObjectSchema(map[string]string{"lang": "string"}), "lang", Languages...),
			ReadOnly:    true,
		},
		{
			Name:        "stop_listen",
			Description: "Stop an in-progress listen.",
			Params:      ObjectSchema(nil),
		},
		{
			Name:        "verify",
			Description: "Take a verification screenshot and diagnose it again.",
			Params:      ObjectSchema(nil),
			ReadOnly:    true,
		},
		{
			Name:        "ping",
			Description: "Check that the worker is responsive.",
			Params:      ObjectSchema(nil),
			ReadOnly:    true,
		},
	}
}

func chatParams() *jsonschema.Schema {
	s := withEnum(ObjectSchema(map[string]string{
		"text": "string",
		"lang": "string",
	}, "text"), "lang", Languages...)

	s.Properties["history"] = &jsonschema.Schema{
		Type:        "array",
		Description: "Earlier turns, oldest first",
		Items: withEnum(
			SimpleSchema(map[string]string{"role": "string", "text": "string"}),
			"role", "user", "assistant",
		),
	}

	return s
}

// DefaultRegistry returns a registry holding the full catalog.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	for _, m := range Catalog() {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// CatalogSchemas returns the params schema of every catalog method keyed
// by method name.
func CatalogSchemas() map[string]*jsonschema.Schema {
	methods := Catalog()

	schemas := make(map[string]*jsonschema.Schema, len(methods))
	for _, m := range methods {
		schemas[m.Name] = m.Params
	}

	return schemas
}
