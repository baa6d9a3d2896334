package schema

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/require"
)

func TestSimpleSchema(t *testing.T) {
	s := SimpleSchema(map[string]string{
		"name":  "string",
		"count": "int",
		"ratio": "float64",
		"ok":    "bool",
		"tags":  "[]string",
		"meta":  "map[string]any",
		"other": "complex128",
	})

	require.Equal(t, "object", s.Type)
	require.Equal(t, []string{"count", "meta", "name", "ok", "other", "ratio", "tags"}, s.Required)
	require.Equal(t, "string", s.Properties["name"].Type)
	require.Equal(t, "integer", s.Properties["count"].Type)
	require.Equal(t, "number", s.Properties["ratio"].Type)
	require.Equal(t, "boolean", s.Properties["ok"].Type)
	require.Equal(t, "array", s.Properties["tags"].Type)
	require.Equal(t, "string", s.Properties["tags"].Items.Type)
	require.Equal(t, "object", s.Properties["meta"].Type)
	require.Equal(t, "string", s.Properties["other"].Type)
}

func TestCatalog_AllMethodsRegister(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	var names []string
	for _, m := range r.Methods() {
		names = append(names, m.Name)
	}

	require.Equal(t, []string{
		"chat", "click_at", "diagnose", "execute_step", "listen", "ping",
		"screenshot", "speak", "stop_listen", "type_text", "verify",
	}, names)

	m, ok := r.Lookup("diagnose")
	require.True(t, ok)
	require.True(t, m.ReadOnly)

	_, ok = r.Lookup("nope")
	require.False(t, ok)
}

func TestValidateParams(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	type clickParams struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	tests := []struct {
		name    string
		method  string
		params  any
		wantErr bool
	}{
		{name: "chat minimal", method: "chat", params: map[string]any{"text": "wifi is down"}},
		{name: "chat full", method: "chat", params: map[string]any{
			"text":    "still broken",
			"lang":    "es",
			"history": []any{map[string]any{"role": "user", "text": "hola"}},
		}},
		{name: "chat missing text", method: "chat", params: map[string]any{"lang": "en"}, wantErr: true},
		{name: "chat unknown lang", method: "chat", params: map[string]any{"text": "x", "lang": "de"}, wantErr: true},
		{name: "chat bad history role", method: "chat", params: map[string]any{
			"text":    "x",
			"history": []any{map[string]any{"role": "system", "text": "y"}},
		}, wantErr: true},
		{name: "click struct params", method: "click_at", params: clickParams{X: 10, Y: 20}},
		{name: "click fractional", method: "click_at", params: map[string]any{"x": 1.5, "y": 2}, wantErr: true},
		{name: "click missing y", method: "click_at", params: map[string]any{"x": 1}, wantErr: true},
		{name: "execute wrong type", method: "execute_step", params: map[string]any{"command": 42}, wantErr: true},
		{name: "nil params on empty schema", method: "diagnose", params: nil},
		{name: "nil params on required schema", method: "type_text", params: nil, wantErr: true},
		{name: "non-object params", method: "ping", params: []int{1}, wantErr: true},
		{name: "unregistered method", method: "custom", params: []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.ValidateParams(tt.method, tt.params)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestValidateParams_Unmarshalable(t *testing.T) {
	r, err := DefaultRegistry()
	require.NoError(t, err)

	err = r.ValidateParams("ping", map[string]any{"ch": make(chan int)})
	require.ErrorContains(t, err, "marshal params")
}

func TestRegisterSchemas(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterSchemas(map[string]*jsonschema.Schema{
		"echo": SimpleSchema(map[string]string{"x": "int"}),
	})
	require.NoError(t, err)

	require.NoError(t, r.ValidateParams("echo", map[string]any{"x": 1}))
	require.Error(t, r.ValidateParams("echo", map[string]any{"x": "one"}))

	require.Error(t, r.Register(Method{}))
}

func TestCatalogSchemas(t *testing.T) {
	schemas := CatalogSchemas()
	require.Len(t, schemas, len(Catalog()))
	require.Equal(t, []string{"x", "y"}, schemas["click_at"].Required)
}
