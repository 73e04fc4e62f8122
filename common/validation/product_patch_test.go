package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatchValidator_Validate(t *testing.T) {
	v := NewPatchValidator()

	tests := []struct {
		name    string
		patch   string
		wantErr string
	}{
		{"replace price", `[{"op":"replace","path":"/price_cents","value":990}]`, ""},
		{"test then replace", `[{"op":"test","path":"/id","value":"x"},{"op":"replace","path":"/stock","value":3}]`, ""},
		{"remove description", `[{"op":"remove","path":"/description"}]`, ""},
		{"copy into field", `[{"op":"copy","from":"/image_url","path":"/thumbnail_url"}]`, ""},
		{"not an array", `{"op":"replace"}`, "JSON array"},
		{"empty", `[]`, "no operations"},
		{"missing op", `[{"path":"/name","value":"x"}]`, "'op'"},
		{"relative path", `[{"op":"replace","path":"name","value":"x"}]`, "'path'"},
		{"missing value", `[{"op":"replace","path":"/name"}]`, "'value' required"},
		{"missing from", `[{"op":"move","path":"/name"}]`, "'from' required"},
		{"unknown op", `[{"op":"merge","path":"/name","value":1}]`, "unsupported"},
		{"protected id", `[{"op":"replace","path":"/id","value":"x"}]`, "/id cannot be modified"},
		{"protected nested", `[{"op":"remove","path":"/created_at/0"}]`, "/created_at cannot be modified"},
		{"move out of protected", `[{"op":"move","from":"/updated_at","path":"/description"}]`, "/updated_at cannot be modified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate([]byte(tt.patch))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPatchValidator_TooManyOperations(t *testing.T) {
	ops := make([]map[string]interface{}, MaxPatchOperations+1)
	for i := range ops {
		ops[i] = map[string]interface{}{"op": "replace", "path": "/stock", "value": i}
	}
	assert.Error(t, NewPatchValidator().ValidateOperations(ops))
}

func TestTopLevel(t *testing.T) {
	assert.Equal(t, "/id", topLevel("/id"))
	assert.Equal(t, "/id", topLevel("/id/0"))
	assert.Equal(t, "/", topLevel("/"))
}
