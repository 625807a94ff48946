package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fieldsSchema is what the field extractor accepts from a model. Numbers may
// arrive as strings ("1,234.56"), so amounts accept both.
var fieldsSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"staffName":    map[string]any{"type": []string{"string", "null"}},
		"totalAmount":  map[string]any{"type": []string{"number", "string", "null"}},
		"date":         map[string]any{"type": []string{"string", "null"}},
		"propertyName": map[string]any{"type": []string{"string", "null"}},
		"confidence":   map[string]any{"type": []string{"number", "null"}, "minimum": 0, "maximum": 100},
	},
	"additionalProperties": true,
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledFieldsSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(fieldsSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("fields.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("fields.json")
	})
	return compiledSchema, compileErr
}

// ValidateFieldsJSON checks a model response against the fields schema.
func ValidateFieldsJSON(data []byte) error {
	schema, err := compiledFieldsSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
