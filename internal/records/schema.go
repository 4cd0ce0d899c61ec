package records

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/paperia/internal/common"
)

// recordJSONSchema constrains a parsed record before it reaches the database.
func recordJSONSchema() map[string]any {
	optionalString := map[string]any{"type": "string", "minLength": 1}
	nonNegative := map[string]any{"type": "number", "minimum": 0}

	return map[string]any{
		"type":     "object",
		"required": []string{"kind", "date", "subtotal", "total", "party", "items"},
		"properties": map[string]any{
			"kind":     map[string]any{"type": "string", "enum": []string{"invoice", "purchase"}},
			"number":   map[string]any{"type": "string", "maxLength": 64},
			"date":     map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"subtotal": nonNegative,
			"total":    nonNegative,
			"tax":      nonNegative,
			"discount": nonNegative,
			"party": map[string]any{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]any{
					"name":    map[string]any{"type": "string", "minLength": 1, "maxLength": 255},
					"address": optionalString,
					"phone":   optionalString,
					"email":   optionalString,
				},
			},
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"product", "qty", "unit_price"},
					"properties": map[string]any{
						"product":    map[string]any{"type": "string", "minLength": 1, "maxLength": 255},
						"qty":        map[string]any{"type": "integer", "minimum": 1},
						"unit_price": nonNegative,
					},
				},
			},
		},
	}
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(recordJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("record.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("record.json")
})

// Validate checks rec against the record schema. Failures wrap
// common.ErrValidation.
func Validate(rec *Record) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile record schema: %w", err)
	}

	doc, err := recordDocument(rec)
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		return common.NewAppError("RECORD_INVALID", "parsed record does not match schema", fmt.Errorf("%w: %v", common.ErrValidation, err))
	}
	return nil
}

// recordDocument renders rec as the generic JSON value the validator walks.
func recordDocument(rec *Record) (any, error) {
	type wire struct {
		*Record
		Date string `json:"date"`
	}
	b, err := json.Marshal(wire{Record: rec, Date: rec.Date.Format("2006-01-02")})
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return v, nil
}
