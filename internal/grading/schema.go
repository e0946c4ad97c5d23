package grading

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildResultSchema returns the JSON-Schema (draft 2020-12 subset) the
// grading reply must satisfy before we trust it enough to unmarshal.
// Unknown keys are tolerated; the shape of what we consume is not.
func buildResultSchema() map[string]any {
	mark := map[string]any{"type": "string", "enum": []string{"circle", "triangle", "check"}}
	question := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max":             map[string]any{"type": "integer", "minimum": 0},
			"grading_process": map[string]any{"type": "string"},
			"score":           map[string]any{"type": "number"},
			"mark":            mark,
			"corrections":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"details_text":    map[string]any{"type": "string"},
			"sub_results": map[string]any{
				"type":                 "object",
				"additionalProperties": mark,
			},
		},
		"required": []string{"max", "score", "mark"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"student_id": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type":                 "object",
				"minProperties":        1,
				"additionalProperties": question,
			},
			"comment_parts": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"praise":  map[string]any{"type": "string"},
					"advice":  map[string]any{"type": "string"},
					"closing": map[string]any{"type": "string"},
				},
			},
		},
		"required": []string{"questions"},
	}
}

// validateResultJSON validates data against the grading-result schema.
func validateResultJSON(data []byte) error {
	b, err := json.Marshal(buildResultSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	sch, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
