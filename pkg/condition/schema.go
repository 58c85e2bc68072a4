package condition

// Definitions returns JSON schema definitions for condition payloads, meant
// for the "definitions" keyword of a node data schema. Refer to them as
// "#/definitions/simpleCondition" and "#/definitions/conditionGroup"; groups
// refer to themselves, so nested groups are checked at every depth.
func Definitions() map[string]any {
	return map[string]any{
		"simpleCondition": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"field": map[string]any{
					"type":        "string",
					"description": "Dotted path into the node input",
					"examples":    []string{"status", "response.body.count"},
				},
				"operator": map[string]any{
					"type": "string",
					"enum": []string{"equals", "not_equals", "greater_than", "less_than", "contains", "not_contains"},
				},
				"value": map[string]any{
					"description": "Value compared with the resolved field",
				},
			},
			"required": []string{"field", "operator"},
		},
		"conditionGroup": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operator": map[string]any{"type": "string", "enum": []string{"AND", "OR"}},
				"conditions": map[string]any{
					"type":  []string{"array", "null"},
					"items": map[string]any{"$ref": "#/definitions/simpleCondition"},
				},
				"groups": map[string]any{
					"type":        []string{"array", "null"},
					"items":       map[string]any{"$ref": "#/definitions/conditionGroup"},
					"description": "Nested condition groups",
				},
			},
			"required": []string{"operator"},
		},
	}
}
