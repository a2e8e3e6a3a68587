package providers

import (
	"testing"
)

func TestCleanToolSchemas_Ollama(t *testing.T) {
	tools := []ToolDefinition{{
		Type: "function",
		Function: ToolFunctionSchema{
			Name:        "test",
			Description: "desc",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"name": map[string]interface{}{
						"type": "string",
						"$ref": "#/$defs/Name",
					},
				},
				"$defs":                map[string]interface{}{"Name": "x"},
				"additionalProperties": false,
			},
		},
	}}

	cleaned := CleanToolSchemas("ollama", tools)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(cleaned))
	}

	params := cleaned[0].Function.Parameters
	for _, key := range []string{"$defs", "additionalProperties"} {
		if _, ok := params[key]; ok {
			t.Errorf("expected key %q to be removed", key)
		}
	}
	if _, ok := params["type"]; !ok {
		t.Error("expected 'type' to remain")
	}

	props := params["properties"].(map[string]interface{})
	nameSchema := props["name"].(map[string]interface{})
	if _, ok := nameSchema["$ref"]; ok {
		t.Error("expected nested '$ref' removed for ollama")
	}
	if _, ok := nameSchema["type"]; !ok {
		t.Error("expected nested 'type' to remain")
	}
}

func TestCleanToolSchemas_Bedrock(t *testing.T) {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type": "string",
				"$ref": "#/$defs/URL",
			},
		},
		"$defs":                map[string]interface{}{"URL": "..."},
		"additionalProperties": false,
		"default":              "x",
	}

	cleaned := CleanSchemaForProvider("bedrock", params)

	if _, ok := cleaned["$defs"]; ok {
		t.Error("expected $defs removed for bedrock")
	}
	props := cleaned["properties"].(map[string]interface{})
	urlSchema := props["url"].(map[string]interface{})
	if _, ok := urlSchema["$ref"]; ok {
		t.Error("expected nested $ref removed for bedrock")
	}

	// additionalProperties and default should remain for bedrock
	if _, ok := cleaned["additionalProperties"]; !ok {
		t.Error("expected additionalProperties to remain for bedrock")
	}
	if _, ok := cleaned["default"]; !ok {
		t.Error("expected default to remain for bedrock")
	}
}

func TestCleanToolSchemas_Unknown(t *testing.T) {
	tools := []ToolDefinition{{
		Type: "function",
		Function: ToolFunctionSchema{
			Name: "test",
			Parameters: map[string]interface{}{
				"$ref":    "something",
				"default": "val",
			},
		},
	}}

	cleaned := CleanToolSchemas("openai", tools)
	// Should return original unchanged
	if _, ok := cleaned[0].Function.Parameters["$ref"]; !ok {
		t.Error("expected $ref to remain for openai-compatible providers")
	}
}

func TestCleanToolSchemas_Empty(t *testing.T) {
	cleaned := CleanToolSchemas("ollama", nil)
	if cleaned != nil {
		t.Error("expected nil for nil tools")
	}
}

func TestCleanSchema_NilParams(t *testing.T) {
	result := CleanSchemaForProvider("ollama", nil)
	if result != nil {
		t.Error("expected nil for nil params")
	}
}

func TestCleanSchema_NestedArray(t *testing.T) {
	params := map[string]interface{}{
		"anyOf": []interface{}{
			map[string]interface{}{
				"type":                 "string",
				"additionalProperties": false,
			},
			map[string]interface{}{
				"type": "number",
				"$ref": "#/defs/Num",
			},
		},
	}

	cleaned := CleanSchemaForProvider("ollama", params)
	anyOf := cleaned["anyOf"].([]interface{})
	if len(anyOf) != 2 {
		t.Fatalf("expected 2 items, got %d", len(anyOf))
	}

	first := anyOf[0].(map[string]interface{})
	if _, ok := first["additionalProperties"]; ok {
		t.Error("expected 'additionalProperties' removed in array item")
	}
	if _, ok := first["type"]; !ok {
		t.Error("expected 'type' to remain in array item")
	}

	second := anyOf[1].(map[string]interface{})
	if _, ok := second["$ref"]; ok {
		t.Error("expected '$ref' removed in array item")
	}
}

func TestCleanSchema_DeepNesting(t *testing.T) {
	params := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"config": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"nested": map[string]interface{}{
						"type":  "string",
						"$defs": map[string]interface{}{},
						"$ref":  "#/deep",
					},
				},
			},
		},
	}

	cleaned := CleanSchemaForProvider("bedrock", params)
	props := cleaned["properties"].(map[string]interface{})
	config := props["config"].(map[string]interface{})
	innerProps := config["properties"].(map[string]interface{})
	nested := innerProps["nested"].(map[string]interface{})

	if _, ok := nested["$defs"]; ok {
		t.Error("expected deeply nested '$defs' removed")
	}
	if _, ok := nested["$ref"]; ok {
		t.Error("expected deeply nested '$ref' removed")
	}
	if _, ok := nested["type"]; !ok {
		t.Error("expected 'type' to remain at deep level")
	}
}
