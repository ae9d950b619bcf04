package providers

import "slices"

// Some OpenAI-compatible backends reject valid JSON Schema keys.
// Gemini-compatible endpoints refuse $ref/$defs/additionalProperties and
// friends; strip them before the request goes out.
var geminiUnsupportedKeys = []string{"$ref", "$defs", "additionalProperties", "examples", "default"}

// CleanToolSchemas returns a copy of tools with provider-incompatible
// JSON Schema fields removed from each tool's parameters. Providers that
// need no cleaning get the original slice back.
func CleanToolSchemas(providerName string, tools []ToolDefinition) []ToolDefinition {
	removeKeys := unsupportedKeysForProvider(providerName)
	if removeKeys == nil || len(tools) == 0 {
		return tools
	}

	cleaned := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		cleaned[i] = ToolDefinition{
			Type: t.Type,
			Function: ToolFunctionSchema{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  cleanSchema(t.Function.Parameters, removeKeys),
			},
		}
	}
	return cleaned
}

func unsupportedKeysForProvider(name string) []string {
	if name == "gemini" {
		return geminiUnsupportedKeys
	}
	return nil
}

// cleanSchema recursively removes unsupported keys from a JSON Schema map.
func cleanSchema(schema map[string]any, removeKeys []string) map[string]any {
	if schema == nil {
		return nil
	}

	result := make(map[string]any, len(schema))
	for k, v := range schema {
		if slices.Contains(removeKeys, k) {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
			result[k] = cleanSchema(val, removeKeys)
		case []any:
			result[k] = cleanSchemaSlice(val, removeKeys)
		default:
			result[k] = v
		}
	}
	return result
}

// cleanSchemaSlice recurses into arrays such as "anyOf" and "oneOf".
func cleanSchemaSlice(items []any, removeKeys []string) []any {
	result := make([]any, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			result[i] = cleanSchema(m, removeKeys)
		} else {
			result[i] = item
		}
	}
	return result
}
