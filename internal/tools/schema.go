package tools

import (
	"fmt"
	"math"
)

// Property declares one tool parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema declares a tool's input parameters, JSON-Schema flavored: an object
// with typed properties and a required list.
type Schema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToMap renders the schema in the wire shape provider APIs expect.
func (s *Schema) ToMap() map[string]any {
	props := map[string]any{}
	if s != nil {
		for name, p := range s.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[name] = prop
		}
	}
	m := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if s != nil && len(s.Required) > 0 {
		m["required"] = s.Required
	}
	return m
}

// Validate checks required fields and primitive types. It is total: a tool
// handler is never called with a missing required field or a field of the
// wrong declared type.
func (s *Schema) Validate(tool string, args map[string]any) error {
	if s == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	for _, field := range s.Required {
		if _, ok := args[field]; !ok {
			return &InvalidArgumentsError{Tool: tool, Field: field, Reason: "missing required field"}
		}
	}
	for field, value := range args {
		prop, ok := s.Properties[field]
		if !ok {
			return &InvalidArgumentsError{Tool: tool, Field: field, Reason: "unexpected field"}
		}
		if err := checkType(value, prop.Type); err != nil {
			return &InvalidArgumentsError{Tool: tool, Field: field, Reason: err.Error()}
		}
	}
	return nil
}

func checkType(value any, expected string) error {
	switch expected {
	case "", "any":
		return nil
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s, got %T", expected, value)
}

func isNumber(value any) bool {
	switch value.(type) {
	case float32, float64, int, int32, int64:
		return true
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		// JSON decoding produces float64 for every number.
		return v == math.Trunc(v)
	}
	return false
}
