// Package tools defines the tool capability interface, the registry the
// session loop resolves tool calls against, and the built-in tools.
package tools

import (
	"context"

	"github.com/nightwatch-astro/nightwatch/internal/providers"
)

// Tool is the interface all tools implement.
type Tool interface {
	Name() string
	Description() string
	Parameters() *Schema
	Execute(ctx context.Context, args map[string]any) *Result
}

// ToProviderDef converts a Tool to a provider tool definition.
func ToProviderDef(t Tool) providers.ToolDefinition {
	return providers.ToolDefinition{
		Type: "function",
		Function: providers.ToolFunctionSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters().ToMap(),
		},
	}
}
