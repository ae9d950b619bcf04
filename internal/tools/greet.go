package tools

import (
	"context"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GreetTool returns a personalized greeting; the demo tool for exercising
// the dispatch loop end to end.
type GreetTool struct{}

func NewGreetTool() *GreetTool { return &GreetTool{} }

func (t *GreetTool) Name() string { return "greet_tool" }

func (t *GreetTool) Description() string {
	return "A simple tool that returns a personalized greeting for a given mood."
}

func (t *GreetTool) Parameters() *Schema {
	return &Schema{
		Properties: map[string]Property{
			"mood": {Type: "string", Description: "The mood of the greeting, e.g. \"happy\"."},
		},
		Required: []string{"mood"},
	}
}

func (t *GreetTool) Execute(ctx context.Context, args map[string]any) *Result {
	mood, _ := args["mood"].(string)
	titled := cases.Title(language.English).String(mood)
	return UserResult(fmt.Sprintf("[%s greeting from tool] Nice to meet you!", titled))
}
