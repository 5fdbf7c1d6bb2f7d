// Package tool defines the pluggable contract for external actions a Star
// invokes via a ToolCall, grounded on the teacher's graph/tool/tool.go.
package tool

import "context"

// Tool executes one named action and returns structured output. A
// Worker Star's ToolCalls are dispatched against a registry of Tools by
// matching ToolCall.Name against Name().
type Tool interface {
	// Name is the tool's unique identifier, matched against ToolCall.Name.
	Name() string

	// Call executes the tool against input, returning structured output
	// or an error. Implementations should check ctx before expensive work.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}
