// Package tools defines the functions offered to the reasoning backend and
// dispatches the calls it makes.
package tools

import (
	"fmt"

	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
)

// Kind enumerates every tool the catalog knows
type Kind int

const (
	KindPerformanceMetrics Kind = iota
	KindHealthEvents
	KindServiceLevelObjectives
	KindDataAvailability
	KindDiscoverEntity
	KindHistoricalMetrics
	KindTrendAnalysis
	KindSubmitSuggestion
)

// Category separates read-only queries from the terminal submission
type Category string

const (
	CategoryQuery      Category = "query"
	CategoryAnalysis   Category = "analysis"
	CategorySubmission Category = "submission"
)

// Parameter describes one function argument
type Parameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Default     interface{}
	Enum        []string
	// Schema overrides the rendered property for object parameters
	Schema *reasoning.PropertySchema
}

// Definition is a tool as offered to the reasoning backend
type Definition struct {
	Kind        Kind
	Name        string
	Description string
	Category    Category
	Parameters  []Parameter
}

// Render converts the definition to the function-calling wire format
func (d Definition) Render() reasoning.Tool {
	properties := make(map[string]reasoning.PropertySchema, len(d.Parameters))
	required := []string{}
	for _, p := range d.Parameters {
		var prop reasoning.PropertySchema
		if p.Schema != nil {
			prop = *p.Schema
		}
		prop.Type = p.Type
		prop.Description = p.Description
		prop.Default = p.Default
		if len(p.Enum) > 0 {
			prop.Enum = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return reasoning.Tool{
		Type: "function",
		Function: reasoning.FunctionSpec{
			Name:        d.Name,
			Description: d.Description,
			Parameters: reasoning.ParametersSchema{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		},
	}
}

// ToolNotFound is the message returned for unknown tool names
const ToolNotFound = "Tool not found."

// ToolError is an unknown tool, bad arguments, a failed query or a rejected
// submission. It is fed back to the model, never returned to the caller.
type ToolError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Feedback is the tool-result content sent back to the model
func (e *ToolError) Feedback() string {
	return "Error: " + e.Message
}

func newToolError(tool string, err error) *ToolError {
	return &ToolError{Tool: tool, Message: err.Error(), Err: err}
}
