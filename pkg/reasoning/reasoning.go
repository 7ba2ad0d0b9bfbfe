// Package reasoning defines the conversation types exchanged with a
// tool-calling language model backend.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Role of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one function invocation requested by the assistant.
// Arguments is nil when RawArguments could not be decoded.
type ToolCall struct {
	ID           string
	Name         string
	Arguments    map[string]interface{}
	RawArguments string
}

// Message is a user prompt, an assistant turn (with optional tool calls) or
// the result of one tool call, addressed by call ID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// UserMessage builds a user prompt
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage records an assistant turn
func AssistantMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage answers the tool call with the given ID
func ToolResultMessage(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, ToolName: call.Name}
}

// Tool is the function-calling wire format shared by both backends
type Tool struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec describes one callable function
type FunctionSpec struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  ParametersSchema `json:"parameters"`
}

// ParametersSchema is the JSON schema object for function arguments
type ParametersSchema struct {
	Type       string                    `json:"type"`
	Properties map[string]PropertySchema `json:"properties"`
	Required   []string                  `json:"required"`
}

// PropertySchema describes one argument
type PropertySchema struct {
	Type        string                    `json:"type"`
	Description string                    `json:"description,omitempty"`
	Default     interface{}               `json:"default,omitempty"`
	Enum        []string                  `json:"enum,omitempty"`
	Properties  map[string]PropertySchema `json:"properties,omitempty"`
	Required    []string                  `json:"required,omitempty"`
	Minimum     *float64                  `json:"minimum,omitempty"`
	Maximum     *float64                  `json:"maximum,omitempty"`
}

// Turn is one assistant response
type Turn struct {
	Content   string
	ToolCalls []ToolCall
}

// Client sends the whole conversation and returns the next assistant turn.
// Network, status and decode failures are TransientBackendErrors.
type Client interface {
	Respond(ctx context.Context, messages []Message, tools []Tool) (*Turn, error)
	Name() string
}

// NewCallID generates an ID for backends that do not assign one
func NewCallID() string {
	return "call_" + uuid.NewString()[:8]
}

// DecodeArguments accepts either a JSON object or a JSON-encoded string
func DecodeArguments(raw json.RawMessage) (map[string]interface{}, string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]interface{}{}, "", nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if encoded == "" {
			return map[string]interface{}{}, "", nil
		}
		raw = json.RawMessage(encoded)
	}

	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, string(raw), fmt.Errorf("tool arguments are not a JSON object: %w", err)
	}
	return args, string(raw), nil
}

// EncodeArguments renders call arguments for replay, using {} when they were
// undecodable.
func EncodeArguments(call ToolCall) ([]byte, error) {
	if call.Arguments == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments of %s: %w", call.Name, err)
	}
	return data, nil
}
