// Package ollama is a reasoning client for a local Ollama server's chat API
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"go.uber.org/zap"
)

const backendName = "ollama"

// DefaultModel is used when no model is configured
const DefaultModel = "codellama:13b"

// Client calls POST {endpoint}/api/chat without streaming
type Client struct {
	http   *resty.Client
	model  string
	logger *zap.Logger
}

// New creates an Ollama client
func New(endpoint, model string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, apperrors.NewConfigurationError(backendName, "reasoning.ollama_url is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(endpoint, "/")).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Client{http: client, model: model, logger: logger}, nil
}

func (c *Client) Name() string {
	return backendName
}

type chatFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type chatToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function chatFunction `json:"function"`
}

type chatMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []chatToolCall `json:"tool_calls,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []reasoning.Tool `json:"tools,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

// Respond sends the conversation and returns the assistant turn
func (c *Client) Respond(ctx context.Context, messages []reasoning.Message, tools []reasoning.Tool) (*reasoning.Turn, error) {
	req := chatRequest{Model: c.model, Stream: false, Tools: tools}
	for _, m := range messages {
		msg, err := toChatMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msg)
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, "chat", err)
	}
	if resp.IsError() {
		return nil, apperrors.NewTransientBackendError(backendName, "chat",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()))
	}

	turn := &reasoning.Turn{Content: out.Message.Content}
	for _, tc := range out.Message.ToolCalls {
		call := reasoning.ToolCall{ID: tc.ID, Name: tc.Function.Name}
		if call.ID == "" {
			call.ID = reasoning.NewCallID()
		}
		args, raw, err := reasoning.DecodeArguments(tc.Function.Arguments)
		if err != nil {
			c.logger.Debug("undecodable tool arguments", zap.String("tool", call.Name), zap.Error(err))
		}
		call.Arguments, call.RawArguments = args, raw
		turn.ToolCalls = append(turn.ToolCalls, call)
	}
	return turn, nil
}

func toChatMessage(m reasoning.Message) (chatMessage, error) {
	msg := chatMessage{Role: string(m.Role), Content: m.Content}
	switch m.Role {
	case reasoning.RoleTool:
		msg.ToolName = m.ToolName
	case reasoning.RoleAssistant:
		for _, call := range m.ToolCalls {
			args, err := reasoning.EncodeArguments(call)
			if err != nil {
				return chatMessage{}, err
			}
			msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
				ID:       call.ID,
				Function: chatFunction{Name: call.Name, Arguments: args},
			})
		}
	}
	return msg, nil
}
