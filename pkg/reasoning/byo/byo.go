// Package byo is a reasoning client for any OpenAI-compatible chat
// completions endpoint supplied by the operator.
package byo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/opscart/k8s-scaling-advisor/pkg/secrets"
	"go.uber.org/zap"
)

const backendName = "byo"

// Client posts the conversation to a fixed endpoint with a bearer key
type Client struct {
	http     *resty.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// New creates a client. The API key comes from the secrets context.
func New(endpoint, model string, timeout time.Duration, sec *secrets.Context, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, apperrors.NewConfigurationError(backendName, "reasoning.byo_endpoint is required")
	}
	key, err := sec.Require(backendName, secrets.BYOAPIKey)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetAuthToken(key).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &Client{http: client, endpoint: endpoint, model: model, logger: logger}, nil
}

func (c *Client) Name() string {
	return backendName
}

type function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function function `json:"function"`
}

type message struct {
	Role       string     `json:"role"`
	Content    *string    `json:"content"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type request struct {
	Model    string           `json:"model,omitempty"`
	Messages []message        `json:"messages"`
	Tools    []reasoning.Tool `json:"tools,omitempty"`
}

type responseToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content   *string            `json:"content"`
			ToolCalls []responseToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// Respond sends the conversation and returns choices[0]
func (c *Client) Respond(ctx context.Context, messages []reasoning.Message, tools []reasoning.Tool) (*reasoning.Turn, error) {
	req := request{Model: c.model, Tools: tools}
	for _, m := range messages {
		msg, err := toMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msg)
	}

	var out response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return nil, apperrors.NewTransientBackendError(backendName, "chat completion", err)
	}
	if resp.IsError() {
		return nil, apperrors.NewTransientBackendError(backendName, "chat completion",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String()))
	}
	if len(out.Choices) == 0 {
		return nil, apperrors.NewTransientBackendError(backendName, "chat completion",
			fmt.Errorf("response has no choices"))
	}

	choice := out.Choices[0].Message
	turn := &reasoning.Turn{}
	if choice.Content != nil {
		turn.Content = *choice.Content
	}
	for _, tc := range choice.ToolCalls {
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

func toMessage(m reasoning.Message) (message, error) {
	content := m.Content
	msg := message{Role: string(m.Role), Content: &content}

	switch m.Role {
	case reasoning.RoleTool:
		msg.ToolCallID = m.ToolCallID
	case reasoning.RoleAssistant:
		if content == "" && len(m.ToolCalls) > 0 {
			msg.Content = nil
		}
		for _, call := range m.ToolCalls {
			args, err := reasoning.EncodeArguments(call)
			if err != nil {
				return message{}, err
			}
			msg.ToolCalls = append(msg.ToolCalls, toolCall{
				ID:       call.ID,
				Type:     "function",
				Function: function{Name: call.Name, Arguments: string(args)},
			})
		}
	}
	return msg, nil
}
