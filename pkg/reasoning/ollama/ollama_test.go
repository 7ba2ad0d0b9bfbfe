package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opscart/k8s-scaling-advisor/pkg/apperrors"
	"github.com/opscart/k8s-scaling-advisor/pkg/reasoning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespond_ToolCalls(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"","tool_calls":[
			{"function":{"name":"get_health_events","arguments":{"entity_id":"SERVICE-1"}}}
		]},"done":true}`))
	}))
	defer server.Close()

	client, err := New(server.URL, "", time.Second, nil)
	require.NoError(t, err)

	call := reasoning.ToolCall{ID: "call_a", Name: "discover_entity", Arguments: map[string]interface{}{"app_name": "cart"}}
	turn, err := client.Respond(context.Background(), []reasoning.Message{
		reasoning.UserMessage("suggest scaling"),
		reasoning.AssistantMessage("", []reasoning.ToolCall{call}),
		reasoning.ToolResultMessage(call, `{"entity_id":"SERVICE-1"}`),
	}, []reasoning.Tool{{Type: "function", Function: reasoning.FunctionSpec{Name: "get_health_events"}}})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "discover_entity", got.Messages[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", got.Messages[2].Role)
	assert.Equal(t, "discover_entity", got.Messages[2].ToolName)
	require.Len(t, got.Tools, 1)

	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, "get_health_events", turn.ToolCalls[0].Name)
	assert.Equal(t, "SERVICE-1", turn.ToolCalls[0].Arguments["entity_id"])
	assert.NotEmpty(t, turn.ToolCalls[0].ID)
}

func TestRespond_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client, err := New(server.URL, "llama3", time.Second, nil)
	require.NoError(t, err)

	_, err = client.Respond(context.Background(), []reasoning.Message{reasoning.UserMessage("hi")}, nil)
	assert.True(t, apperrors.IsTransient(err))

	_, err = New("", "", 0, nil)
	assert.True(t, apperrors.IsConfiguration(err))
}
