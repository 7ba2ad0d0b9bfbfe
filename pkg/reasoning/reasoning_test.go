package reasoning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeArguments(t *testing.T) {
	args, raw, err := DecodeArguments(json.RawMessage(`{"entity_id":"SERVICE-1","days":3}`))
	require.NoError(t, err)
	assert.Equal(t, "SERVICE-1", args["entity_id"])
	assert.Equal(t, 3.0, args["days"])
	assert.JSONEq(t, `{"entity_id":"SERVICE-1","days":3}`, raw)

	args, _, err = DecodeArguments(json.RawMessage(`"{\"entity_id\":\"SERVICE-2\"}"`))
	require.NoError(t, err)
	assert.Equal(t, "SERVICE-2", args["entity_id"])

	args, _, err = DecodeArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	args, raw, err = DecodeArguments(json.RawMessage(`"{not json"`))
	assert.Error(t, err)
	assert.Nil(t, args)
	assert.Equal(t, "{not json", raw)
}

func TestEncodeArguments(t *testing.T) {
	data, err := EncodeArguments(ToolCall{Name: "broken"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	data, err = EncodeArguments(ToolCall{Name: "ok", Arguments: map[string]interface{}{"days": 7}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"days":7}`, string(data))
}

func TestMessageConstructors(t *testing.T) {
	call := ToolCall{ID: "call_1", Name: "get_health_events"}
	result := ToolResultMessage(call, `{"recent_oom_kills":0}`)
	assert.Equal(t, RoleTool, result.Role)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Equal(t, "get_health_events", result.ToolName)

	assert.Equal(t, RoleUser, UserMessage("hi").Role)
	assert.Len(t, AssistantMessage("", []ToolCall{call}).ToolCalls, 1)
	assert.Regexp(t, `^call_[0-9a-f]{8}$`, NewCallID())
}
