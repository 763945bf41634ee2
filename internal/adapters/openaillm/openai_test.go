package openaillm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samarachi/bank-agent/internal/ports"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.Model())
}

func TestBuildMessages(t *testing.T) {
	msgs, err := buildMessages("system prompt", []ports.Message{
		{Role: ports.RoleUser, Text: "balance?"},
		{Role: ports.RoleModel, ToolCalls: []ports.ToolCall{{
			ID: "call_1", Name: "check_account_balance", Args: map[string]any{},
		}}},
		{Role: ports.RoleTool, ToolResults: []ports.ToolResult{{
			CallID: "call_1", Name: "check_account_balance", Content: "$5.00",
		}}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "system prompt", msgs[0].Content)
	assert.Equal(t, "user", msgs[1].Role)

	assert.Equal(t, "assistant", msgs[2].Role)
	require.Len(t, msgs[2].ToolCalls, 1)
	assert.Equal(t, "call_1", msgs[2].ToolCalls[0].ID)
	assert.Equal(t, "check_account_balance", msgs[2].ToolCalls[0].Function.Name)

	assert.Equal(t, "tool", msgs[3].Role)
	assert.Equal(t, "call_1", msgs[3].ToolCallID)
	assert.Equal(t, "$5.00", msgs[3].Content)
}

func TestBuildTools(t *testing.T) {
	assert.Nil(t, buildTools(nil))

	tools := buildTools([]ports.ToolDefinition{{
		Name:        "verify_identity",
		Description: "verify",
		Parameters:  map[string]any{"type": "object"},
	}})
	require.Len(t, tools, 1)
	assert.Equal(t, "verify_identity", tools[0].Function.Name)
}

func TestChat_ToolCallParsing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_abc",
						"type": "function",
						"function": map[string]any{
							"name":      "check_bank_documentation",
							"arguments": `{"topic":"loan"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "loans?"}},
		Tools: []ports.ToolDefinition{{
			Name:       "check_bank_documentation",
			Parameters: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
	assert.Equal(t, "check_bank_documentation", resp.ToolCalls[0].Name)
	assert.Equal(t, "loan", resp.ToolCalls[0].Args["topic"])
}

func TestChat_Text(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-2",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"message":"hi","sensitive_data_included":false}`,
				},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.ToolCalls)
	assert.Contains(t, resp.Text, `"message":"hi"`)
}
