package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samarachi/bank-agent/internal/ports"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	return c, srv
}

func candidateResponse(parts ...geminiPart) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": parts,
			},
			"finishReason": "STOP",
		}},
	}
}

func textResponse(text string) map[string]any {
	return candidateResponse(geminiPart{Text: text})
}

func TestNew_Defaults(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, defaultBaseURL, c.baseURL)
}

func TestChat_Text(t *testing.T) {
	var got geminiRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(textResponse("hello there"))
	})

	resp, err := c.Chat(context.Background(), ports.ChatRequest{
		System:   "be helpful",
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Text)
	assert.Empty(t, resp.ToolCalls)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be helpful", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 1)
	assert.Equal(t, "user", got.Contents[0].Role)
}

func TestChat_FunctionCall(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(candidateResponse(geminiPart{
			FunctionCall: &functionCall{
				Name: "check_bank_documentation",
				Args: map[string]any{"topic": "loan"},
			},
		}))
	})

	resp, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "loans?"}},
		Tools: []ports.ToolDefinition{{
			Name:       "check_bank_documentation",
			Parameters: map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "check_bank_documentation", resp.ToolCalls[0].Name)
	assert.Equal(t, "loan", resp.ToolCalls[0].Args["topic"])
}

func TestChat_ToolConversationRoundTrip(t *testing.T) {
	var got geminiRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(textResponse(`{"message":"done"}`))
	})

	_, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{
			{Role: ports.RoleUser, Text: "balance?"},
			{Role: ports.RoleModel, ToolCalls: []ports.ToolCall{{ID: "call_0", Name: "check_account_balance", Args: map[string]any{}}}},
			{Role: ports.RoleTool, ToolResults: []ports.ToolResult{{CallID: "call_0", Name: "check_account_balance", Content: "$5.00"}}},
		},
	})
	require.NoError(t, err)

	require.Len(t, got.Contents, 3)
	assert.Equal(t, "model", got.Contents[1].Role)
	require.NotNil(t, got.Contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "check_account_balance", got.Contents[1].Parts[0].FunctionCall.Name)
	require.NotNil(t, got.Contents[2].Parts[0].FunctionResponse)
	assert.Equal(t, map[string]any{"result": "$5.00"}, got.Contents[2].Parts[0].FunctionResponse.Response)
}

func TestChat_SchemaOnlyWithoutTools(t *testing.T) {
	var got geminiRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = geminiRequest{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(textResponse(`{"message":"ok"}`))
	})

	schema := map[string]any{"type": "object"}
	_, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages:       []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
		ResponseSchema: schema,
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMimeType)
	assert.NotNil(t, got.GenerationConfig.ResponseSchema)

	_, err = c.Chat(context.Background(), ports.ChatRequest{
		Messages:       []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
		Tools:          []ports.ToolDefinition{{Name: "t", Parameters: map[string]any{"type": "object"}}},
		ResponseSchema: schema,
	})
	require.NoError(t, err)
	assert.Empty(t, got.GenerationConfig.ResponseMimeType)
	assert.Nil(t, got.GenerationConfig.ResponseSchema)
	require.Len(t, got.Tools, 1)
}

func TestChat_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(textResponse("recovered"))
	})

	resp, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestChat_APIError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "bad request", "status": "INVALID_ARGUMENT"},
		})
	})

	_, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

func TestChat_NoCandidates(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geminiResponse{})
	})

	_, err := c.Chat(context.Background(), ports.ChatRequest{
		Messages: []ports.Message{{Role: ports.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion")
}
