// Package gemini implements the LLM port against the Gemini REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samarachi/bank-agent/internal/ports"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "gemini").Logger()

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 2 * time.Minute

	maxRetries = 3
)

// Config holds Gemini client settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int
}

// Client is an LLM adapter for Gemini.
type Client struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

// New creates a Gemini client, applying defaults for unset config fields.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           cfg.Model,
		maxOutputTokens: cfg.MaxOutputTokens,
		httpClient:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Chat sends the conversation and returns the model's next turn.
func (c *Client) Chat(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	body := geminiRequest{
		Contents: buildContents(req.Messages),
		GenerationConfig: generationConfig{
			Temperature:     0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		body.Tools = []geminiTool{{FunctionDeclarations: buildDeclarations(req.Tools)}}
	} else if req.ResponseSchema != nil {
		// Gemini rejects responseSchema combined with function declarations,
		// so schema enforcement only applies to tool-free requests.
		body.GenerationConfig.ResponseMimeType = "application/json"
		body.GenerationConfig.ResponseSchema = req.ResponseSchema
	}

	resp, err := c.generate(ctx, body)
	if err != nil {
		return nil, err
	}
	return parseResponse(resp)
}

func (c *Client) generate(ctx context.Context, body geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("gemini API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		}

		var out geminiResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		if out.Error != nil {
			return nil, fmt.Errorf("gemini API error: %s", out.Error.Message)
		}

		logger.Debug().
			Str("model", c.model).
			Dur("elapsed", time.Since(start)).
			Int("total_tokens", out.UsageMetadata.TotalTokenCount).
			Msg("generate complete")

		return &out, nil
	}

	logger.Error().Err(lastErr).Str("model", c.model).Msg("max retries exceeded")
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func buildContents(messages []ports.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case ports.RoleModel:
			var parts []geminiPart
			if m.Text != "" {
				parts = append(parts, geminiPart{Text: m.Text})
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, geminiPart{FunctionCall: &functionCall{
					Name: call.Name,
					Args: call.Args,
				}})
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})
		case ports.RoleTool:
			parts := make([]geminiPart, 0, len(m.ToolResults))
			for _, res := range m.ToolResults {
				response := map[string]any{"result": res.Content}
				if res.IsError {
					response = map[string]any{"error": res.Content}
				}
				parts = append(parts, geminiPart{FunctionResponse: &functionResponse{
					Name:     res.Name,
					Response: response,
				}})
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		default:
			contents = append(contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Text}},
			})
		}
	}
	return contents
}

func buildDeclarations(tools []ports.ToolDefinition) []functionDeclaration {
	decls := make([]functionDeclaration, len(tools))
	for i, t := range tools {
		decls[i] = functionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return decls
}

func parseResponse(resp *geminiResponse) (*ports.ChatResponse, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no completion returned")
	}

	out := &ports.ChatResponse{}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, ports.ToolCall{
				ID:   fmt.Sprintf("call_%d", len(out.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
			continue
		}
		text.WriteString(part.Text)
	}
	out.Text = strings.TrimSpace(text.String())
	return out, nil
}
