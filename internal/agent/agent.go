// Package agent runs customer queries through a permission-guarded
// tool-calling loop and returns structured responses.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samarachi/bank-agent/internal/audit"
	"github.com/samarachi/bank-agent/internal/domain"
	"github.com/samarachi/bank-agent/internal/ports"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "agent").Logger()

// ErrTooManyToolRounds means the model kept requesting tools past the
// configured bound.
var ErrTooManyToolRounds = errors.New("too many tool rounds")

const systemPrompt = "You are a secure banking assistant. Always verify identity and permissions before providing information."

const outputInstruction = `Answer with a single JSON object and nothing else:
{"message": <response to the customer>, "sensitive_data_included": <true if the answer contains account figures>, "caution_note": <caution note if applicable, else "">}
Before answering with account figures, pass the draft answer through the verify_response tool and copy its caution note into caution_note.`

const (
	defaultVerifyURL = "https://example.com/verify"
	defaultMaxRounds = 8
	maxConcurrent    = 3
)

// Auditor records tool dispatches.
type Auditor interface {
	Record(e audit.Entry) error
}

// Config holds agent settings.
type Config struct {
	// VerifyURL is where unverified customers are sent to prove identity.
	VerifyURL string
	// MaxToolRounds bounds tool-call rounds per query.
	MaxToolRounds int
	// Auditor, when set, receives an entry per tool dispatch.
	Auditor Auditor
}

// Agent answers customer queries.
type Agent struct {
	llm       ports.LLM
	authz     ports.Authorizer
	store     ports.Store
	auditor   Auditor
	verifyURL string
	maxRounds int

	llmSem chan struct{} // limit concurrent model calls
}

// New creates an agent.
func New(llm ports.LLM, authz ports.Authorizer, store ports.Store, cfg Config) *Agent {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = defaultVerifyURL
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxRounds
	}
	return &Agent{
		llm:       llm,
		authz:     authz,
		store:     store,
		auditor:   cfg.Auditor,
		verifyURL: cfg.VerifyURL,
		maxRounds: cfg.MaxToolRounds,
		llmSem:    make(chan struct{}, maxConcurrent),
	}
}

// HandleQuery answers one customer query for the given user.
func (a *Agent) HandleQuery(ctx context.Context, userID, query string) (*domain.Response, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user_id is empty")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is empty")
	}

	requestID := uuid.NewString()
	log := logger.With().Str("request_id", requestID).Str("user", userID).Logger()
	log.Info().Msg("handling query")

	msgs := []ports.Message{{Role: ports.RoleUser, Text: query}}
	for round := 0; round < a.maxRounds; round++ {
		resp, err := a.chat(ctx, ports.ChatRequest{
			System:   systemPrompt + "\n\n" + outputInstruction,
			Messages: msgs,
			Tools:    toolDefinitions(),
		})
		if err != nil {
			return nil, fmt.Errorf("model turn %d: %w", round, err)
		}

		if len(resp.ToolCalls) == 0 {
			out, perr := parseFinal(resp.Text)
			if perr != nil {
				log.Warn().Err(perr).Msg("final turn was not valid JSON, reformatting")
				return a.reformat(ctx, resp.Text)
			}
			log.Info().Bool("sensitive", out.SensitiveDataIncluded).Int("rounds", round).Msg("query answered")
			return out, nil
		}

		msgs = append(msgs, ports.Message{
			Role:      ports.RoleModel,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]ports.ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			log.Debug().Str("tool", call.Name).Msg("dispatching tool")
			res, err := a.dispatch(ctx, requestID, userID, call)
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", call.Name, err)
			}
			results = append(results, res)
		}
		msgs = append(msgs, ports.Message{Role: ports.RoleTool, ToolResults: results})
	}

	return nil, ErrTooManyToolRounds
}

func (a *Agent) chat(ctx context.Context, req ports.ChatRequest) (*ports.ChatResponse, error) {
	select {
	case a.llmSem <- struct{}{}:
		defer func() { <-a.llmSem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return a.llm.Chat(ctx, req)
}

// reformat makes one schema-enforced pass over a free-form final answer.
func (a *Agent) reformat(ctx context.Context, raw string) (*domain.Response, error) {
	resp, err := a.chat(ctx, ports.ChatRequest{
		System: systemPrompt,
		Messages: []ports.Message{{
			Role: ports.RoleUser,
			Text: "Reformat the following answer as the required JSON object, preserving its content:\n\n" + raw,
		}},
		ResponseSchema: responseSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("reformatting answer: %w", err)
	}
	out, perr := parseFinal(resp.Text)
	if perr != nil {
		return nil, fmt.Errorf("reformatted answer still invalid: %w", perr)
	}
	return out, nil
}

func responseSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Response to customer query",
			},
			"sensitive_data_included": map[string]any{
				"type":        "boolean",
				"description": "Whether response contains sensitive data",
			},
			"caution_note": map[string]any{
				"type":        "string",
				"description": "Caution note if applicable",
			},
		},
		"required": []string{"message", "sensitive_data_included"},
	}
}

func parseFinal(text string) (*domain.Response, error) {
	text = stripFences(text)
	if text == "" {
		return nil, errors.New("empty model answer")
	}
	var out domain.Response
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("parsing model answer: %w", err)
	}
	if out.Message == "" {
		return nil, errors.New("model answer has no message")
	}
	return &out, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return strings.TrimSpace(text)
}
