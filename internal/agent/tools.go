package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samarachi/bank-agent/internal/audit"
	"github.com/samarachi/bank-agent/internal/ports"
)

// Tool names exposed to the model.
const (
	toolVerifyIdentity = "verify_identity"
	toolCheckDocs      = "check_bank_documentation"
	toolCheckBalance   = "check_account_balance"
	toolVerifyResponse = "verify_response"
)

// Actions and resource types as configured in the Permit policy.
// "recieve" is the action key the policy was authored with.
const (
	actionReceive            = "recieve"
	actionRead               = "read"
	actionReceiveWithCaution = "receive_with_caution"

	resourceSupportResponse = "support_response"
	resourceBankingData     = "banking_data"
)

const cautionNote = "CAUTION: This response contains sensitive financial information. Please ensure you're in a private location."

func toolDefinitions() []ports.ToolDefinition {
	return []ports.ToolDefinition{
		{
			Name:        toolVerifyIdentity,
			Description: "Verify if the user has permission to ask this query based on identity verification.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"user_query": map[string]any{
						"type":        "string",
						"description": "The customer's query",
					},
				},
				"required": []string{"user_query"},
			},
		},
		{
			Name:        toolCheckDocs,
			Description: "Look up bank documentation on a topic, restricted to documents the user's security level permits.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"topic": map[string]any{
						"type":        "string",
						"description": "Topic to look up, e.g. account, loan, investment, security",
					},
				},
				"required": []string{"topic"},
			},
		},
		{
			Name:        toolCheckBalance,
			Description: "Check the user's account balance via the secure account store.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        toolVerifyResponse,
			Description: "Verify a draft response for sensitive content and determine whether a caution note is needed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"response_text": map[string]any{
						"type":        "string",
						"description": "The draft response to verify",
					},
				},
				"required": []string{"response_text"},
			},
		},
	}
}

// dispatch runs one tool call. A returned error aborts the query: permission
// denials are not errors, they are content the model must relay.
func (a *Agent) dispatch(ctx context.Context, requestID, userID string, call ports.ToolCall) (ports.ToolResult, error) {
	var (
		content string
		outcome string
		err     error
	)

	switch call.Name {
	case toolVerifyIdentity:
		content, outcome, err = a.verifyIdentity(ctx, userID)
	case toolCheckDocs:
		content, outcome, err = a.checkDocumentation(ctx, userID, stringArg(call.Args, "topic"))
	case toolCheckBalance:
		content, outcome, err = a.checkBalance(ctx, userID)
	case toolVerifyResponse:
		content, outcome, err = a.verifyResponse(ctx, userID, stringArg(call.Args, "response_text"))
	default:
		a.record(requestID, userID, call.Name, "error", "unknown tool")
		return ports.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: fmt.Sprintf("unknown tool %q", call.Name),
			IsError: true,
		}, nil
	}

	if err != nil {
		a.record(requestID, userID, call.Name, "error", err.Error())
		return ports.ToolResult{}, err
	}

	a.record(requestID, userID, call.Name, outcome, "")
	return ports.ToolResult{CallID: call.ID, Name: call.Name, Content: content}, nil
}

func (a *Agent) verifyIdentity(ctx context.Context, userID string) (string, string, error) {
	allowed, err := a.authz.Check(ctx,
		ports.User{
			Key:        userID,
			Attributes: map[string]any{"identity_verified": true},
		},
		actionReceive,
		ports.Resource{Type: resourceSupportResponse},
	)
	if err != nil {
		return "", "", fmt.Errorf("identity check: %w", err)
	}
	if !allowed {
		return "IDENTITY_NOT_VERIFIED: Please verify your identity at " + a.verifyURL, "denied", nil
	}
	return "IDENTITY_VERIFIED: User is permitted to make queries", "allowed", nil
}

func (a *Agent) checkDocumentation(ctx context.Context, userID, topic string) (string, string, error) {
	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return "", "", fmt.Errorf("listing documents: %w", err)
	}

	resources := make([]ports.Resource, len(docs))
	for i, doc := range docs {
		resources[i] = ports.Resource{
			Type: resourceBankingData,
			Key:  doc.ID,
			Attributes: map[string]any{
				"data_type":            string(doc.Type),
				"security_requirement": string(doc.SecurityRequirement),
			},
		}
	}

	allowed, err := a.authz.FilterResources(ctx, ports.User{Key: userID}, actionRead, resources)
	if err != nil {
		return "", "", fmt.Errorf("filtering documents: %w", err)
	}

	allowedIDs := make(map[string]bool, len(allowed))
	for _, r := range allowed {
		allowedIDs[r.Key] = true
	}

	topic = strings.ToLower(strings.TrimSpace(topic))
	for _, doc := range docs {
		if allowedIDs[doc.ID] && strings.Contains(strings.ToLower(string(doc.Type)), topic) {
			return doc.Content, "allowed", nil
		}
	}
	return "No documentation found for this topic or you don't have permission to access it.", "denied", nil
}

func (a *Agent) checkBalance(ctx context.Context, userID string) (string, string, error) {
	allowed, err := a.authz.Check(ctx,
		ports.User{Key: userID},
		actionRead,
		ports.Resource{
			Type: resourceBankingData,
			Attributes: map[string]any{
				"data_type":            "account_info",
				"security_requirement": "standard",
			},
		},
	)
	if err != nil {
		return "", "", fmt.Errorf("balance access check: %w", err)
	}
	if !allowed {
		return "ACCESS_DENIED: You do not have permission to view account balance.", "denied", nil
	}

	acct, err := a.store.GetAccount(ctx, userID)
	if errors.Is(err, ports.ErrAccountNotFound) {
		return "Your current balance is $0.00", "allowed", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("looking up account: %w", err)
	}
	return fmt.Sprintf("Your current balance is $%s", acct.Balance.StringFixed(2)), "allowed", nil
}

func (a *Agent) verifyResponse(ctx context.Context, userID, responseText string) (string, string, error) {
	sensitive := ContainsSensitiveData(responseText)

	needsCaution, err := a.authz.Check(ctx,
		ports.User{Key: userID},
		actionReceiveWithCaution,
		ports.Resource{
			Type: resourceSupportResponse,
			Attributes: map[string]any{
				"contains_account_numbers": sensitive,
			},
		},
	)
	if err != nil {
		return "", "", fmt.Errorf("caution check: %w", err)
	}

	result := map[string]any{
		"approved":                true,
		"contains_sensitive_data": sensitive,
		"caution_note":            "",
	}
	outcome := "allowed"
	if needsCaution && sensitive {
		result["caution_note"] = cautionNote
		outcome = "caution"
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", "", fmt.Errorf("marshaling verification result: %w", err)
	}
	return string(out), outcome, nil
}

func (a *Agent) record(requestID, userID, tool, outcome, detail string) {
	if a.auditor == nil {
		return
	}
	err := a.auditor.Record(audit.Entry{
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
		UserID:    userID,
		Tool:      tool,
		Outcome:   outcome,
		Detail:    detail,
	})
	if err != nil {
		logger.Warn().Err(err).Str("tool", tool).Msg("failed to write audit entry")
	}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	s, _ := args[key].(string)
	return s
}
