// Package permit talks to a Permit.io policy decision point over its REST API.
package permit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/samarachi/bank-agent/internal/ports"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "permit").Logger()

// ErrPDPUnavailable means the PDP could not be reached or returned a
// non-success status. It is never treated as an allow.
var ErrPDPUnavailable = errors.New("pdp unavailable")

const defaultTimeout = 10 * time.Second

// Client is an Authorizer backed by a Permit PDP.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a PDP client. baseURL is the PDP address, e.g. "http://localhost:7766".
func New(apiKey, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("permit: missing API key")
	}
	if baseURL == "" {
		return nil, errors.New("permit: missing PDP URL")
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

type checkRequest struct {
	User     ports.User     `json:"user"`
	Action   string         `json:"action"`
	Resource ports.Resource `json:"resource"`
	Context  map[string]any `json:"context"`
}

type checkResponse struct {
	Allow bool `json:"allow"`
}

type bulkResponse struct {
	Allow []checkResponse `json:"allow"`
}

// Check asks the PDP whether user may perform action on resource.
func (c *Client) Check(ctx context.Context, user ports.User, action string, resource ports.Resource) (bool, error) {
	req := checkRequest{
		User:     user,
		Action:   action,
		Resource: resource,
		Context:  map[string]any{},
	}

	var resp checkResponse
	if err := c.post(ctx, "/allowed", req, &resp); err != nil {
		return false, err
	}

	logger.Debug().
		Str("user", user.Key).
		Str("action", action).
		Str("resource_type", resource.Type).
		Bool("allow", resp.Allow).
		Msg("pdp check")

	return resp.Allow, nil
}

// FilterResources bulk-checks the resources and returns the allowed subset
// in input order.
func (c *Client) FilterResources(ctx context.Context, user ports.User, action string, resources []ports.Resource) ([]ports.Resource, error) {
	if len(resources) == 0 {
		return nil, nil
	}

	checks := make([]checkRequest, len(resources))
	for i, r := range resources {
		checks[i] = checkRequest{
			User:     user,
			Action:   action,
			Resource: r,
			Context:  map[string]any{},
		}
	}

	var resp bulkResponse
	if err := c.post(ctx, "/allowed/bulk", checks, &resp); err != nil {
		return nil, err
	}
	if len(resp.Allow) != len(resources) {
		return nil, fmt.Errorf("pdp bulk check returned %d results for %d resources", len(resp.Allow), len(resources))
	}

	var allowed []ports.Resource
	for i, verdict := range resp.Allow {
		if verdict.Allow {
			allowed = append(allowed, resources[i])
		}
	}

	logger.Debug().
		Str("user", user.Key).
		Str("action", action).
		Int("checked", len(resources)).
		Int("allowed", len(allowed)).
		Msg("pdp bulk check")

	return allowed, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling pdp request: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building pdp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("pdp request failed")
		return fmt.Errorf("%w: %v", ErrPDPUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logger.Error().Int("status", resp.StatusCode).Str("path", path).Msg("pdp returned non-OK status")
		return fmt.Errorf("%w: status %d: %s", ErrPDPUnavailable, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding pdp response: %w", err)
	}
	return nil
}
