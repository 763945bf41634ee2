package permit

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

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New("", "http://localhost:7766")
	assert.Error(t, err)

	_, err = New("key", "")
	assert.Error(t, err)

	c, err := New("key", "http://localhost:7766/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7766", c.baseURL)
}

func TestCheck(t *testing.T) {
	var got checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/allowed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(checkResponse{Allow: true})
	}))
	defer srv.Close()

	c, err := New("secret", srv.URL)
	require.NoError(t, err)

	allowed, err := c.Check(context.Background(),
		ports.User{Key: "u@example.com", Attributes: map[string]any{"identity_verified": true}},
		"recieve",
		ports.Resource{Type: "support_response"},
	)
	require.NoError(t, err)
	assert.True(t, allowed)

	assert.Equal(t, "u@example.com", got.User.Key)
	assert.Equal(t, true, got.User.Attributes["identity_verified"])
	assert.Equal(t, "recieve", got.Action)
	assert.Equal(t, "support_response", got.Resource.Type)
	assert.NotNil(t, got.Context)
}

func TestCheck_Deny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkResponse{Allow: false})
	}))
	defer srv.Close()

	c, err := New("secret", srv.URL)
	require.NoError(t, err)

	allowed, err := c.Check(context.Background(), ports.User{Key: "u"}, "read", ports.Resource{Type: "banking_data"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCheck_PDPDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New("secret", srv.URL)
	require.NoError(t, err)

	allowed, err := c.Check(context.Background(), ports.User{Key: "u"}, "read", ports.Resource{Type: "banking_data"})
	assert.ErrorIs(t, err, ErrPDPUnavailable)
	assert.False(t, allowed)
}

func TestFilterResources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/allowed/bulk", r.URL.Path)

		var checks []checkRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&checks))
		require.Len(t, checks, 3)

		// Allow the first and third resources only.
		json.NewEncoder(w).Encode(bulkResponse{Allow: []checkResponse{
			{Allow: true}, {Allow: false}, {Allow: true},
		}})
	}))
	defer srv.Close()

	c, err := New("secret", srv.URL)
	require.NoError(t, err)

	resources := []ports.Resource{
		{Type: "banking_data", Key: "doc_001"},
		{Type: "banking_data", Key: "doc_002"},
		{Type: "banking_data", Key: "doc_003"},
	}
	allowed, err := c.FilterResources(context.Background(), ports.User{Key: "u"}, "read", resources)
	require.NoError(t, err)
	require.Len(t, allowed, 2)
	assert.Equal(t, "doc_001", allowed[0].Key)
	assert.Equal(t, "doc_003", allowed[1].Key)
}

func TestFilterResources_Empty(t *testing.T) {
	c, err := New("secret", "http://localhost:7766")
	require.NoError(t, err)

	allowed, err := c.FilterResources(context.Background(), ports.User{Key: "u"}, "read", nil)
	require.NoError(t, err)
	assert.Empty(t, allowed)
}

func TestFilterResources_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(bulkResponse{Allow: []checkResponse{{Allow: true}}})
	}))
	defer srv.Close()

	c, err := New("secret", srv.URL)
	require.NoError(t, err)

	_, err = c.FilterResources(context.Background(), ports.User{Key: "u"}, "read", []ports.Resource{
		{Type: "banking_data", Key: "a"},
		{Type: "banking_data", Key: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 results for 2 resources")
}
