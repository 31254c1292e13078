package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient drives an http.Handler in-process with a bearer token.
type APIClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

// NewAPIClient creates a client for handler. An empty token sends no
// Authorization header.
func NewAPIClient(t *testing.T, handler http.Handler, token string) *APIClient {
	return &APIClient{t: t, handler: handler, token: token}
}

// WithToken returns a client for the same handler acting as another caller.
func (c *APIClient) WithToken(token string) *APIClient {
	return &APIClient{t: c.t, handler: c.handler, token: token}
}

// APIResponse is a recorded response.
type APIResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Envelope is the JSON body every API response carries.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Total      int64 `json:"total"`
		Page       int   `json:"page"`
		PageSize   int   `json:"page_size"`
		TotalPages int   `json:"total_pages"`
	} `json:"meta"`
}

// Do sends a request. A string body is sent as-is, anything else is
// marshalled to JSON.
func (c *APIClient) Do(method, path string, body interface{}) *APIResponse {
	c.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err, "Failed to marshal request body")
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return &APIResponse{Status: w.Code, Header: w.Header(), Body: w.Body.Bytes()}
}

// Envelope decodes the response body.
func (r *APIResponse) Envelope(t *testing.T) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(r.Body, &env), "body: %s", r.Body)
	return env
}

// DecodeData decodes the data member of a successful response into T.
func DecodeData[T any](t *testing.T, r *APIResponse) T {
	t.Helper()
	env := r.Envelope(t)
	require.True(t, env.Success, "expected success, got %d: %s", r.Status, r.Body)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

// AssertStatus checks the status code and prints the body on mismatch.
func (r *APIResponse) AssertStatus(t *testing.T, status int) bool {
	t.Helper()
	return assert.Equal(t, status, r.Status, "body: %s", r.Body)
}

// AssertErrorCode checks the status code and the error code of a failed
// response.
func (r *APIResponse) AssertErrorCode(t *testing.T, status int, code string) {
	t.Helper()
	if !r.AssertStatus(t, status) {
		return
	}
	env := r.Envelope(t)
	assert.False(t, env.Success)
	if assert.NotNil(t, env.Error) {
		assert.Equal(t, code, env.Error.Code)
	}
}
