// Package advice talks to the phase-aware advice service and also provides
// that service.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable matches every advice failure.
var ErrUnavailable = errors.New("advice unavailable")

// Request is the body of POST /advice.
type Request struct {
	Task   string `json:"task"`
	Phase  string `json:"phase"`
	Locale string `json:"locale"`

	// Context is server-side knowledge retrieved for the task.
	Context []Document `json:"-"`
}

// Response is the body returned by POST /advice. Clients only rely on
// Suggestion and Reason.
type Response struct {
	Verdict    string `json:"verdict,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Text picks the suggestion, falling back to the reason.
func (r Response) Text() string {
	if r.Suggestion != "" {
		return r.Suggestion
	}
	return r.Reason
}

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("advice service returned %d: %s", e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool { return target == ErrUnavailable }

// TransportError covers everything that kept a reply from arriving,
// timeouts included.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("advice service unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrUnavailable }

// Advisor is anything that can annotate a task.
type Advisor interface {
	Advise(ctx context.Context, req Request) (Response, error)
}

// Client is the HTTP Advisor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// DefaultTimeout bounds a single advice call.
const DefaultTimeout = 10 * time.Second

// NewClient targets baseURL (e.g. http://127.0.0.1:8000).
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Advise posts req once. Non-2xx replies yield *APIError; anything else
// that fails yields *TransportError.
func (c *Client) Advise(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, &TransportError{Err: err}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/advice", bytes.NewReader(body))
	if err != nil {
		return Response{}, &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, &TransportError{Err: fmt.Errorf("failed to decode advice response: %w", err)}
	}
	return out, nil
}
