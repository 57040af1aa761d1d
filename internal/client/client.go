// Package client talks to the portal API on behalf of the terminal client.
package client

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

	"github.com/google/uuid"

	"github.com/cettopper/exam-portal/internal/model"
)

// Sentinels for the error kinds the API can report. Every error returned by
// Client wraps exactly one of them.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("rate limited")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network failure")
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (%d): %s", e.Code, e.Status, e.Message)
}

// Unwrap maps the status to its sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusConflict:
		return ErrConflict
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status >= 400 && e.Status < 500:
		return ErrValidation
	default:
		return ErrServer
	}
}

// IsAuthError reports whether err means the caller's token is unusable.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRetryable reports whether resending the same request may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer) ||
		errors.Is(err, ErrRateLimited) || errors.Is(err, ErrConflict)
}

// Client is a thin JSON client for /api/v1.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client. baseURL is the server root, e.g. http://localhost:8080.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

// GetTest fetches the answer-free paper of a published test.
func (c *Client) GetTest(ctx context.Context, testID uuid.UUID) (*model.TestPaper, error) {
	var out struct {
		Test *model.TestPaper `json:"test"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests/"+testID.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Test, nil
}

// ListTests lists published tests.
func (c *Client) ListTests(ctx context.Context) ([]model.Test, error) {
	var out struct {
		Tests []model.Test `json:"tests"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/tests", nil, &out); err != nil {
		return nil, err
	}
	return out.Tests, nil
}

// Submit sends a finished attempt for scoring.
func (c *Client) Submit(ctx context.Context, p *model.SubmissionPayload) (*model.SubmissionSummary, error) {
	var out struct {
		Summary *model.SubmissionSummary `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/submit", p, &out); err != nil {
		return nil, err
	}
	return out.Summary, nil
}

// MyResults lists the caller's recorded results.
func (c *Client) MyResults(ctx context.Context) ([]model.ResultListItem, error) {
	var out struct {
		Results []model.ResultListItem `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/user/results", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CreateTest authors a test. Requires an admin token.
func (c *Client) CreateTest(ctx context.Context, req *model.CreateTestRequest) (*model.Test, error) {
	var out struct {
		Test *model.Test `json:"test"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/tests", req, &out); err != nil {
		return nil, err
	}
	return out.Test, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && resp.StatusCode < 300 {
		return fmt.Errorf("%w: decode response: %v", ErrServer, err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Fields = env.Error.Fields
		}
		return apiErr
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", ErrServer, err)
		}
	}
	return nil
}
