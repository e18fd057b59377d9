// Package client talks to an authz server over its HTTP API.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/femto-apps/authz/models"
	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every request when Config.Timeout is zero
const DefaultTimeout = 10 * time.Second

const (
	statementPath  = "/api/v1/statement"
	authorisedPath = "/api/v1/authorised"
)

// ErrMissingURL is returned by New when no server URL is configured
var ErrMissingURL = errors.New("authz client: server URL is required")

// Config holds the client settings
type Config struct {
	URL        string        // server base URL, e.g. http://localhost:9031
	Credential string        // shared key or scoped token, sent as a bearer credential
	Timeout    time.Duration // per request; DefaultTimeout when zero
}

// Client registers statements and asks for authorisation decisions.
// It is safe for concurrent use.
type Client struct {
	rest *resty.Client
}

// TransportError reports a network failure or a non-2xx response.
// Body carries the raw response body when one was received.
type TransportError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		if e.StatusCode != 0 {
			return fmt.Sprintf("authz client: status %d: %v", e.StatusCode, e.Err)
		}
		return fmt.Sprintf("authz client: request failed: %v", e.Err)
	}
	return fmt.Sprintf("authz client: unexpected status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// New creates a Client for the server at cfg.URL
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.Credential != "" {
		rest.SetAuthToken(cfg.Credential)
	}

	return &Client{rest: rest}, nil
}

// RegisterStatement registers a single statement
func (c *Client) RegisterStatement(ctx context.Context, statement models.Statement) (*models.RegistrationResult, error) {
	var result models.RegistrationResult
	if err := c.post(ctx, statementPath, statement, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RegisterStatements registers statements in order as one batch
func (c *Client) RegisterStatements(ctx context.Context, statements []models.Statement) (*models.RegistrationResult, error) {
	if statements == nil {
		statements = []models.Statement{}
	}
	var result models.RegistrationResult
	if err := c.post(ctx, statementPath, statements, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Authorised asks whether user may perform action on resource
func (c *Client) Authorised(ctx context.Context, resource, user map[string]any, action string) (*models.AuthorizationDecision, error) {
	req := models.AuthorizationRequest{
		Resource: resource,
		User:     user,
		Action:   action,
	}
	var decision models.AuthorizationDecision
	if err := c.post(ctx, authorisedPath, req, &decision); err != nil {
		return nil, err
	}
	return &decision, nil
}

// post sends one request; there is no retry
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		transportErr := &TransportError{Err: err}
		if resp != nil && resp.RawResponse != nil {
			transportErr.StatusCode = resp.StatusCode()
			transportErr.Body = resp.Body()
		}
		return transportErr
	}
	if !resp.IsSuccess() {
		return &TransportError{StatusCode: resp.StatusCode(), Body: resp.Body()}
	}
	return nil
}
