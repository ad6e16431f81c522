package apisvc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/smartpocket/console/core/session"
)

// APIError is raised for any non-2xx response. Message carries the server's
// `message` field when one is present, the HTTP status text otherwise.
type APIError struct {
	Status  int
	Message string
}

func (err *APIError) Error() string {
	return err.Message
}

// Client talks to the remote Smart Pocket auth endpoints. It attaches
// `Authorization: Bearer <token>` whenever a token is supplied; deadlines are
// the caller's responsibility (the session store bounds every call).
type Client struct {
	baseURL string
	http    *http.Client
}

var _ session.Client = (*Client)(nil)

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (c *Client) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, "/auth/profile", token, nil)
}

func (c *Client) Login(ctx context.Context, creds session.Credentials) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/auth/login", "", creds)
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "serializing request body")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response body")
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(res.StatusCode, raw)
	}
	return raw, nil
}

func newAPIError(status int, raw []byte) *APIError {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return &APIError{Status: status, Message: body.Message}
	}
	return &APIError{Status: status, Message: http.StatusText(status)}
}
