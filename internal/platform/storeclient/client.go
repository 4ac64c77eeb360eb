// Package storeclient talks to the record store HTTP API.
package storeclient

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

	"github.com/diagreg/diagreg/internal/app"
	"github.com/diagreg/diagreg/internal/domain/patient"
)

const recordsPath = "/patient-records"

// TransportError is a failed call to the store: the request never completed
// or the store answered with an unexpected status. It matches app.ErrTransport.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == app.ErrTransport }

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient.Timeout = d }
}

// Client implements app.Store over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ app.Store = (*Client)(nil)

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:8000/api/v1.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]patient.Record, error) {
	var out []patient.Record
	if err := c.do(ctx, "list records", http.MethodGet, recordsPath, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []patient.Record{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, n patient.NewRecord) (*patient.Record, error) {
	var out patient.Record
	if err := c.do(ctx, "create record", http.MethodPost, recordsPath, n, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, r patient.Record) (*patient.Record, error) {
	var out patient.Record
	path := recordsPath + "/" + r.ID.String()
	if err := c.do(ctx, "update record", http.MethodPut, path, r, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	path := recordsPath + "/" + id.String()
	return c.do(ctx, "delete record", http.MethodDelete, path, nil, http.StatusNoContent, nil)
}

// do sends one request and decodes the response into out when the status is
// want. 404 becomes patient.ErrNotFound and 400 a *patient.ValidationError.
func (c *Client) do(ctx context.Context, op, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == want:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return patient.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return decodeValidation(resp.Body)
	}

	// Read at most 1KB of an unexpected response for the error.
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &TransportError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Err:        errors.New(strings.TrimSpace(string(msg))),
	}
}

func decodeValidation(r io.Reader) error {
	var body struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil || len(body.Fields) == 0 {
		msg := body.Message
		if msg == "" {
			msg = "invalid request"
		}
		return &patient.ValidationError{Fields: map[string]string{"": msg}}
	}
	return &patient.ValidationError{Fields: body.Fields}
}
