// Package client provides a typed HTTP client for the ExpenseTracker API.
// It keeps the session cookie in a jar. Network and auth failures are
// reported on the error bus it was built with; validation and not-found
// errors are only returned to the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"expensetracker/internal/errbus"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// Client communicates with the ExpenseTracker API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	bus        *errbus.Bus
}

// New creates a client for the server at baseURL (without the /api suffix).
// A nil httpClient gets a default one; a client without a cookie jar gets
// its own jar so the session survives between calls. A nil bus disables
// broadcasting.
func New(baseURL string, httpClient *http.Client, bus *errbus.Bus) (*Client, error) {
	var hc http.Client
	if httpClient != nil {
		hc = *httpClient
	} else {
		hc.Timeout = DefaultTimeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &hc,
		bus:        bus,
	}, nil
}

// request describes one API call.
type request struct {
	op     string
	method string
	path   string
	body   interface{}
	out    interface{}
	// auth marks session and password endpoints, where 400 and 423 are
	// authentication failures rather than bad input.
	auth bool
}

// errorBody mirrors the server's {"error": {...}} envelope.
type errorBody struct {
	Error struct {
		Code    string              `json:"code"`
		Message string              `json:"message"`
		Fields  map[string][]string `json:"fields"`
	} `json:"error"`
}

// do performs r and decodes the response into r.out. Failures are
// classified and broadcast before they are returned.
func (c *Client) do(ctx context.Context, r request) error {
	err := c.roundTrip(ctx, r)
	if err == nil || c.bus == nil || !global(err) {
		return err
	}
	return c.bus.Emit(err)
}

// global reports whether err concerns the whole session rather than the
// submitted form.
func global(err error) bool {
	var netErr *NetworkError
	var authErr *AuthError
	return errors.As(err, &netErr) || errors.As(err, &authErr)
}

func (c *Client) roundTrip(ctx context.Context, r request) error {
	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("%s: marshaling request: %w", r.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", r.op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: r.op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: r.op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if r.out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(data, r.out); err != nil {
			return &NetworkError{Op: r.op, Err: fmt.Errorf("decoding response: %w", err)}
		}
		return nil
	}

	return classify(r, resp.StatusCode, data)
}

// classify turns a non-2xx response into one of the typed errors.
func classify(r request, status int, data []byte) error {
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil || eb.Error.Code == "" {
		return &NetworkError{Op: r.op, Status: status, Err: errors.New(http.StatusText(status))}
	}
	e := eb.Error

	switch {
	case status >= 500:
		return &NetworkError{Op: r.op, Status: status, Err: errors.New(e.Message)}
	case status == http.StatusUnauthorized:
		return &AuthError{Status: status, Code: e.Code, Message: e.Message}
	case r.auth && (status == http.StatusBadRequest || status == http.StatusLocked):
		return &AuthError{Status: status, Code: e.Code, Message: e.Message}
	case status == http.StatusNotFound:
		return &NotFoundError{Code: e.Code, Message: e.Message}
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return &ValidationError{Code: e.Code, Message: e.Message, Fields: e.Fields}
	default:
		return &NetworkError{Op: r.op, Status: status, Err: errors.New(e.Message)}
	}
}
