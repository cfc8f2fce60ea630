// Package sitefetch is a client for the club site's own JSON endpoints.
// Every failure surfaces as an *Error carrying a message fit to show a
// member. Nothing is retried.
package sitefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	json "github.com/goccy/go-json"
)

const (
	DefaultTimeout = 15 * time.Second
	MinTimeout     = 15 * time.Second
	MaxTimeout     = 30 * time.Second

	maxBody = 8 << 20
)

// Reason classifies a failed fetch.
type Reason string

const (
	ReasonServer  Reason = "server"  // non-2xx, or a 2xx body with an error field
	ReasonNetwork Reason = "network" // transport or decode failure
	ReasonTimeout Reason = "timeout"
)

const (
	MsgLoadFailed = "Failed to load data. Please try again later."
	MsgTimedOut   = "Request timed out. Please try again later."
)

var (
	ErrNoBaseURL    = errors.New("sitefetch: base url is required")
	ErrTimeoutRange = fmt.Errorf("sitefetch: timeout must be between %s and %s", MinTimeout, MaxTimeout)
)

// Error is a failed fetch.
type Error struct {
	Reason  Reason
	Status  int // 0 unless Reason is ReasonServer
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf returns the reason of err, or "" when err is not an *Error.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Config configures a Client. A zero Timeout means DefaultTimeout.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client fetches pages and content from a running server.
type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
}

func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if timeout < MinTimeout || timeout > MaxTimeout {
		return nil, ErrTimeoutRange
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{base: base, timeout: timeout, http: hc}, nil
}

// Timeout returns the per-request limit.
func (c *Client) Timeout() time.Duration { return c.timeout }

/*─────────────────────────────────────────────────────────────────────────────*
| Endpoints                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Content fetches GET /api/content, or one page's collections when page
// is not empty.
func (c *Client) Content(ctx context.Context, page string) (map[string][]models.Document, error) {
	path := "/api/content"
	if page != "" {
		path += "/" + page
	}
	out := map[string][]models.Document{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Page fetches GET /api/pages/{page} into dst, usually one of the
// viewmodel page types.
func (c *Client) Page(ctx context.Context, page string, dst any) error {
	return c.do(ctx, http.MethodGet, "/api/pages/"+page, nil, dst)
}

// Mutate calls POST /api/content/mutate and returns the updated document.
func (c *Client) Mutate(ctx context.Context, id, action string) (models.Document, error) {
	var res struct {
		Success bool            `json:"success"`
		Data    models.Document `json:"data"`
	}
	body := map[string]string{"id": id, "action": action}
	if err := c.do(ctx, http.MethodPost, "/api/content/mutate", body, &res); err != nil {
		return nil, err
	}
	return res.Data, nil
}

// SendResetEmail calls POST /api/send-reset-email and returns the
// server's confirmation message.
func (c *Client) SendResetEmail(ctx context.Context, email string) (string, error) {
	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/send-reset-email", map[string]string{"email": email}, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Transport                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// envelope picks out the failure fields the server may put in any body.
type envelope struct {
	Error   string `json:"error"`
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sitefetch: encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return fmt.Errorf("sitefetch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return transportError(ctx, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Reason: ReasonServer, Status: resp.StatusCode, Message: serverMessage(env, resp.StatusCode)}
	}
	if env.Error != "" {
		return &Error{Reason: ReasonServer, Status: resp.StatusCode, Message: env.Error}
	}
	if env.Success != nil && !*env.Success {
		return &Error{Reason: ReasonServer, Status: resp.StatusCode, Message: serverMessage(env, resp.StatusCode)}
	}

	if dst == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &Error{Reason: ReasonNetwork, Message: MsgLoadFailed, Err: err}
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Reason: ReasonTimeout, Message: MsgTimedOut, Err: err}
	}
	return &Error{Reason: ReasonNetwork, Message: MsgLoadFailed, Err: err}
}

func serverMessage(env envelope, status int) string {
	switch {
	case env.Error != "":
		return env.Error
	case env.Message != "":
		return env.Message
	}
	return fmt.Sprintf("Request failed with status %d", status)
}
