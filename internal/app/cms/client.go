// Package cms is a client for the Sanity-compatible content repository.
//
// It exposes the two operations the site needs: running a GROQ query and
// applying a relative counter increment to one document. Calls go through
// a circuit breaker so a dead upstream fails fast. Nothing is retried.
package cms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultAPIVersion is the dated API version the queries are written against.
const DefaultAPIVersion = "2021-06-07"

var (
	// ErrMissingConfig is returned by New when project, dataset, or token is empty.
	ErrMissingConfig = errors.New("cms: project id, dataset, and token are required")
	// ErrNotFound is returned by Increment when the document does not exist.
	ErrNotFound = errors.New("cms: document not found")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("cms: content repository unavailable")
)

// APIError is a non-2xx response from the content repository.
type APIError struct {
	Status      int
	Type        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("cms: %d %s: %s", e.Status, e.Type, e.Description)
	}
	return fmt.Sprintf("cms: unexpected status %d", e.Status)
}

// Config configures the client. BaseURL overrides the derived
// https://<project>.api.sanity.io host (used by tests and proxies).
type Config struct {
	ProjectID  string
	Dataset    string
	Token      string
	APIVersion string
	UseCDN     bool
	BaseURL    string
}

// Client talks to the content repository over HTTP.
type Client struct {
	http      *http.Client
	queryURL  string
	mutateURL string
	breaker   *gobreaker.CircuitBreaker[[]byte]
	log       *zap.Logger
}

// New validates cfg and builds a client. A half-configured client is never
// returned.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.Dataset) == "" || strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingConfig
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		host := "api.sanity.io"
		if cfg.UseCDN {
			host = "apicdn.sanity.io"
		}
		base = "https://" + cfg.ProjectID + "." + host
	}
	// Mutations never go through the CDN.
	mutateBase := strings.Replace(base, ".apicdn.sanity.io", ".api.sanity.io", 1)

	// The bearer token is attached by the oauth2 transport so it never
	// appears in request construction code.
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)

	c := &Client{
		http:      httpClient,
		queryURL:  fmt.Sprintf("%s/v%s/data/query/%s", base, version, url.PathEscape(cfg.Dataset)),
		mutateURL: fmt.Sprintf("%s/v%s/data/mutate/%s", mutateBase, version, url.PathEscape(cfg.Dataset)),
		log:       logger,
	}
	c.breaker = newBreaker(logger)
	return c, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Query                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

// Query runs a GROQ query and returns the raw `result` value. params are
// bound as $name query parameters, JSON-encoded.
func (c *Client) Query(ctx context.Context, groq string, params map[string]any) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("query", groq)
	for k, v := range params {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cms: encode param %s: %w", k, err)
		}
		q.Set("$"+k, string(b))
	}

	body, err := c.do(ctx, "query", func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cms: decode query response: %w", err)
	}
	if len(resp.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return resp.Result, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mutate                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type patch struct {
	ID  string         `json:"id"`
	Inc map[string]int `json:"inc"`
}

type mutation struct {
	Patch patch `json:"patch"`
}

type mutateRequest struct {
	Mutations []mutation `json:"mutations"`
}

type mutateResponse struct {
	TransactionID string `json:"transactionId"`
	Results       []struct {
		ID        string          `json:"id"`
		Operation string          `json:"operation"`
		Document  models.Document `json:"document"`
	} `json:"results"`
}

// Increment adds by to a numeric field of one document using the
// repository's native inc patch, so concurrent callers never lose updates.
// It returns the document as it is after the patch.
func (c *Client) Increment(ctx context.Context, id, field string, by int) (models.Document, error) {
	payload, err := json.Marshal(mutateRequest{
		Mutations: []mutation{{Patch: patch{ID: id, Inc: map[string]int{field: by}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("cms: encode mutation: %w", err)
	}

	target := c.mutateURL + "?returnDocuments=true&visibility=sync"
	body, err := c.do(ctx, "mutate", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp mutateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("cms: decode mutate response: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Document == nil {
		return nil, ErrNotFound
	}
	return resp.Results[0].Document, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Transport                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type apiErrorBody struct {
	Error struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, op string, build func(context.Context) (*http.Request, error)) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := build(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("cms: read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode}
			var eb apiErrorBody
			if json.Unmarshal(b, &eb) == nil {
				apiErr.Type = eb.Error.Type
				apiErr.Description = eb.Error.Description
			}
			return nil, apiErr
		}
		return b, nil
	})
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		RequestsTotal.WithLabelValues(op, "ok").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		RequestsTotal.WithLabelValues(op, "rejected").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		RequestsTotal.WithLabelValues(op, "timeout").Inc()
		return nil, fmt.Errorf("cms %s: %w", op, err)
	default:
		RequestsTotal.WithLabelValues(op, "error").Inc()
		return nil, fmt.Errorf("cms %s: %w", op, err)
	}
}
