package cms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{ProjectID: "proj", Dataset: "production", Token: "secret", BaseURL: srv.URL}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_MissingConfig(t *testing.T) {
	cases := []Config{
		{Dataset: "production", Token: "t"},
		{ProjectID: "p", Token: "t"},
		{ProjectID: "p", Dataset: "production"},
		{ProjectID: "  ", Dataset: "production", Token: "t"},
	}
	for _, cfg := range cases {
		if _, err := New(cfg, zap.NewNop()); !errors.Is(err, ErrMissingConfig) {
			t.Errorf("New(%+v): expected ErrMissingConfig, got %v", cfg, err)
		}
	}
}

func TestNew_DerivesHosts(t *testing.T) {
	c, err := New(Config{ProjectID: "abc", Dataset: "production", Token: "t", UseCDN: true}, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if c.queryURL != "https://abc.apicdn.sanity.io/v2021-06-07/data/query/production" {
		t.Errorf("unexpected query url %q", c.queryURL)
	}
	if c.mutateURL != "https://abc.api.sanity.io/v2021-06-07/data/mutate/production" {
		t.Errorf("unexpected mutate url %q", c.mutateURL)
	}
}

func TestQuery_SendsTokenAndReturnsResult(t *testing.T) {
	var gotAuth, gotQuery, gotParam string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		gotParam = r.URL.Query().Get("$type")
		if !strings.HasSuffix(r.URL.Path, "/v2021-06-07/data/query/production") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"ms":3,"query":"x","result":[{"_id":"r1","category":"Tools"}]}`))
	}))

	raw, err := c.Query(context.Background(), `*[_type == $type]`, map[string]any{"type": "resource"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotQuery != `*[_type == $type]` {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotParam != `"resource"` {
		t.Errorf("expected JSON-encoded param, got %q", gotParam)
	}

	var docs []map[string]any
	if err := json.Unmarshal(raw, &docs); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(docs) != 1 || docs[0]["_id"] != "r1" {
		t.Errorf("unexpected result %v", docs)
	}
}

func TestQuery_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"queryParseError","description":"unexpected token"}}`))
	}))

	_, err := c.Query(context.Background(), `*[`, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Type != "queryParseError" {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestQuery_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Query(ctx, `*`, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// fakeRepo applies inc patches under a lock the way the real repository does.
type fakeRepo struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("returnDocuments") != "true" {
		http.Error(w, "expected returnDocuments", http.StatusBadRequest)
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req mutateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	type result struct {
		ID       string         `json:"id"`
		Document map[string]any `json:"document"`
	}
	var results []result
	for _, m := range req.Mutations {
		doc, ok := f.docs[m.Patch.ID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"mutationError","description":"Document not found"}}`))
			return
		}
		for field, by := range m.Patch.Inc {
			n, _ := doc[field].(float64)
			doc[field] = n + float64(by)
		}
		cp := map[string]any{}
		for k, v := range doc {
			cp[k] = v
		}
		results = append(results, result{ID: m.Patch.ID, Document: cp})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"transactionId": "tx", "results": results})
}

func TestIncrement_ReturnsUpdatedDocument(t *testing.T) {
	repo := &fakeRepo{docs: map[string]map[string]any{"t1": {"_id": "t1", "views": float64(5)}}}
	c := newTestClient(t, repo)

	doc, err := c.Increment(context.Background(), "t1", "views", 1)
	if err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	if v, _ := doc.Number("views"); v != 6 {
		t.Errorf("expected views 6, got %v", doc["views"])
	}
}

func TestIncrement_ConcurrentCallersLoseNoUpdates(t *testing.T) {
	repo := &fakeRepo{docs: map[string]map[string]any{"t1": {"_id": "t1", "views": float64(5)}}}
	c := newTestClient(t, repo)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Increment(context.Background(), "t1", "views", 1); err != nil {
				t.Errorf("Increment failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := repo.docs["t1"]["views"]; got != float64(7) {
		t.Errorf("expected views 7, got %v", got)
	}
}

func TestIncrement_MissingDocument(t *testing.T) {
	c := newTestClient(t, &fakeRepo{docs: map[string]map[string]any{}})

	_, err := c.Increment(context.Background(), "nope", "views", 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404 api error, got %v", err)
	}
}

func TestIncrement_EmptyResultsIsNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transactionId":"tx","results":[]}`))
	}))

	if _, err := c.Increment(context.Background(), "x", "views", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestBreaker_OpensAfterRepeatedServerErrors(t *testing.T) {
	var calls int
	var mu sync.Mutex
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 5; i++ {
		if _, err := c.Query(context.Background(), `*`, nil); err == nil {
			t.Fatal("expected upstream error")
		}
	}

	_, err := c.Query(context.Background(), `*`, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable once breaker opens, got %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 5 {
		t.Errorf("expected 5 upstream calls, got %d", calls)
	}
}

func TestBreaker_IgnoresClientErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	for i := 0; i < 7; i++ {
		_, err := c.Query(context.Background(), `*[`, nil)
		if errors.Is(err, ErrUnavailable) {
			t.Fatalf("breaker opened on client errors after %d calls", i)
		}
	}
}
