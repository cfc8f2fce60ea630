package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/vlsiclub/internal/app/features/health"
	"github.com/dalemusser/vlsiclub/internal/testutil"
	json "github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context, *readpref.ReadPref) error { return s.err }

type stubBreaker string

func (s stubBreaker) BreakerState() string { return string(s) }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	CMS      string `json:"cms"`
	Message  string `json:"message"`
	Error    string `json:"error"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest("GET", "/health", nil))
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_OK(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(stubPinger{}, stubBreaker("closed"), zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	if resp.Status != "ok" || resp.Database != "connected" || resp.CMS != "closed" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(stubPinger{err: errors.New("no reachable servers")}, nil, zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" || resp.Message != "Database unavailable" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Error != "no reachable servers" {
		t.Errorf("expected ping error in body, got %q", resp.Error)
	}
	if resp.CMS != "" {
		t.Errorf("expected no cms field without a reporter, got %q", resp.CMS)
	}
}

func TestServe_RealDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	rec, _ := serve(t, health.NewHandler(db.Client(), nil, zap.NewNop()))
	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
