package profile_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/features/profile"
	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/dalemusser/vlsiclub/internal/testutil/memstores"
	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

type fixture struct {
	h        *profile.Handler
	profiles *memstores.Profiles
	cookies  []*http.Cookie
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memstores.NewProfiles())
}

func newFixtureWith(t *testing.T, store *memstores.Profiles) *fixture {
	t.Helper()
	provider := identity.NewLocal(memstores.NewAccounts(), memstores.NewSessions(), memstores.NewTokens(),
		&memstores.Mailer{}, identity.LocalConfig{Domain: "iiitdwd.ac.in"}, zap.NewNop())
	ctrl := session.New(provider, store, zap.NewNop())
	ctrl.Start(context.Background())
	t.Cleanup(ctrl.Close)

	sm, err := auth.NewSessionManager(strings.Repeat("s", 32), "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	s, err := provider.SignUp(context.Background(), "grace@iiitdwd.ac.in", "compiler1", "Grace")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := sm.SetToken(rec, httptest.NewRequest(http.MethodGet, "/", nil), s.Token); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	return &fixture{
		h:        profile.NewHandler(ctrl, sm, zap.NewNop()),
		profiles: store,
		cookies:  rec.Result().Cookies(),
	}
}

type body struct {
	State string          `json:"state"`
	User  *models.Profile `json:"user"`
	Error string          `json:"error"`
}

func do(handler http.HandlerFunc, method, payload string, cookies []*http.Cookie) (int, body) {
	req := httptest.NewRequest(method, "/api/profile", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	var b body
	_ = json.Unmarshal(rec.Body.Bytes(), &b)
	return rec.Code, b
}

func TestServeProfile(t *testing.T) {
	f := newFixture(t)

	code, b := do(f.h.ServeProfile, http.MethodGet, "", nil)
	if code != http.StatusUnauthorized || b.Error != profile.MsgUnauthorized {
		t.Errorf("expected 401 without cookie, got %d %+v", code, b)
	}

	code, b = do(f.h.ServeProfile, http.MethodGet, "", f.cookies)
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if b.State != string(session.StateAuthenticated) || b.User == nil {
		t.Fatalf("expected authenticated view, got %+v", b)
	}
	if b.User.Name != "Grace" || b.User.Role != models.DefaultRole {
		t.Errorf("unexpected profile: %+v", b.User)
	}
}

func TestHandleUpdate(t *testing.T) {
	f := newFixture(t)

	code, b := do(f.h.HandleUpdate, http.MethodPatch,
		`{"bio":"<b>Loves</b> layout","department":" ECE ","interests":["VLSI"," ","FPGA"]}`, f.cookies)
	if code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %+v", http.StatusOK, code, b)
	}
	if b.User.Bio != "Loves layout" || b.User.Department != "ECE" {
		t.Errorf("expected sanitized fields, got bio=%q department=%q", b.User.Bio, b.User.Department)
	}
	if diff := cmp.Diff([]string{"VLSI", "FPGA"}, b.User.Interests); diff != "" {
		t.Errorf("interests mismatch (-want +got):\n%s", diff)
	}
	if f.profiles.Merges != 1 {
		t.Errorf("expected 1 merge, got %d", f.profiles.Merges)
	}

	// a later read sees the merged fields
	_, b = do(f.h.ServeProfile, http.MethodGet, "", f.cookies)
	if b.User.Department != "ECE" {
		t.Errorf("expected cached department ECE, got %q", b.User.Department)
	}
}

func TestHandleUpdate_ProfileUnavailable(t *testing.T) {
	store := memstores.NewProfiles()
	store.Err = errors.New("store down")
	f := newFixtureWith(t, store)

	code, b := do(f.h.HandleUpdate, http.MethodPatch, `{"bio":"x"}`, f.cookies)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d: %+v", http.StatusServiceUnavailable, code, b)
	}
	if b.Error != profile.MsgLoading {
		t.Errorf("expected %q, got %q", profile.MsgLoading, b.Error)
	}
	if store.Merges != 0 {
		t.Errorf("expected no merge, got %d", store.Merges)
	}
}

func TestHandleUpdate_Rejects(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		payload string
		cookies []*http.Cookie
		status  int
	}{
		{"bad json", `{`, f.cookies, http.StatusBadRequest},
		{"empty", `{}`, f.cookies, http.StatusBadRequest},
		{"blank name", `{"name":"   "}`, f.cookies, http.StatusBadRequest},
		{"long year", `{"year":"` + strings.Repeat("9", 21) + `"}`, f.cookies, http.StatusBadRequest},
		{"signed out", `{"bio":"hi"}`, nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		code, _ := do(f.h.HandleUpdate, http.MethodPatch, tt.payload, tt.cookies)
		if code != tt.status {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.status, code)
		}
	}
	if f.profiles.Merges != 0 {
		t.Errorf("expected no merges, got %d", f.profiles.Merges)
	}
}
