// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/app/system/authutil"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/navigation"
	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateTTL = 10 * time.Minute

	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	MsgNotConfigured     = "Google sign-in is not configured."
	MsgInvalidCredential = "Invalid Google credential."
	MsgBadRequest        = "Invalid request body"
)

// SignIn is the provider call both flows end in.
type SignIn interface {
	SignInWithOAuth(ctx context.Context, id identity.OAuthIdentity) (*identity.Session, error)
}

// StateStore holds the one-time OAuth state values.
type StateStore interface {
	Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error
	Validate(ctx context.Context, state string) (returnURL string, valid bool, err error)
}

// IDTokenVerifier checks a Google ID token from the popup flow.
type IDTokenVerifier interface {
	Verify(ctx context.Context, token string) (identity.OAuthIdentity, error)
}

// Viewer reads the viewing session after sign-in.
type Viewer interface {
	Current(ctx context.Context, token string) session.View
}

// Handler handles Google OAuth authentication.
type Handler struct {
	Log        *zap.Logger
	Provider   SignIn
	Viewer     Viewer
	SessionMgr *auth.SessionManager
	StateStore StateStore
	Verifier   IDTokenVerifier // nil disables POST /api/auth/google

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://club.example/auth/google/callback"

	// Endpoint and UserInfoURL default to Google's.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	p SignIn,
	v Viewer,
	sessionMgr *auth.SessionManager,
	stateStore StateStore,
	verifier IDTokenVerifier,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		Provider:     p,
		Viewer:       v,
		SessionMgr:   sessionMgr,
		StateStore:   stateStore,
		Verifier:     verifier,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/auth/google/callback",
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if the redirect flow is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := authutil.NewToken(32)
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	returnURL := navigation.ReturnURL(r, "/")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.StateStore.Save(ctx, state, returnURL, time.Now().UTC().Add(stateTTL)); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches user info and signs the member in.               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", q.Get("error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := q.Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	s, err := h.Provider.SignInWithOAuth(ctx, identity.OAuthIdentity{
		Provider:      models.AuthMethodGoogle,
		Subject:       info.ID,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
	})
	if err != nil {
		h.Log.Info("Google sign-in refused", zap.String("code", identity.Code(err)), zap.Error(err))
		http.Redirect(w, r, "/login?error="+errorParam(err), http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SetToken(w, r, s.Token); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("account_id", s.AccountID))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	h.Log.Info("member signed in via Google OAuth", zap.String("account_id", s.AccountID))
	http.Redirect(w, r, navigation.SafeReturn(returnURL, "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/auth/google                                                        |
| Popup flow: the browser already holds a Google ID token.                     |
*─────────────────────────────────────────────────────────────────────────────*/

type idTokenRequest struct {
	IDToken string `json:"idToken"`
}

func (h *Handler) ServeIDToken(w http.ResponseWriter, r *http.Request) {
	if h.Verifier == nil {
		httpjson.Fail(w, http.StatusServiceUnavailable, MsgNotConfigured)
		return
	}
	var req idTokenRequest
	if err := httpjson.Decode(r, &req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		httpjson.Fail(w, http.StatusBadRequest, MsgBadRequest)
		return
	}

	id, err := h.Verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.Log.Info("Google ID token rejected", zap.Error(err))
		httpjson.Fail(w, http.StatusUnauthorized, MsgInvalidCredential)
		return
	}

	s, err := h.Provider.SignInWithOAuth(r.Context(), id)
	if err != nil {
		status := identity.HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("Google sign-in failed", zap.Error(err))
		}
		httpjson.Fail(w, status, identity.FriendlyMessage(err))
		return
	}
	if err := h.SessionMgr.SetToken(w, r, s.Token); err != nil {
		h.Log.Error("save session failed", zap.Error(err))
		httpjson.Fail(w, http.StatusInternalServerError, identity.GenericMessage)
		return
	}

	var user any
	if v := h.Viewer.Current(r.Context(), s.Token); v.Profile != nil {
		user = v.Profile
	}
	_ = httpjson.Write(w, http.StatusOK, httpjson.Result{Success: true, User: user})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("user info has no id")
	}
	return &info, nil
}

// errorParam turns a sign-in refusal into the ?error= value the login page reads.
func errorParam(err error) string {
	switch identity.Code(err) {
	case identity.CodeWrongDomain:
		return "wrong_domain"
	case identity.CodeUnverifiedEmail:
		return "unverified_email"
	case identity.CodeInvalidEmail:
		return "invalid_email"
	}
	return "internal"
}
