// internal/app/features/authapi/handler.go
package authapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/session"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/ratelimit"
	"github.com/dalemusser/vlsiclub/internal/app/system/validation"
	"go.uber.org/zap"
)

// Provider is the subset of identity.Provider the account endpoints use.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	SignUp(ctx context.Context, email, password, name string) (*identity.Session, error)
	SendVerificationEmail(ctx context.Context, accountID string) error
	VerifyEmail(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Viewer reads and ends viewing sessions. *session.Controller implements it.
type Viewer interface {
	Current(ctx context.Context, token string) session.View
	Logout(ctx context.Context, token string) error
}

const (
	MsgBadRequest   = "Invalid request body"
	MsgPasswordSet  = "Password updated. You can sign in now."
	MsgCookieFailed = "Could not start a session. Please try again."
)

type Handler struct {
	Provider   Provider
	Viewer     Viewer
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.AttemptLimiter // optional
	Log        *zap.Logger
}

func NewHandler(p Provider, v Viewer, sm *auth.SessionManager, limiter *ratelimit.AttemptLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Provider:   p,
		Viewer:     v,
		SessionMgr: sm,
		Limiter:    limiter,
		Log:        logger,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request bodies                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type signupRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpjson.Decode(r, dst); err != nil {
		httpjson.Fail(w, http.StatusBadRequest, MsgBadRequest)
		return false
	}
	if err := validation.Struct(dst); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			httpjson.Fail(w, http.StatusBadRequest, verr.First())
			return false
		}
		httpjson.Fail(w, http.StatusBadRequest, MsgBadRequest)
		return false
	}
	return true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Handlers                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// ServeSignup handles POST /api/auth/signup.
func (h *Handler) ServeSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if h.Limiter != nil && !h.Limiter.Allow(r, email) {
		h.fail(w, &identity.Error{Code: identity.CodeTooManyRequests})
		return
	}

	s, err := h.Provider.SignUp(r.Context(), email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.Provider.SendVerificationEmail(r.Context(), s.AccountID); err != nil {
		// the account exists; the member can ask for another link
		h.Log.Warn("verification email not sent", zap.String("account_id", s.AccountID), zap.Error(err))
	}
	h.signedIn(w, r, s, http.StatusCreated)
}

// ServeLogin handles POST /api/auth/login.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if h.Limiter != nil && !h.Limiter.Allow(r, email) {
		h.Log.Info("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
		h.fail(w, &identity.Error{Code: identity.CodeTooManyRequests})
		return
	}

	s, err := h.Provider.SignInWithPassword(r.Context(), email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	h.signedIn(w, r, s, http.StatusOK)
}

// ServeLogout handles POST /api/auth/logout. The cookie is cleared even
// when the provider could not end the session.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if token := h.SessionMgr.Token(r); token != "" {
		if err := h.Viewer.Logout(r.Context(), token); err != nil {
			h.Log.Warn("sign out failed", zap.Error(err))
		}
	}
	if err := h.SessionMgr.Clear(w, r); err != nil {
		h.Log.Error("logout: save session", zap.Error(err))
	}
	_ = httpjson.Write(w, http.StatusOK, httpjson.Result{Success: true})
}

// ServeVerify handles GET /auth/verify?token=... from the verification email.
func (h *Handler) ServeVerify(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		http.Redirect(w, r, "/login?verified=0", http.StatusSeeOther)
		return
	}
	if err := h.Provider.VerifyEmail(r.Context(), token); err != nil {
		h.Log.Info("email verification failed", zap.String("code", identity.Code(err)), zap.Error(err))
		http.Redirect(w, r, "/login?verified=0", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login?verified=1", http.StatusSeeOther)
}

// ServeReset handles POST /api/auth/reset with the token from a reset link.
func (h *Handler) ServeReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Provider.ConfirmPasswordReset(r.Context(), strings.TrimSpace(req.Token), req.Password); err != nil {
		h.fail(w, err)
		return
	}
	_ = httpjson.Write(w, http.StatusOK, httpjson.Result{Success: true, Message: MsgPasswordSet})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request, s *identity.Session, status int) {
	if err := h.SessionMgr.SetToken(w, r, s.Token); err != nil {
		h.Log.Error("save session cookie", zap.Error(err))
		httpjson.Fail(w, http.StatusInternalServerError, MsgCookieFailed)
		return
	}
	v := h.Viewer.Current(r.Context(), s.Token)
	var user any
	if v.Profile != nil {
		user = v.Profile
	}
	_ = httpjson.Write(w, status, httpjson.Result{Success: true, User: user})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := identity.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("account request failed", zap.Error(err))
	}
	httpjson.Fail(w, status, identity.FriendlyMessage(err))
}
