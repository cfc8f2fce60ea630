// internal/app/features/passwordreset/handler.go
package passwordreset

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/dalemusser/vlsiclub/internal/app/system/inputval"
	"github.com/dalemusser/vlsiclub/internal/app/system/mailer"
	"github.com/dalemusser/vlsiclub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Sender triggers a password reset email.
type Sender interface {
	SendPasswordReset(ctx context.Context, email string) error
}

const (
	MsgSent          = "Password reset email sent! Check your inbox."
	MsgMailMissing   = "Email configuration is missing."
	MsgInvalidEmail  = "Invalid email format. Please check your email."
	MsgUserNotFound  = "No account found with this email."
	MsgTooMany       = "Too many requests. Please try again later."
	MsgNotAllowed    = "Password reset is not enabled. Contact support."
	MsgGenericFailed = "An error occurred. Please try again."
)

// Handler serves POST /api/send-reset-email.
type Handler struct {
	Provider       Sender
	Domain         string
	MailConfigured bool
	Limiter        *ratelimit.AttemptLimiter // optional
	Log            *zap.Logger
}

func NewHandler(p Sender, domain string, mailConfigured bool, limiter *ratelimit.AttemptLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Provider:       p,
		Domain:         domain,
		MailConfigured: mailConfigured,
		Limiter:        limiter,
		Log:            logger,
	}
}

type request struct {
	Email string `json:"email"`
}

func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	var req request
	// an unreadable body is treated as a missing email
	_ = httpjson.Decode(r, &req)
	email := strings.TrimSpace(req.Email)

	if email == "" || !inputval.HasDomain(email, h.Domain) {
		httpjson.Fail(w, http.StatusBadRequest, inputval.DomainMessage(h.Domain))
		return
	}
	if !h.MailConfigured {
		h.Log.Error("password reset requested but mail is not configured")
		httpjson.Fail(w, http.StatusInternalServerError, MsgMailMissing)
		return
	}
	if h.Limiter != nil && !h.Limiter.Allow(r, email) {
		httpjson.Fail(w, http.StatusTooManyRequests, MsgTooMany)
		return
	}

	if err := h.Provider.SendPasswordReset(r.Context(), email); err != nil {
		h.Log.Warn("password reset email failed", zap.String("code", identity.Code(err)), zap.Error(err))
		httpjson.Fail(w, http.StatusInternalServerError, message(err))
		return
	}
	_ = httpjson.Write(w, http.StatusOK, httpjson.Result{Success: true, Message: MsgSent})
}

func message(err error) string {
	if errors.Is(err, mailer.ErrNotConfigured) {
		return MsgMailMissing
	}
	switch identity.Code(err) {
	case identity.CodeInvalidEmail:
		return MsgInvalidEmail
	case identity.CodeUserNotFound:
		return MsgUserNotFound
	case identity.CodeTooManyRequests:
		return MsgTooMany
	case identity.CodeOperationNotAllowed:
		return MsgNotAllowed
	}
	return MsgGenericFailed
}
