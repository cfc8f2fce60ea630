// Package identity defines the identity provider contract the rest of the
// server consumes, and its error vocabulary.
package identity

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Session is a live sign-in.
type Session struct {
	Token         string
	AccountID     string
	Email         string
	EmailVerified bool
	DisplayName   string
	ExpiresAt     time.Time
}

// Change is one event on the session stream. A nil Session means the
// session identified by Token ended.
type Change struct {
	Token   string
	Session *Session
}

// OAuthIdentity is a verified third-party identity.
type OAuthIdentity struct {
	Provider      string // "google"
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// Provider manages credentials and sessions.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignInWithOAuth(ctx context.Context, id OAuthIdentity) (*Session, error)
	SignUp(ctx context.Context, email, password, name string) (*Session, error)
	SendVerificationEmail(ctx context.Context, accountID string) error
	SignOut(ctx context.Context, token string) error
	// Subscribe registers fn for session changes and returns a function
	// that removes it.
	Subscribe(fn func(Change)) (unsubscribe func())
	SendPasswordReset(ctx context.Context, email string) error

	// Resume re-announces a still-valid session on the stream.
	Resume(ctx context.Context, token string) (*Session, error)
	VerifyEmail(ctx context.Context, token string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	ExpireSessions(ctx context.Context) (int, error)
}

// Error codes.
const (
	CodeInvalidCredential   = "auth/invalid-credential"
	CodeWrongDomain         = "auth/wrong-domain"
	CodeUnverifiedEmail     = "auth/unverified-email"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeEmailInUse          = "auth/email-already-in-use"
	CodeWeakPassword        = "auth/weak-password"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeUserNotFound        = "auth/user-not-found"
	CodeOperationNotAllowed = "auth/operation-not-allowed"
	CodeExpiredToken        = "auth/expired-token"
	CodeInvalidToken        = "auth/invalid-token"
)

// GenericMessage is shown for any error without a mapped message.
const GenericMessage = "An error occurred. Please try again."

var messages = map[string]string{
	CodeInvalidCredential:   "Invalid email or password.",
	CodeWrongDomain:         "Please use your college email.",
	CodeUnverifiedEmail:     "Please verify your email before signing in. Check your inbox for the link.",
	CodeTooManyRequests:     "Too many requests. Please try again later.",
	CodeEmailInUse:          "An account with this email already exists.",
	CodeWeakPassword:        "Password must be at least 8 characters and contain a letter and a number.",
	CodeInvalidEmail:        "Invalid email format. Please check your email.",
	CodeUserNotFound:        "No account found with this email.",
	CodeOperationNotAllowed: "This operation is not enabled. Contact support.",
	CodeExpiredToken:        "Your session has expired. Please sign in again.",
	CodeInvalidToken:        "This link is invalid or has expired.",
}

// Error is a provider failure with a stable code.
type Error struct {
	Code    string
	Message string // overrides the default message when set
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code string) *Error { return &Error{Code: code} }

// Code returns the provider code of err, or "" if err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// FriendlyMessage maps err to the text shown to users.
func FriendlyMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return GenericMessage
	}
	if e.Message != "" {
		return e.Message
	}
	if m, ok := messages[e.Code]; ok {
		return m
	}
	return GenericMessage
}

// HTTPStatus maps err to the status the account endpoints reply with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeInvalidCredential:
		return http.StatusUnauthorized
	case CodeUnverifiedEmail, CodeOperationNotAllowed:
		return http.StatusForbidden
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeWrongDomain, CodeInvalidEmail, CodeWeakPassword, CodeInvalidToken, CodeExpiredToken:
		return http.StatusBadRequest
	case CodeUserNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
