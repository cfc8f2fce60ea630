package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"google.golang.org/api/idtoken"
)

// ErrNoClientID is returned when Google sign-in is used without a client id.
var ErrNoClientID = errors.New("identity: google client id is not configured")

// GoogleVerifier checks Google ID tokens from the sign-in popup and turns
// them into an OAuthIdentity.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validate: idtoken.Validate}
}

// Verify validates an ID token's signature, audience and expiry.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (OAuthIdentity, error) {
	if v.clientID == "" {
		return OAuthIdentity{}, ErrNoClientID
	}
	payload, err := v.validate(ctx, token, v.clientID)
	if err != nil {
		return OAuthIdentity{}, &Error{Code: CodeInvalidCredential, Err: fmt.Errorf("while validating ID token: %w", err)}
	}
	return IdentityFromClaims(payload.Subject, payload.Claims), nil
}

// IdentityFromClaims builds an identity from Google's standard claims.
func IdentityFromClaims(subject string, claims map[string]interface{}) OAuthIdentity {
	id := OAuthIdentity{Provider: models.AuthMethodGoogle, Subject: subject}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	switch v := claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = v
	case string:
		id.EmailVerified = v == "true"
	}
	return id
}
