package identity_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/system/mailer"
	"github.com/dalemusser/vlsiclub/internal/testutil/memstores"
	"go.uber.org/zap"
)

type harness struct {
	p        *identity.Local
	accounts *memstores.Accounts
	sessions *memstores.Sessions
	tokens   *memstores.Tokens
	mail     *memstores.Mailer

	mu      sync.Mutex
	changes []identity.Change
}

func newHarness(t *testing.T, requireVerified bool) *harness {
	t.Helper()
	h := &harness{
		accounts: memstores.NewAccounts(),
		sessions: memstores.NewSessions(),
		tokens:   memstores.NewTokens(),
		mail:     &memstores.Mailer{},
	}
	h.p = identity.NewLocal(h.accounts, h.sessions, h.tokens, h.mail, identity.LocalConfig{
		Domain:          "iiitdwd.ac.in",
		RequireVerified: requireVerified,
		BaseURL:         "https://club.example/",
	}, zap.NewNop())
	unsub := h.p.Subscribe(func(c identity.Change) {
		h.mu.Lock()
		h.changes = append(h.changes, c)
		h.mu.Unlock()
	})
	t.Cleanup(unsub)
	return h
}

func (h *harness) lastChange() identity.Change {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.changes) == 0 {
		return identity.Change{}
	}
	return h.changes[len(h.changes)-1]
}

func TestSignUp_EmitsSessionAndRejectsDuplicates(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	s, err := h.p.SignUp(ctx, "ada@iiitdwd.ac.in", "circuit42", "Ada")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if s.EmailVerified {
		t.Error("expected new account to be unverified")
	}
	if c := h.lastChange(); c.Session == nil || c.Token != s.Token {
		t.Errorf("expected session change for %s, got %+v", s.Token, c)
	}

	_, err = h.p.SignUp(ctx, "ADA@iiitdwd.ac.in", "circuit42", "")
	if identity.Code(err) != identity.CodeEmailInUse {
		t.Errorf("expected %s, got %v", identity.CodeEmailInUse, err)
	}
}

func TestSignUp_Validation(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	tests := []struct {
		email, password, code string
	}{
		{"not-an-email", "circuit42", identity.CodeInvalidEmail},
		{"ada@gmail.com", "circuit42", identity.CodeWrongDomain},
		{"ada@iiitdwd.ac.in", "short1", identity.CodeWeakPassword},
		{"ada@iiitdwd.ac.in", "lettersonly", identity.CodeWeakPassword},
	}
	for _, tt := range tests {
		_, err := h.p.SignUp(ctx, tt.email, tt.password, "")
		if identity.Code(err) != tt.code {
			t.Errorf("SignUp(%q, %q): expected %s, got %v", tt.email, tt.password, tt.code, err)
		}
	}

	_, err := h.p.SignUp(ctx, "ada@gmail.com", "circuit42", "")
	if got := identity.FriendlyMessage(err); got != "Please use your college email (@iiitdwd.ac.in)" {
		t.Errorf("expected domain message, got %q", got)
	}
}

func TestSignInWithPassword_RequiresVerifiedEmail(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	s, err := h.p.SignUp(ctx, "bo@iiitdwd.ac.in", "circuit42", "Bo")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if _, err := h.p.SignInWithPassword(ctx, "bo@iiitdwd.ac.in", "circuit42"); identity.Code(err) != identity.CodeUnverifiedEmail {
		t.Fatalf("expected %s, got %v", identity.CodeUnverifiedEmail, err)
	}

	if err := h.p.SendVerificationEmail(ctx, s.AccountID); err != nil {
		t.Fatalf("SendVerificationEmail failed: %v", err)
	}
	msg, ok := h.mail.LastTo("bo@iiitdwd.ac.in")
	if !ok {
		t.Fatal("expected verification email")
	}
	tok := h.tokens.Last["verify_email"]
	if !strings.Contains(msg.TextBody, "https://club.example/auth/verify?token="+tok) {
		t.Errorf("expected verify link in body, got %q", msg.TextBody)
	}

	if err := h.p.VerifyEmail(ctx, tok); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if c := h.lastChange(); c.Session == nil || !c.Session.EmailVerified {
		t.Errorf("expected verified session to be re-announced, got %+v", c)
	}

	if _, err := h.p.SignInWithPassword(ctx, "bo@iiitdwd.ac.in", "circuit42"); err != nil {
		t.Errorf("expected sign-in after verification, got %v", err)
	}
	if err := h.p.VerifyEmail(ctx, tok); identity.Code(err) != identity.CodeInvalidToken {
		t.Errorf("expected reused token to fail with %s, got %v", identity.CodeInvalidToken, err)
	}
}

func TestSignInWithPassword_BadCredentials(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	_, _ = h.p.SignUp(ctx, "cy@iiitdwd.ac.in", "circuit42", "")

	for _, pw := range []string{"wrong123", ""} {
		if _, err := h.p.SignInWithPassword(ctx, "cy@iiitdwd.ac.in", pw); identity.Code(err) != identity.CodeInvalidCredential {
			t.Errorf("password %q: expected %s, got %v", pw, identity.CodeInvalidCredential, err)
		}
	}
	if _, err := h.p.SignInWithPassword(ctx, "nobody@iiitdwd.ac.in", "circuit42"); identity.Code(err) != identity.CodeInvalidCredential {
		t.Errorf("unknown account: expected %s, got %v", identity.CodeInvalidCredential, err)
	}
}

func TestSignOut_EmitsNull(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	s, _ := h.p.SignUp(ctx, "di@iiitdwd.ac.in", "circuit42", "")

	if err := h.p.SignOut(ctx, s.Token); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if c := h.lastChange(); c.Token != s.Token || c.Session != nil {
		t.Errorf("expected null change for %s, got %+v", s.Token, c)
	}
	if _, err := h.p.Resume(ctx, s.Token); identity.Code(err) != identity.CodeExpiredToken {
		t.Errorf("expected %s after sign-out, got %v", identity.CodeExpiredToken, err)
	}
}

func TestExpireSessions(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	s, _ := h.p.SignUp(ctx, "ed@iiitdwd.ac.in", "circuit42", "")
	h.sessions.Expire(s.Token)

	n, err := h.p.ExpireSessions(ctx)
	if err != nil {
		t.Fatalf("ExpireSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}
	if c := h.lastChange(); c.Token != s.Token || c.Session != nil {
		t.Errorf("expected null change for expired session, got %+v", c)
	}
}

func TestPasswordReset_EndsSessions(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	s, _ := h.p.SignUp(ctx, "fay@iiitdwd.ac.in", "circuit42", "")

	if err := h.p.SendPasswordReset(ctx, "fay@iiitdwd.ac.in"); err != nil {
		t.Fatalf("SendPasswordReset failed: %v", err)
	}
	msg, ok := h.mail.LastTo("fay@iiitdwd.ac.in")
	if !ok || msg.Subject != "Password Reset Request" {
		t.Fatalf("expected reset email, got %+v", msg)
	}

	tok := h.tokens.Last["password_reset"]
	if err := h.p.ConfirmPasswordReset(ctx, tok, "weak"); identity.Code(err) != identity.CodeWeakPassword {
		t.Errorf("expected %s, got %v", identity.CodeWeakPassword, err)
	}
	if err := h.p.ConfirmPasswordReset(ctx, tok, "newcircuit9"); err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if c := h.lastChange(); c.Token != s.Token || c.Session != nil {
		t.Errorf("expected old session ended, got %+v", c)
	}
	if _, err := h.p.SignInWithPassword(ctx, "fay@iiitdwd.ac.in", "newcircuit9"); err != nil {
		t.Errorf("expected sign-in with new password, got %v", err)
	}
}

func TestSendPasswordReset_Errors(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	if err := h.p.SendPasswordReset(ctx, "nobody@iiitdwd.ac.in"); identity.Code(err) != identity.CodeUserNotFound {
		t.Errorf("expected %s, got %v", identity.CodeUserNotFound, err)
	}
	if err := h.p.SendPasswordReset(ctx, "bad"); identity.Code(err) != identity.CodeInvalidEmail {
		t.Errorf("expected %s, got %v", identity.CodeInvalidEmail, err)
	}

	noMail := identity.NewLocal(h.accounts, h.sessions, h.tokens, nil, identity.LocalConfig{}, zap.NewNop())
	if err := noMail.SendPasswordReset(ctx, "x@iiitdwd.ac.in"); !errors.Is(err, mailer.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSignInWithOAuth_LinksExistingAccount(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	up, _ := h.p.SignUp(ctx, "gus@iiitdwd.ac.in", "circuit42", "")

	s, err := h.p.SignInWithOAuth(ctx, identity.OAuthIdentity{
		Provider: "google", Subject: "sub-9", Email: "gus@iiitdwd.ac.in", EmailVerified: true, Name: "Gus",
	})
	if err != nil {
		t.Fatalf("SignInWithOAuth failed: %v", err)
	}
	if s.AccountID != up.AccountID {
		t.Errorf("expected linked account %s, got %s", up.AccountID, s.AccountID)
	}
	if !s.EmailVerified {
		t.Error("expected Google sign-in to verify the email")
	}

	if _, err := h.p.SignInWithPassword(ctx, "gus@iiitdwd.ac.in", "circuit42"); err != nil {
		t.Errorf("expected password sign-in after Google link, got %v", err)
	}
}

func TestSignInWithOAuth_Rejects(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.p.SignInWithOAuth(ctx, identity.OAuthIdentity{Provider: "google", Subject: "s", Email: "x@gmail.com", EmailVerified: true})
	if identity.Code(err) != identity.CodeWrongDomain {
		t.Errorf("expected %s, got %v", identity.CodeWrongDomain, err)
	}
	_, err = h.p.SignInWithOAuth(ctx, identity.OAuthIdentity{Provider: "google", Subject: "s", Email: "x@iiitdwd.ac.in"})
	if identity.Code(err) != identity.CodeUnverifiedEmail {
		t.Errorf("expected %s, got %v", identity.CodeUnverifiedEmail, err)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	var calls int
	unsub := h.p.Subscribe(func(identity.Change) { calls++ })
	_, _ = h.p.SignUp(ctx, "hal@iiitdwd.ac.in", "circuit42", "")
	unsub()
	unsub()
	_, _ = h.p.SignInWithPassword(ctx, "hal@iiitdwd.ac.in", "circuit42")

	if calls != 1 {
		t.Errorf("expected 1 call before unsubscribe, got %d", calls)
	}
}

func TestResume_ExpiredSession(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	s, _ := h.p.SignUp(ctx, "ivy@iiitdwd.ac.in", "circuit42", "")
	h.sessions.Now = func() time.Time { return time.Now().Add(30 * 24 * time.Hour) }

	if _, err := h.p.Resume(ctx, s.Token); identity.Code(err) != identity.CodeExpiredToken {
		t.Errorf("expected %s, got %v", identity.CodeExpiredToken, err)
	}
}
