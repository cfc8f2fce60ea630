package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/store/accounts"
	"github.com/dalemusser/vlsiclub/internal/app/store/authtokens"
	"github.com/dalemusser/vlsiclub/internal/app/store/identitysessions"
	"github.com/dalemusser/vlsiclub/internal/app/system/authutil"
	"github.com/dalemusser/vlsiclub/internal/app/system/inputval"
	"github.com/dalemusser/vlsiclub/internal/app/system/mailer"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"go.uber.org/zap"
)

// AccountStore is the subset of accounts.Store the provider needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByGoogleID(ctx context.Context, sub string) (*models.Account, error)
	LinkGoogle(ctx context.Context, id, sub string) error
	MarkVerified(ctx context.Context, id string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
}

// SessionStore is the subset of identitysessions.Store the provider needs.
type SessionStore interface {
	Create(ctx context.Context, rec identitysessions.Record) error
	Get(ctx context.Context, token string) (*identitysessions.Record, error)
	Delete(ctx context.Context, token string) (bool, error)
	TokensForAccount(ctx context.Context, accountID string) ([]string, error)
	DeleteExpired(ctx context.Context, limit int64) ([]string, error)
}

// TokenStore is the subset of authtokens.Store the provider needs.
type TokenStore interface {
	Issue(ctx context.Context, purpose, accountID string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, purpose, plain string) (string, error)
}

// LocalConfig tunes the local provider.
type LocalConfig struct {
	Domain          string        // institutional email domain, e.g. "iiitdwd.ac.in"
	RequireVerified bool          // password sign-in needs a verified email
	SessionTTL      time.Duration // lifetime of a sign-in
	VerifyTTL       time.Duration
	ResetTTL        time.Duration
	BaseURL         string // public site URL used in emailed links
	SiteName        string
}

// expireBatch bounds how many sessions one ExpireSessions call removes.
const expireBatch = 500

// Local is a Provider backed by the server's own MongoDB collections.
// Session changes are delivered synchronously to subscribers on the
// goroutine that caused them.
type Local struct {
	accounts AccountStore
	sessions SessionStore
	tokens   TokenStore
	mail     mailer.Sender
	cfg      LocalConfig
	log      *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// NewLocal creates a local provider. mail may be nil, in which case email
// operations fail with mailer.ErrNotConfigured.
func NewLocal(a AccountStore, s SessionStore, t TokenStore, mail mailer.Sender, cfg LocalConfig, logger *zap.Logger) *Local {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 14 * 24 * time.Hour
	}
	if cfg.VerifyTTL <= 0 {
		cfg.VerifyTTL = 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "VLSI Club"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Local{
		accounts: a,
		sessions: s,
		tokens:   t,
		mail:     mail,
		cfg:      cfg,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
		subs:     map[int]func(Change){},
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session stream                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

func (p *Local) Subscribe(fn func(Change)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

func (p *Local) emit(c Change) {
	p.mu.Lock()
	fns := make([]func(Change), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-in                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (p *Local) checkEmail(email string) error {
	if !inputval.IsValidEmail(email) {
		return newError(CodeInvalidEmail)
	}
	if !inputval.HasDomain(email, p.cfg.Domain) {
		return &Error{Code: CodeWrongDomain, Message: inputval.DomainMessage(p.cfg.Domain)}
	}
	return nil
}

func (p *Local) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if err := p.checkEmail(email); err != nil {
		return nil, err
	}
	acct, err := p.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, newError(CodeInvalidCredential)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := authutil.CheckPassword(acct.PasswordHash, password); err != nil {
		return nil, newError(CodeInvalidCredential)
	}
	if p.cfg.RequireVerified && !acct.EmailVerified {
		return nil, newError(CodeUnverifiedEmail)
	}
	return p.startSession(ctx, acct, models.AuthMethodPassword)
}

func (p *Local) SignUp(ctx context.Context, email, password, name string) (*Session, error) {
	if err := p.checkEmail(email); err != nil {
		return nil, err
	}
	if msg := inputval.Password(password); msg != "" {
		return nil, &Error{Code: CodeWeakPassword, Message: msg}
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acct := &models.Account{
		Email:        email,
		DisplayName:  strings.TrimSpace(name),
		PasswordHash: hash,
	}
	if err := p.accounts.Create(ctx, acct); err != nil {
		if errors.Is(err, accounts.ErrDuplicateEmail) {
			return nil, newError(CodeEmailInUse)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	p.log.Info("account created", zap.String("account_id", acct.ID))
	return p.startSession(ctx, acct, models.AuthMethodPassword)
}

// SignInWithOAuth signs in a verified third-party identity, linking it to
// an existing account with the same email or creating a new one.
func (p *Local) SignInWithOAuth(ctx context.Context, id OAuthIdentity) (*Session, error) {
	if id.Subject == "" || !id.EmailVerified {
		return nil, newError(CodeUnverifiedEmail)
	}
	if err := p.checkEmail(id.Email); err != nil {
		return nil, err
	}

	acct, err := p.accounts.GetByGoogleID(ctx, id.Subject)
	if errors.Is(err, accounts.ErrNotFound) {
		acct, err = p.linkOrCreate(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return p.startSession(ctx, acct, id.Provider)
}

func (p *Local) linkOrCreate(ctx context.Context, id OAuthIdentity) (*models.Account, error) {
	acct, err := p.accounts.GetByEmail(ctx, id.Email)
	switch {
	case err == nil:
		if err := p.accounts.LinkGoogle(ctx, acct.ID, id.Subject); err != nil {
			return nil, fmt.Errorf("link google: %w", err)
		}
		acct.GoogleID = id.Subject
		acct.EmailVerified = true
		return acct, nil
	case errors.Is(err, accounts.ErrNotFound):
		acct = &models.Account{
			Email:         id.Email,
			DisplayName:   id.Name,
			EmailVerified: true,
			GoogleID:      id.Subject,
		}
		if err := p.accounts.Create(ctx, acct); err != nil {
			return nil, fmt.Errorf("create account: %w", err)
		}
		p.log.Info("account created", zap.String("account_id", acct.ID), zap.String("provider", id.Provider))
		return acct, nil
	default:
		return nil, fmt.Errorf("load account: %w", err)
	}
}

func (p *Local) startSession(ctx context.Context, acct *models.Account, via string) (*Session, error) {
	tok, err := authutil.NewToken(32)
	if err != nil {
		return nil, err
	}
	now := p.now()
	rec := identitysessions.Record{
		Token:     tok,
		AccountID: acct.ID,
		Provider:  via,
		CreatedAt: now,
		ExpiresAt: now.Add(p.cfg.SessionTTL),
	}
	if err := p.sessions.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s := sessionFor(rec, acct)
	p.emit(Change{Token: tok, Session: s})
	return s, nil
}

func sessionFor(rec identitysessions.Record, acct *models.Account) *Session {
	return &Session{
		Token:         rec.Token,
		AccountID:     acct.ID,
		Email:         acct.Email,
		EmailVerified: acct.EmailVerified,
		DisplayName:   acct.DisplayName,
		ExpiresAt:     rec.ExpiresAt,
	}
}

// Resume re-emits the session for a token issued before this process started.
func (p *Local) Resume(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, newError(CodeExpiredToken)
	}
	rec, err := p.sessions.Get(ctx, token)
	if errors.Is(err, identitysessions.ErrNotFound) {
		return nil, newError(CodeExpiredToken)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	acct, err := p.accounts.GetByID(ctx, rec.AccountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, newError(CodeExpiredToken)
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	s := sessionFor(*rec, acct)
	p.emit(Change{Token: token, Session: s})
	return s, nil
}

// SignOut ends a session. Signing out an unknown token is not an error.
func (p *Local) SignOut(ctx context.Context, token string) error {
	removed, err := p.sessions.Delete(ctx, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if removed {
		p.emit(Change{Token: token})
	}
	return nil
}

// ExpireSessions deletes sessions past their expiry and announces each.
func (p *Local) ExpireSessions(ctx context.Context) (int, error) {
	tokens, err := p.sessions.DeleteExpired(ctx, expireBatch)
	for _, t := range tokens {
		p.emit(Change{Token: t})
	}
	if err != nil {
		return len(tokens), fmt.Errorf("expire sessions: %w", err)
	}
	return len(tokens), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Email links                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (p *Local) SendVerificationEmail(ctx context.Context, accountID string) error {
	acct, err := p.accounts.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return newError(CodeUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if acct.EmailVerified {
		return nil
	}
	if p.mail == nil {
		return mailer.ErrNotConfigured
	}
	tok, err := p.tokens.Issue(ctx, authtokens.PurposeVerifyEmail, acct.ID, p.cfg.VerifyTTL)
	if err != nil {
		return fmt.Errorf("issue verify token: %w", err)
	}
	msg := mailer.BuildVerificationEmail(mailer.LinkEmailData{
		SiteName:  p.cfg.SiteName,
		Link:      p.cfg.BaseURL + "/auth/verify?token=" + tok,
		ExpiresIn: humanDuration(p.cfg.VerifyTTL),
	})
	msg.To = acct.Email
	if err := p.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (p *Local) SendPasswordReset(ctx context.Context, email string) error {
	if !inputval.IsValidEmail(email) {
		return newError(CodeInvalidEmail)
	}
	if p.mail == nil {
		return mailer.ErrNotConfigured
	}
	acct, err := p.accounts.GetByEmail(ctx, email)
	if errors.Is(err, accounts.ErrNotFound) {
		return newError(CodeUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	tok, err := p.tokens.Issue(ctx, authtokens.PurposePasswordReset, acct.ID, p.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	msg := mailer.BuildPasswordResetEmail(mailer.LinkEmailData{
		SiteName:  p.cfg.SiteName,
		Link:      p.cfg.BaseURL + "/reset-password?token=" + tok,
		ExpiresIn: humanDuration(p.cfg.ResetTTL),
	})
	msg.To = acct.Email
	if err := p.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	return nil
}

// VerifyEmail redeems a verification link and re-announces the account's
// live sessions with the verified flag set.
func (p *Local) VerifyEmail(ctx context.Context, token string) error {
	accountID, err := p.tokens.Consume(ctx, authtokens.PurposeVerifyEmail, token)
	if errors.Is(err, authtokens.ErrNotFound) {
		return newError(CodeInvalidToken)
	}
	if err != nil {
		return fmt.Errorf("consume verify token: %w", err)
	}
	if err := p.accounts.MarkVerified(ctx, accountID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	tokens, err := p.sessions.TokensForAccount(ctx, accountID)
	if err != nil {
		p.log.Warn("list sessions after verify failed", zap.String("account_id", accountID), zap.Error(err))
		return nil
	}
	for _, t := range tokens {
		if _, err := p.Resume(ctx, t); err != nil {
			p.log.Warn("refresh session after verify failed", zap.Error(err))
		}
	}
	return nil
}

// ConfirmPasswordReset sets a new password from a reset link. Every live
// session of the account is ended.
func (p *Local) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if msg := inputval.Password(newPassword); msg != "" {
		return &Error{Code: CodeWeakPassword, Message: msg}
	}
	accountID, err := p.tokens.Consume(ctx, authtokens.PurposePasswordReset, token)
	if errors.Is(err, authtokens.ErrNotFound) {
		return newError(CodeInvalidToken)
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	hash, err := authutil.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := p.accounts.SetPasswordHash(ctx, accountID, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	// the reset link was delivered to the address, which proves it
	if err := p.accounts.MarkVerified(ctx, accountID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	tokens, err := p.sessions.TokensForAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, t := range tokens {
		if err := p.SignOut(ctx, t); err != nil {
			return err
		}
	}
	p.log.Info("password reset", zap.String("account_id", accountID), zap.Int("sessions_ended", len(tokens)))
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", n)
	case d >= time.Hour && d%time.Hour == 0:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", n)
	default:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
}

var _ Provider = (*Local)(nil)
