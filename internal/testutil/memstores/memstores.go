// Package memstores has in-memory versions of the identity and profile
// stores for tests that should not need MongoDB.
package memstores

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/store/accounts"
	"github.com/dalemusser/vlsiclub/internal/app/store/authtokens"
	"github.com/dalemusser/vlsiclub/internal/app/store/identitysessions"
	"github.com/dalemusser/vlsiclub/internal/app/store/profiles"
	"github.com/dalemusser/vlsiclub/internal/app/system/authutil"
	"github.com/dalemusser/vlsiclub/internal/app/system/mailer"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"github.com/google/uuid"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Accounts                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type Accounts struct {
	mu   sync.Mutex
	byID map[string]*models.Account
}

func NewAccounts() *Accounts { return &Accounts{byID: map[string]*models.Account{}} }

func (s *Accounts) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ci := accounts.FoldEmail(a.Email)
	for _, x := range s.byID {
		if x.EmailCI == ci {
			return accounts.ErrDuplicateEmail
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.EmailCI = ci
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *Accounts) find(match func(*models.Account) bool) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, accounts.ErrNotFound
}

func (s *Accounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.ID == id })
}

func (s *Accounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	ci := accounts.FoldEmail(email)
	return s.find(func(a *models.Account) bool { return a.EmailCI == ci })
}

func (s *Accounts) GetByGoogleID(_ context.Context, sub string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.GoogleID != "" && a.GoogleID == sub })
}

func (s *Accounts) update(id string, fn func(*models.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	fn(a)
	return nil
}

func (s *Accounts) LinkGoogle(_ context.Context, id, sub string) error {
	return s.update(id, func(a *models.Account) { a.GoogleID = sub; a.EmailVerified = true })
}

func (s *Accounts) MarkVerified(_ context.Context, id string) error {
	return s.update(id, func(a *models.Account) { a.EmailVerified = true })
}

func (s *Accounts) SetPasswordHash(_ context.Context, id, hash string) error {
	return s.update(id, func(a *models.Account) { a.PasswordHash = hash })
}

/*─────────────────────────────────────────────────────────────────────────────*
| Identity sessions                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

type Sessions struct {
	mu   sync.Mutex
	recs map[string]identitysessions.Record
	Now  func() time.Time
}

func NewSessions() *Sessions {
	return &Sessions{recs: map[string]identitysessions.Record{}, Now: time.Now}
}

func (s *Sessions) Create(_ context.Context, rec identitysessions.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.Token] = rec
	return nil
}

func (s *Sessions) Get(_ context.Context, token string) (*identitysessions.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[token]
	if !ok || !rec.ExpiresAt.After(s.Now()) {
		return nil, identitysessions.ErrNotFound
	}
	return &rec, nil
}

func (s *Sessions) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[token]
	delete(s.recs, token)
	return ok, nil
}

func (s *Sessions) TokensForAccount(_ context.Context, accountID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for t, rec := range s.recs {
		if rec.AccountID == accountID && rec.ExpiresAt.After(s.Now()) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Sessions) DeleteExpired(_ context.Context, limit int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for t, rec := range s.recs {
		if int64(len(out)) >= limit {
			break
		}
		if !rec.ExpiresAt.After(s.Now()) {
			out = append(out, t)
			delete(s.recs, t)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Expire moves a session's expiry into the past.
func (s *Sessions) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[token]; ok {
		rec.ExpiresAt = s.Now().Add(-time.Second)
		s.recs[token] = rec
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Auth tokens                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

type tokenRec struct {
	purpose   string
	accountID string
	expires   time.Time
}

type Tokens struct {
	mu   sync.Mutex
	recs map[string]tokenRec
	// Last holds the most recent plain token per purpose.
	Last map[string]string
}

func NewTokens() *Tokens {
	return &Tokens{recs: map[string]tokenRec{}, Last: map[string]string{}}
}

func (s *Tokens) Issue(_ context.Context, purpose, accountID string, ttl time.Duration) (string, error) {
	plain, err := authutil.NewToken(authtokens.TokenBytes)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.recs {
		if r.purpose == purpose && r.accountID == accountID {
			delete(s.recs, k)
		}
	}
	s.recs[plain] = tokenRec{purpose: purpose, accountID: accountID, expires: time.Now().Add(ttl)}
	s.Last[purpose] = plain
	return plain, nil
}

func (s *Tokens) Consume(_ context.Context, purpose, plain string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[plain]
	if !ok || r.purpose != purpose || !r.expires.After(time.Now()) {
		return "", authtokens.ErrNotFound
	}
	delete(s.recs, plain)
	return r.accountID, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Profiles                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Profiles implements profiles.Store and counts calls.
type Profiles struct {
	mu      sync.Mutex
	docs    map[string]*models.Profile
	Creates int
	Merges  int
	// Err, when set, is returned by every call.
	Err error
	// FailGets makes the next FailGets calls to Get return ErrUnavailable.
	FailGets int
}

// ErrUnavailable is the transient error FailGets injects.
var ErrUnavailable = errors.New("memstores: profile store unavailable")

func NewProfiles() *Profiles { return &Profiles{docs: map[string]*models.Profile{}} }

// Put replaces a stored profile without counting a write.
func (s *Profiles) Put(p *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[p.AccountID] = p.Clone()
}

func (s *Profiles) Get(_ context.Context, accountID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.FailGets > 0 {
		s.FailGets--
		return nil, ErrUnavailable
	}
	p, ok := s.docs[accountID]
	if !ok {
		return nil, profiles.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Profiles) Create(_ context.Context, p *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Creates++
	if _, ok := s.docs[p.AccountID]; ok {
		return profiles.ErrExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.docs[p.AccountID] = p.Clone()
	return nil
}

func (s *Profiles) Merge(_ context.Context, accountID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Merges++
	p, ok := s.docs[accountID]
	if !ok {
		p = &models.Profile{AccountID: accountID, Role: models.DefaultRole, Interests: []string{}}
		s.docs[accountID] = p
	}
	for k, v := range fields {
		switch k {
		case "name":
			p.Name, _ = v.(string)
		case "bio":
			p.Bio, _ = v.(string)
		case "department":
			p.Department, _ = v.(string)
		case "year":
			p.Year, _ = v.(string)
		case "phone":
			p.Phone, _ = v.(string)
		case "interests":
			if xs, ok := v.([]string); ok {
				p.Interests = append([]string{}, xs...)
			}
		}
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Mail                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Mailer records every email instead of sending it.
type Mailer struct {
	mu   sync.Mutex
	Sent []mailer.Email
	Err  error
}

func (m *Mailer) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, e)
	return nil
}

// LastTo returns the most recent email addressed to addr.
func (m *Mailer) LastTo(addr string) (mailer.Email, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if strings.EqualFold(m.Sent[i].To, addr) {
			return m.Sent[i], true
		}
	}
	return mailer.Email{}, false
}

// Count returns how many emails were sent.
func (m *Mailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
