// Package session holds the application-lifetime controller that follows
// identity provider session changes and keeps each signed-in account's
// profile merged in memory.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/identity"
	"github.com/dalemusser/vlsiclub/internal/app/store/profiles"
	"github.com/dalemusser/vlsiclub/internal/app/system/auth"
	"github.com/dalemusser/vlsiclub/internal/app/system/authutil"
	"github.com/dalemusser/vlsiclub/internal/app/system/timeouts"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	"go.uber.org/zap"
)

// State of one viewing session.
type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
)

// View is a snapshot of one viewing session. Profile is a copy the caller
// may keep.
type View struct {
	State     State             `json:"state"`
	Session   *identity.Session `json:"-"`
	Profile   *models.Profile   `json:"user,omitempty"`
	Verified  bool              `json:"emailVerified"`
	Persisted bool              `json:"-"` // false until the profile document exists
}

type entry struct {
	sess  *identity.Session
	state State
}

// Controller tracks sessions by token. Only the provider's change callback
// adds or removes session entries.
type Controller struct {
	provider identity.Provider
	store    profiles.Store
	log      *zap.Logger

	mu        sync.Mutex
	ctx       context.Context
	started   bool
	unsub     func()
	sessions  map[string]*entry
	profiles  map[string]*models.Profile
	persisted map[string]bool
	inflight  map[string]chan struct{} // account id -> closed when its profile is loaded
}

// New creates a controller. It does nothing until Start.
func New(p identity.Provider, store profiles.Store, logger *zap.Logger) *Controller {
	return &Controller{
		provider:  p,
		store:     store,
		log:       logger,
		sessions:  map[string]*entry{},
		profiles:  map[string]*models.Profile{},
		persisted: map[string]bool{},
		inflight:  map[string]chan struct{}{},
	}
}

// Start subscribes to the provider. ctx bounds profile store calls made
// from the change callback.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.ctx = ctx
	c.started = true
	c.unsub = c.provider.Subscribe(c.onChange)
}

// Close unsubscribes from the provider.
func (c *Controller) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Controller) onChange(ch identity.Change) {
	if ch.Session == nil {
		c.discard(ch.Token)
		return
	}

	acct := ch.Session.AccountID
	c.mu.Lock()
	c.sessions[ch.Token] = &entry{sess: ch.Session, state: StateLoading}
	if _, cached := c.profiles[acct]; cached {
		c.sessions[ch.Token].state = StateAuthenticated
		c.mu.Unlock()
		return
	}
	if wait, ok := c.inflight[acct]; ok {
		c.mu.Unlock()
		<-wait
		c.markAuthenticated(ch.Token)
		return
	}
	done := make(chan struct{})
	c.inflight[acct] = done
	c.mu.Unlock()

	c.load(ch.Session, done)
}

// markAuthenticated flips the token to authenticated once its account's
// profile is cached. A failed load leaves it loading for Current to retry.
func (c *Controller) markAuthenticated(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[token]
	if !ok {
		return
	}
	if _, cached := c.profiles[e.sess.AccountID]; cached {
		e.state = StateAuthenticated
	}
}

// load runs loadProfile on behalf of the caller that registered done as the
// account's inflight channel, then caches the result and marks every session
// of the account authenticated. Nothing is cached when the store could not
// say whether the document exists.
func (c *Controller) load(s *identity.Session, done chan struct{}) {
	prof, persisted, err := c.loadProfile(s)

	acct := s.AccountID
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, acct)
	close(done)
	if err != nil || !c.hasSessionFor(acct) {
		return
	}
	c.profiles[acct] = prof
	c.persisted[acct] = persisted
	for _, e := range c.sessions {
		if e.sess.AccountID == acct {
			e.state = StateAuthenticated
		}
	}
}

// loadProfile fetches the account's profile, creating it with defaults the
// first time the account is seen. persisted is false only when the document
// is known to be absent and the create failed. Any other store failure is
// returned and nothing should be cached.
func (c *Controller) loadProfile(s *identity.Session) (p *models.Profile, persisted bool, err error) {
	ctx, cancel := timeouts.WithTimeout(c.baseCtx(), timeouts.Short(), c.log, "profile load")
	defer cancel()

	p, err = c.store.Get(ctx, s.AccountID)
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, profiles.ErrNotFound) {
		c.log.Warn("profile fetch failed", zap.String("account_id", s.AccountID), zap.Error(err))
		return nil, false, err
	}

	p = c.defaults(s)
	p.CreatedAt = time.Now().UTC()
	switch err := c.store.Create(ctx, p); {
	case err == nil:
		c.log.Info("profile created", zap.String("account_id", s.AccountID))
		return p, true, nil
	case errors.Is(err, profiles.ErrExists):
		got, err := c.store.Get(ctx, s.AccountID)
		if err != nil {
			c.log.Warn("profile fetch after create race failed", zap.String("account_id", s.AccountID), zap.Error(err))
			return nil, false, err
		}
		return got, true, nil
	default:
		c.log.Warn("profile create failed", zap.String("account_id", s.AccountID), zap.Error(err))
		return p, false, nil
	}
}

func (c *Controller) defaults(s *identity.Session) *models.Profile {
	name := s.DisplayName
	if name == "" {
		name = authutil.EmailPrefix(s.Email)
	}
	return profiles.Defaults(s.AccountID, s.Email, name)
}

func (c *Controller) baseCtx() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// discard drops a session; the profile cache goes with the account's last session.
func (c *Controller) discard(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[token]
	if !ok {
		return
	}
	delete(c.sessions, token)
	acct := e.sess.AccountID
	if !c.hasSessionFor(acct) {
		delete(c.profiles, acct)
		delete(c.persisted, acct)
	}
}

// hasSessionFor must be called with c.mu held.
func (c *Controller) hasSessionFor(accountID string) bool {
	for _, e := range c.sessions {
		if e.sess.AccountID == accountID {
			return true
		}
	}
	return false
}

// Current returns the view for a token. A token this process has not seen
// is resumed from the provider.
func (c *Controller) Current(ctx context.Context, token string) View {
	c.mu.Lock()
	started := c.started
	c.mu.Unlock()
	if !started {
		return View{State: StateLoading}
	}
	if token == "" {
		return View{State: StateUnauthenticated}
	}

	if v, ok := c.snapshot(token); ok {
		if v.State == StateLoading {
			return c.awaitLoad(ctx, token)
		}
		return v
	}
	if _, err := c.provider.Resume(ctx, token); err != nil {
		if identity.Code(err) != identity.CodeExpiredToken {
			c.log.Warn("session resume failed", zap.Error(err))
		}
		return View{State: StateUnauthenticated}
	}
	if v, ok := c.snapshot(token); ok {
		if v.State == StateLoading {
			return c.awaitLoad(ctx, token)
		}
		return v
	}
	return View{State: StateUnauthenticated}
}

// awaitLoad waits for another goroutine's profile load of the token's
// account. When no load is running, because an earlier one failed, it
// retries once. It returns the loading view if ctx ends first or the
// retry fails too.
func (c *Controller) awaitLoad(ctx context.Context, token string) View {
	c.mu.Lock()
	e, ok := c.sessions[token]
	if !ok {
		c.mu.Unlock()
		return View{State: StateUnauthenticated}
	}
	acct := e.sess.AccountID
	wait, loading := c.inflight[acct]
	_, cached := c.profiles[acct]
	var done chan struct{}
	if !loading && !cached {
		done = make(chan struct{})
		c.inflight[acct] = done
	}
	sess := e.sess
	c.mu.Unlock()

	switch {
	case done != nil:
		c.load(sess, done)
	case loading:
		select {
		case <-wait:
		case <-ctx.Done():
			return View{State: StateLoading}
		}
	}
	if v, ok := c.snapshot(token); ok {
		return v
	}
	return View{State: StateUnauthenticated}
}

func (c *Controller) snapshot(token string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.sessions[token]
	if !ok {
		return View{}, false
	}
	if e.state != StateAuthenticated {
		return View{State: e.state}, true
	}
	acct := e.sess.AccountID
	prof, ok := c.profiles[acct]
	if !ok {
		return View{State: StateLoading}, true
	}
	sess := *e.sess
	return View{
		State:     StateAuthenticated,
		Session:   &sess,
		Profile:   prof.Clone(),
		Verified:  sess.EmailVerified,
		Persisted: c.persisted[acct],
	}, true
}

// Logout signs the token out. The provider's null change clears the state.
func (c *Controller) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.provider.SignOut(ctx, token)
}

// UpdateProfile merges u into the stored profile and then into the cache.
// It does nothing for a session that is not authenticated.
func (c *Controller) UpdateProfile(ctx context.Context, token string, u models.ProfileUpdate) (View, error) {
	v := c.Current(ctx, token)
	if v.State != StateAuthenticated || u.IsEmpty() {
		return v, nil
	}

	acct := v.Session.AccountID
	fields := u.Fields()
	if !v.Persisted {
		// the document is known to be absent, so this write carries the defaults
		fields["email"] = v.Profile.Email
		if _, ok := fields["name"]; !ok {
			fields["name"] = v.Profile.Name
		}
	}
	if err := c.store.Merge(ctx, acct, fields); err != nil {
		return v, err
	}

	c.mu.Lock()
	if p, ok := c.profiles[acct]; ok {
		p.Apply(u)
		p.UpdatedAt = time.Now().UTC()
	}
	c.persisted[acct] = true
	c.mu.Unlock()

	out, _ := c.snapshot(token)
	return out, nil
}

// ResolveUser implements auth.Resolver.
func (c *Controller) ResolveUser(ctx context.Context, token string) (*auth.SessionUser, bool) {
	v := c.Current(ctx, token)
	if v.State != StateAuthenticated {
		return nil, false
	}
	return &auth.SessionUser{
		ID:    v.Session.AccountID,
		Token: token,
		Name:  v.Profile.Name,
		Email: v.Session.Email,
		Role:  v.Profile.Role,
	}, true
}

var _ auth.Resolver = (*Controller)(nil)
