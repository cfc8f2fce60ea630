package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/httpjson"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "vlsiclub-session"

	tokenKey   = "identity_token"
	upvotedKey = "upvoted"

	// maxUpvoted bounds the upvote set. maxCookieBytes is checked as well,
	// since ids are not fixed length.
	maxUpvoted     = 40
	maxCookieBytes = 4000
)

// ErrCookieTooLarge is returned when even the newest upvote alone does not
// fit in the session cookie.
var ErrCookieTooLarge = errors.New("session cookie would exceed size limit")

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the signed-in member injected into r.Context().
type SessionUser struct {
	ID    string // identity provider account id
	Token string // identity session token
	Name  string
	Email string
	Role  string
}

// Resolver turns an identity session token into the signed-in user.
// The session/profile controller implements it.
type Resolver interface {
	ResolveUser(ctx context.Context, token string) (*SessionUser, bool)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & “found?” flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects u into the request context. Tests use it to skip
// the cookie and resolver round trip.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager owns the signed cookie that carries the identity token and
// the per-session upvote set.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	log   *zap.Logger
}

// NewSessionManager builds the cookie store. The `secure` flag controls
// whether cookies are marked Secure and which SameSite mode is used.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// Store exposes the underlying cookie store so callers can mirror its
// options (e.g. when expiring the cookie).
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// GetSession returns the session. A cookie that no longer decodes (rotated
// key, tampering) yields a fresh session along with the decode error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			sm.log.Debug("session cookie did not decode; starting fresh", zap.Error(err))
		}
	}
	return sess, err
}

// Token returns the identity token stored in the cookie, or "".
func (sm *SessionManager) Token(r *http.Request) string {
	sess, _ := sm.GetSession(r)
	return getString(sess, tokenKey)
}

// SetToken stores the identity token in the cookie.
func (sm *SessionManager) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := sm.GetSession(r)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// Clear expires the cookie, dropping the token and upvote set.
func (sm *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		sm.log.Warn("session decode failed while clearing", zap.Error(err))
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options = copyOptions(sm.store.Options)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// HasUpvoted reports whether this viewing session already upvoted id.
func (sm *SessionManager) HasUpvoted(r *http.Request, id string) bool {
	sess, _ := sm.GetSession(r)
	for _, v := range getStrings(sess, upvotedKey) {
		if v == id {
			return true
		}
	}
	return false
}

// PendingUpvote is an upvote set change already known to fit in the cookie.
type PendingUpvote struct {
	sess *sessions.Session
}

// Save writes the updated cookie.
func (p *PendingUpvote) Save(w http.ResponseWriter, r *http.Request) error {
	return p.sess.Save(r, w)
}

// PrepareUpvote adds id to this session's upvote set without writing the
// cookie. The set is soft: it is lost when the cookie is, and only the
// newest ids that fit within maxUpvoted and maxCookieBytes are kept.
func (sm *SessionManager) PrepareUpvote(r *http.Request, id string) (*PendingUpvote, error) {
	sess, _ := sm.GetSession(r)
	ids := getStrings(sess, upvotedKey)
	for _, v := range ids {
		if v == id {
			return &PendingUpvote{sess: sess}, nil
		}
	}
	ids = append(append([]string{}, ids...), id)
	if len(ids) > maxUpvoted {
		ids = ids[len(ids)-maxUpvoted:]
	}
	for {
		sess.Values[upvotedKey] = ids
		n, err := sm.encodedLen(sess)
		if err != nil {
			return nil, err
		}
		if n <= maxCookieBytes {
			return &PendingUpvote{sess: sess}, nil
		}
		if len(ids) == 1 {
			return nil, ErrCookieTooLarge
		}
		ids = ids[1:]
	}
}

// MarkUpvoted is PrepareUpvote followed by Save.
func (sm *SessionManager) MarkUpvoted(w http.ResponseWriter, r *http.Request, id string) error {
	p, err := sm.PrepareUpvote(r, id)
	if err != nil {
		return err
	}
	return p.Save(w, r)
}

// encodedLen is the size of the name=value pair the cookie store would write.
func (sm *SessionManager) encodedLen(sess *sessions.Session) (int, error) {
	v, err := securecookie.EncodeMulti(sess.Name(), sess.Values, sm.store.Codecs...)
	if err != nil {
		return 0, err
	}
	return len(sess.Name()) + 1 + len(v), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadSessionUser injects the signed-in user into context when the cookie
// carries a token the resolver accepts. A stale token is dropped from the
// request but the cookie is left for logout or the next sign-in to replace.
func (sm *SessionManager) LoadSessionUser(res Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sm.Token(r)
			if token != "" && res != nil {
				if u, ok := res.ResolveUser(r.Context(), token); ok {
					r = withUser(r, u)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 with {"error": "Unauthorized"}.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if wantsHTML(r) {
			ret := url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
			return
		}
		httpjson.Error(w, http.StatusUnauthorized, "Unauthorized")
	})
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

// getStrings extracts a []string session value. gob registers []string,
// so it round-trips through the cookie without extra setup.
func getStrings(s *sessions.Session, key string) []string {
	if s == nil {
		return nil
	}
	v, _ := s.Values[key].([]string)
	return v
}

func copyOptions(o *sessions.Options) *sessions.Options {
	if o == nil {
		return &sessions.Options{Path: "/"}
	}
	cp := *o
	return &cp
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
