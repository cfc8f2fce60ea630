// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// State is an OAuth2 state token stored for CSRF protection during the
// Google redirect flow.
type State struct {
	State     string    `bson:"state"`
	ReturnURL string    `bson:"return_url,omitempty"` // where to land after sign-in
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// ErrEmptyState is returned by Save for a blank state token.
var ErrEmptyState = errors.New("oauthstate: empty state")

// Store manages OAuth2 state tokens in MongoDB.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("oauth_states"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates indexes for lookup and TTL expiration.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureCollection(ctx, s.c)
}

// Save stores a state token with the given expiration time.
func (s *Store) Save(ctx context.Context, state, returnURL string, expiresAt time.Time) error {
	if state == "" {
		return ErrEmptyState
	}
	_, err := s.c.InsertOne(ctx, State{
		State:     state,
		ReturnURL: returnURL,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: s.now(),
	})
	return err
}

// Validate checks that a state token exists and is not expired. A valid
// token is deleted (one-time use) and its return URL is returned.
func (s *Store) Validate(ctx context.Context, state string) (returnURL string, valid bool, err error) {
	if state == "" {
		return "", false, nil
	}
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnURL, true, nil
}

// CleanupExpired removes expired state tokens between TTL monitor passes.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now()}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
