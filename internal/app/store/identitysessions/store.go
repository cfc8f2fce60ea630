// internal/app/store/identitysessions/store.go
package identitysessions

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a token has no live session.
var ErrNotFound = errors.New("session not found or expired")

// Record is one identity session, keyed by its opaque token.
type Record struct {
	Token     string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Provider  string    `bson:"provider"` // "password" or "google"
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"` // TTL index field
}

// Store manages identity sessions in MongoDB.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new identity sessions Store.
func New(db *mongo.Database) *Store {
	return &Store{
		c:   db.Collection("identity_sessions"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes reconciles the TTL and per-account indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureCollection(ctx, s.c)
}

// Create stores a new session.
func (s *Store) Create(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.c.InsertOne(ctx, rec)
	return err
}

// Get returns the live session for token.
func (s *Store) Get(ctx context.Context, token string) (*Record, error) {
	var rec Record
	err := s.c.FindOne(ctx, bson.M{
		"_id":        token,
		"expires_at": bson.M{"$gt": s.now()},
	}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Delete removes a session. It reports whether a session was removed.
func (s *Store) Delete(ctx context.Context, token string) (bool, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": token})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// TokensForAccount lists the live session tokens of an account.
func (s *Store) TokensForAccount(ctx context.Context, accountID string) ([]string, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"account_id": accountID, "expires_at": bson.M{"$gt": s.now()}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(recs))
	for _, r := range recs {
		tokens = append(tokens, r.Token)
	}
	return tokens, nil
}

// DeleteExpired removes sessions past their expiry and returns their tokens.
// Each token is deleted individually so a token is reported only by the
// caller that actually removed it.
func (s *Store) DeleteExpired(ctx context.Context, limit int64) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"expires_at": bson.M{"$lte": s.now()}}, opts)
	if err != nil {
		return nil, err
	}
	var recs []Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}

	var removed []string
	for _, r := range recs {
		ok, err := s.Delete(ctx, r.Token)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, r.Token)
		}
	}
	return removed, nil
}
