// internal/app/store/authtokens/store.go
package authtokens

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/authutil"
	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Token purposes.
const (
	PurposeVerifyEmail   = "verify_email"
	PurposePasswordReset = "password_reset"
)

// TokenBytes is the random length of a link token (64 hex chars).
const TokenBytes = 32

// ErrNotFound is returned when a token is unknown, expired, or already used.
var ErrNotFound = errors.New("token not found or expired")

// Token is a single-use link token. Only its SHA-256 is stored.
type Token struct {
	Hash      string    `bson:"_id"`
	Purpose   string    `bson:"purpose"`
	AccountID string    `bson:"account_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// Store manages email verification and password reset tokens.
type Store struct {
	c *mongo.Collection
}

// New creates a new auth tokens Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("auth_tokens")}
}

// EnsureIndexes creates the TTL index for automatic cleanup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureCollection(ctx, s.c)
}

func hashToken(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

// Issue creates a token for the account and returns its plain text.
// Earlier unused tokens of the same purpose are revoked.
func (s *Store) Issue(ctx context.Context, purpose, accountID string, ttl time.Duration) (string, error) {
	plain, err := authutil.NewToken(TokenBytes)
	if err != nil {
		return "", err
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"account_id": accountID, "purpose": purpose}); err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.c.InsertOne(ctx, Token{
		Hash:      hashToken(plain),
		Purpose:   purpose,
		AccountID: accountID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return plain, nil
}

// Consume redeems a token once and returns the account it belongs to.
func (s *Store) Consume(ctx context.Context, purpose, plain string) (string, error) {
	var t Token
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"_id":        hashToken(plain),
		"purpose":    purpose,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return t.AccountID, nil
}

// PurgeExpired removes expired tokens.
// This is a backup for when TTL index cleanup is delayed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
