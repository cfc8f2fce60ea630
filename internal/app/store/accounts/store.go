// internal/app/store/accounts/store.go
package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"github.com/dalemusser/vlsiclub/internal/app/system/normalize"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when an account already uses the email.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
)

// Store manages credential records for the local identity provider.
type Store struct {
	c *mongo.Collection
}

// New creates a new accounts Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("accounts")}
}

// EnsureIndexes creates the unique email and Google id lookups.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureCollection(ctx, s.c)
}

// FoldEmail is the case-insensitive lookup key for an email.
func FoldEmail(email string) string {
	return normalize.Email(email)
}

// Create inserts a new account. ID and timestamps are filled in when empty.
func (s *Store) Create(ctx context.Context, a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.TrimSpace(a.Email)
	a.EmailCI = FoldEmail(a.Email)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByID loads an account by id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail loads an account by email, case-insensitively.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"email_ci": FoldEmail(email)})
}

// GetByGoogleID loads the account linked to a Google subject.
func (s *Store) GetByGoogleID(ctx context.Context, sub string) (*models.Account, error) {
	return s.findOne(ctx, bson.M{"google_id": sub})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	err := s.c.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// LinkGoogle attaches a Google subject to an account. A Google sign-in
// proves the address, so the email is marked verified as well.
func (s *Store) LinkGoogle(ctx context.Context, id, sub string) error {
	return s.set(ctx, id, bson.M{"google_id": sub, "email_verified": true})
}

// MarkVerified records that the account's email was confirmed.
func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.set(ctx, id, bson.M{"email_verified": true})
}

// SetPasswordHash replaces the stored bcrypt hash.
func (s *Store) SetPasswordHash(ctx context.Context, id, hash string) error {
	return s.set(ctx, id, bson.M{"password_hash": hash})
}

func (s *Store) set(ctx context.Context, id string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
