package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"github.com/dalemusser/vlsiclub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps profiles in the "profiles" collection, _id = account id.
type MongoStore struct {
	c *mongo.Collection
}

// NewMongo creates a MongoDB-backed profile store.
func NewMongo(db *mongo.Database) *MongoStore {
	return &MongoStore{c: db.Collection("profiles")}
}

// EnsureIndexes reconciles the email and role lookups.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	return indexes.EnsureCollection(ctx, s.c)
}

func (s *MongoStore) Get(ctx context.Context, accountID string) (*models.Profile, error) {
	var p models.Profile
	err := s.c.FindOne(ctx, bson.M{"_id": accountID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	return &p, nil
}

func (s *MongoStore) Create(ctx context.Context, p *models.Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrExists
		}
		return err
	}
	return nil
}

// Merge sets the given fields with upsert, so a merge for an account with
// no document yet still lands.
func (s *MongoStore) Merge(ctx context.Context, accountID string, fields map[string]any) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": accountID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"role": models.DefaultRole, "created_at": time.Now().UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return err
}
