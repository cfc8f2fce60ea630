// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collections in the order EnsureAll reconciles them.
var Collections = []string{"accounts", "identity_sessions", "auth_tokens", "oauth_states", "profiles"}

// desired returns fresh index models per collection.
func desired() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"accounts": {
			{
				Keys:    bson.D{{Key: "email_ci", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_accounts_email_ci"),
			},
			// only linked accounts carry a google_id
			{
				Keys: bson.D{{Key: "google_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_accounts_google_id").
					SetPartialFilterExpression(bson.M{"google_id": bson.M{"$type": "string"}}),
			},
		},
		"identity_sessions": {
			// backstop only; the expiry worker removes sessions first so
			// subscribers hear about them
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(3600).SetName("idx_identity_sessions_ttl"),
			},
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}},
				Options: options.Index().SetName("idx_identity_sessions_account"),
			},
		},
		"auth_tokens": {
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_auth_tokens_ttl"),
			},
			{
				Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "purpose", Value: 1}},
				Options: options.Index().SetName("idx_auth_tokens_account"),
			},
		},
		"oauth_states": {
			{
				Keys:    bson.D{{Key: "state", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("idx_oauth_state"),
			},
			{
				Keys:    bson.D{{Key: "expires_at", Value: 1}},
				Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_oauth_ttl"),
			},
		},
		"profiles": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("idx_profiles_email"),
			},
			{
				Keys:    bson.D{{Key: "role", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetName("idx_profiles_role_name"),
			},
		},
	}
}

/*
EnsureAll is called at startup. Each collection is reconciled independently.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	sets := desired()
	var problems []string
	for _, name := range Collections {
		if err := ensureIndexSet(ctx, db.Collection(name), sets[name]); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// EnsureCollection reconciles the indexes of one known collection.
func EnsureCollection(ctx context.Context, coll *mongo.Collection) error {
	set, ok := desired()[coll.Name()]
	if !ok {
		return fmt.Errorf("indexes: no index set for collection %q", coll.Name())
	}
	return ensureIndexSet(ctx, coll, set)
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(b *bool) bool { return b != nil && *b }

func ttlOf(v *int32) int32 {
	if v == nil {
		return -1
	}
	return *v
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{} // sig -> index
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// a collection that does not exist yet lists as an error on some servers
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		o := m.Options
		name := ""
		if o.Name != nil {
			name = *o.Name
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(zap.String("collection", coll.Name()), zap.String("name", name), zap.String("keys", sig))

		if ex, ok := existing[sig]; ok {
			if boolOf(ex.Unique) == boolOf(o.Unique) && ttlOf(ex.ExpireAfterSeconds) == ttlOf(o.ExpireAfterSeconds) &&
				(name == "" || ex.Name == name) {
				log.Debug("reusing existing index")
				continue
			}
			// keys match but name or options differ: drop and recreate
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.String("existing", ex.Name), zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && boolOf(o.Unique) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured", zap.Bool("unique", boolOf(o.Unique)), zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
