// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/vlsiclub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Mongo server error codes we tolerate.
const (
	codeNamespaceExists = 48
	codeNoSuchCommand   = 59
	codeNotImplemented  = 115
)

// EnsureAll creates the club collections (if missing) and attaches JSON-Schema
// validators. Servers that don't support collMod/validators are logged and
// skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if unsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("accounts", accountsSchema())
	ensure("profiles", profilesSchema())
	ensure("identity_sessions", sessionsSchema())
	ensure("auth_tokens", tokensSchema())
	ensure("oauth_states", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	names, listErr := db.ListCollectionNames(ctx, bson.M{"name": name})
	if listErr == nil && len(names) > 0 {
		zap.L().Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCode(err, codeNamespaceExists, "already exists", "namespace exists") {
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: bson.M{"$jsonSchema": schema}},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func unsupported(err error) bool {
	return hasCode(err, codeNoSuchCommand, "no such command") ||
		hasCode(err, codeNotImplemented, "not implemented", "not supported")
}

// hasCode matches a server command error by code, or by message fragment
// for drivers and proxies that drop the code.
func hasCode(err error, code int32, fragments ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

/* ------------------------- JSON-Schema docs ---------------------- */

func accountsSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "email", "email_ci", "email_verified", "created_at"},
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "string", "minLength": 1},
			"email":          bson.M{"bsonType": "string", "minLength": 3},
			"email_ci":       bson.M{"bsonType": "string", "minLength": 3},
			"display_name":   bson.M{"bsonType": "string", "maxLength": 100},
			"password_hash":  bson.M{"bsonType": "string"},
			"email_verified": bson.M{"bsonType": "bool"},
			"google_id":      bson.M{"bsonType": "string"},
			"created_at":     bson.M{"bsonType": "date"},
			"updated_at":     bson.M{"bsonType": "date"},
		},
	}
}

func profilesSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "email", "role", "created_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1},
			"email":      bson.M{"bsonType": "string"},
			"name":       bson.M{"bsonType": "string", "maxLength": 100},
			"role":       bson.M{"bsonType": "string", "minLength": 1},
			"bio":        bson.M{"bsonType": "string", "maxLength": 1000},
			"department": bson.M{"bsonType": "string"},
			"year":       bson.M{"bsonType": "string"},
			"phone":      bson.M{"bsonType": "string"},
			"interests": bson.M{
				"bsonType": bson.A{"array", "null"},
				"items":    bson.M{"bsonType": "string"},
			},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	}
}

func sessionsSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "account_id", "provider", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1},
			"account_id": bson.M{"bsonType": "string", "minLength": 1},
			"provider":   bson.M{"enum": bson.A{models.AuthMethodPassword, models.AuthMethodGoogle}},
			"created_at": bson.M{"bsonType": "date"},
			"expires_at": bson.M{"bsonType": "date"},
		},
	}
}

func tokensSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"_id", "purpose", "account_id", "expires_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string", "minLength": 1},
			"purpose":    bson.M{"bsonType": "string", "minLength": 1},
			"account_id": bson.M{"bsonType": "string", "minLength": 1},
			"created_at": bson.M{"bsonType": "date"},
			"expires_at": bson.M{"bsonType": "date"},
		},
	}
}
