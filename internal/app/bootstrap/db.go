// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/dalemusser/vlsiclub/internal/app/system/indexes"
	"github.com/dalemusser/vlsiclub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB (always) and Firestore (when profiles live there).
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	pool := wafflemongo.DefaultPoolConfig()
	if appCfg.Mongo.MaxPoolSize > 0 {
		pool.MaxPoolSize = appCfg.Mongo.MaxPoolSize
	}
	if appCfg.Mongo.MinPoolSize > 0 {
		pool.MinPoolSize = appCfg.Mongo.MinPoolSize
	}
	if coreCfg.DBConnectTimeout > 0 {
		pool.ConnectTimeout = coreCfg.DBConnectTimeout
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.Mongo.URI, appCfg.Mongo.Database, pool)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.Mongo.Database),
		zap.Uint64("max_pool_size", pool.MaxPoolSize))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.Mongo.Database),
		Services:      &Services{},
	}

	if appCfg.Profiles.Backend == "firestore" {
		fs, err := firestore.NewClient(ctx, appCfg.Profiles.FirestoreProject)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("firestore client: %w", err)
		}
		deps.Firestore = fs
		logger.Info("profiles stored in Firestore",
			zap.String("project", appCfg.Profiles.FirestoreProject),
			zap.String("collection", appCfg.Profiles.FirestoreCollection))
	}
	return deps, nil
}

// EnsureSchema creates collections, validators and indexes. Validators go
// first so collections exist before index builds. WAFFLE bounds ctx with
// index_boot_timeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// indexes and validators log through zap.L().
	zap.ReplaceGlobals(logger)

	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("validators: %w", err)
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		return fmt.Errorf("indexes: %w", err)
	}
	logger.Info("schema ensured")
	return nil
}
