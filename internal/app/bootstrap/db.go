// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratametrics/internal/app/store/pgentities"
	"github.com/dalemusser/stratametrics/internal/app/system/indexes"
	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/app/system/validators"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and, when any domain reads from it,
// PostgreSQL.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. MongoDB is always connected because it stores the shared
// selection.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Services:      &Services{},
	}

	if appCfg.usesBackend(sources.BackendPostgres) {
		pg, err := pgentities.Connect(ctx, appCfg.PostgresDSN)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("connect postgres: %w", err)
		}
		deps.Postgres = pg
		logger.Info("connected to PostgreSQL")
	}

	return deps, nil
}

// EnsureSchema attaches the selection collection's validator and creates
// indexes on the Mongo-backed entity collections.
//
// The context has a timeout based on coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	// Collections first so the selection validator is in place.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, mongoCollections(appCfg), logger); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}

// mongoCollections returns the collection of every Mongo-backed domain.
func mongoCollections(appCfg AppConfig) map[entity.Kind]string {
	out := make(map[entity.Kind]string)
	for k, sc := range appCfg.Sources {
		if b, err := sc.Backend(); err == nil && b == sources.BackendMongo {
			out[k] = sc.Collection
		}
	}
	return out
}
