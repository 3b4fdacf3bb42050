// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup with the collection of every Mongo-backed
domain. Each ensure step is idempotent. Errors are aggregated so every
problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, collections map[entity.Kind]string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	var problems []string
	for _, k := range entity.Kinds() {
		name, ok := collections[k]
		if !ok || name == "" {
			continue
		}
		if err := ensureIndexSet(ctx, db.Collection(name), Models(k), logger); err != nil {
			problems = append(problems, name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Models returns the indexes kept on a domain collection. They cover the
// fields the engine reads first when resolving status and dates, so
// operators can inspect and trim large collections cheaply.
func Models(kind entity.Kind) []mongo.IndexModel {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_status"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	}

	switch kind {
	case entity.KindAccount:
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "lastLogin", Value: -1}},
			Options: options.Index().SetName("idx_last_login"),
		})
	case entity.KindEvent:
		models = append(models, mongo.IndexModel{
			Keys: bson.D{
				{Key: "fromDate", Value: 1},
				{Key: "toDate", Value: 1},
			},
			Options: options.Index().SetName("idx_from_to"),
		})
	case entity.KindPackage:
		models = append(models, mongo.IndexModel{
			Keys: bson.D{
				{Key: "isActive", Value: 1},
				{Key: "startDate", Value: 1},
			},
			Options: options.Index().SetName("idx_active_start"),
		})
	}
	return models
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

// Mongo/DocDB sometimes returns IndexOptionsConflict when an index with the
// same keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// existingBySig lists the collection's indexes keyed by key signature.
func existingBySig(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			logger.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	var errs []string
	existing := existingBySig(ctx, coll, logger)

	for _, m := range models {
		var desiredName string
		var desiredUnique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				desiredName = *m.Options.Name
			}
			desiredUnique = m.Options.Unique
		}
		desiredSig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[desiredSig]; ok {
			if sameBoolPtr(desiredUnique, ex.Unique) {
				logger.Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", desiredSig))
				continue
			}

			// Options mismatch. Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), desiredName, err))
				continue
			}
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			msg := "index ensure failed"
			if isOptionsConflictErr(err) {
				msg = "index ensure failed (options conflict)"
			}
			logger.Warn(msg,
				zap.String("collection", coll.Name()),
				zap.String("name", desiredName),
				zap.String("keys", desiredSig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), desiredName, err))
			continue
		}
		logger.Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", created),
			zap.String("keys", desiredSig),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
