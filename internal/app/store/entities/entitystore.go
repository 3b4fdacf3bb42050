// internal/app/store/entities/entitystore.go
package entitystore

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultCollection returns the collection a kind is read from when none is configured.
func DefaultCollection(kind entity.Kind) string {
	return kind.Plural()
}

// Store reads one domain's documents from MongoDB.
type Store struct {
	c     *mongo.Collection
	limit int64
}

// New creates a store over collection. A positive limit caps how many
// documents one fetch returns.
func New(db *mongo.Database, collection string, limit int64) *Store {
	return &Store{c: db.Collection(collection), limit: limit}
}

// Collection returns the collection name.
func (s *Store) Collection() string { return s.c.Name() }

// Fetch implements sources.Source. Documents come back in _id order.
func (s *Store) Fetch(ctx context.Context) (any, error) {
	return s.List(ctx)
}

// List returns every document as a record.
func (s *Store) List(ctx context.Context) ([]entity.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if s.limit > 0 {
		opts.SetLimit(s.limit)
	}

	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.c.Name(), err)
	}
	defer cur.Close(ctx)

	out := make([]entity.Record, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.c.Name(), err)
		}
		out = append(out, toRecord(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor %s: %w", s.c.Name(), err)
	}
	return out, nil
}

// toRecord converts driver types into the plain values the resolvers read.
func toRecord(doc bson.M) entity.Record {
	r := make(entity.Record, len(doc))
	for k, v := range doc {
		r[k] = plain(v)
	}
	return r
}

func plain(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Timestamp:
		return primitive.DateTime(int64(t.T) * 1000).Time().UTC()
	case bson.M:
		return map[string]any(toRecord(t))
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = plain(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}
