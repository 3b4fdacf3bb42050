// internal/app/store/selections/selectionstore.go
package selectionstore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds the persisted selections.
const Collection = "dashboard_selections"

// SharedID is the document id of the operator-wide selection.
const SharedID = "shared"

// Saved is the persisted form of the dashboard filter selection.
type Saved struct {
	ID        string    `bson:"_id"`
	Status    string    `bson:"status"`
	Preset    string    `bson:"preset"`
	Start     string    `bson:"start,omitempty"` // YYYY-MM-DD
	End       string    `bson:"end,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ErrNotFound is returned when no selection has been saved yet.
var ErrNotFound = errors.New("selection not found")

// Store persists the shared selection so it survives restarts.
type Store struct {
	c *mongo.Collection
}

// New creates a selection store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Get returns the saved shared selection.
func (s *Store) Get(ctx context.Context) (Saved, error) {
	var out Saved
	if err := s.c.FindOne(ctx, bson.M{"_id": SharedID}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Saved{}, ErrNotFound
		}
		return Saved{}, err
	}
	return out, nil
}

// Save upserts the shared selection.
func (s *Store) Save(ctx context.Context, sel Saved) error {
	sel.ID = SharedID
	sel.UpdatedAt = time.Now().UTC()
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": SharedID}, sel, options.Replace().SetUpsert(true))
	return err
}
