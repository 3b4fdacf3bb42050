package validators

import (
	"errors"
	"testing"

	selectionstore "github.com/dalemusser/stratametrics/internal/app/store/selections"
	"github.com/dalemusser/stratametrics/internal/app/system/daterange"
	"github.com/dalemusser/stratametrics/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	exists, err := collectionExists(ctx, db, selectionstore.Collection)
	if err != nil {
		t.Fatalf("collectionExists() error = %v", err)
	}
	if !exists {
		t.Errorf("collection %s should exist after EnsureAll", selectionstore.Collection)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Run twice to verify idempotency
	if err := EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("First EnsureAll() error = %v", err)
	}
	if err := EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("Second EnsureAll() error = %v", err)
	}
}

func TestEnsureAll_RejectsBadSelection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db, nil); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	store := selectionstore.New(db)

	if err := store.Save(ctx, selectionstore.Saved{Status: "active", Preset: "custom", Start: "2025-01-01"}); err != nil {
		t.Fatalf("Save(valid) error = %v", err)
	}
	if err := store.Save(ctx, selectionstore.Saved{Status: "sometimes", Preset: "all"}); err == nil {
		t.Error("Save(unknown status) should be rejected by the validator")
	}
	if err := store.Save(ctx, selectionstore.Saved{Status: "all", Preset: "custom", Start: "01/02/2025"}); err == nil {
		t.Error("Save(malformed day) should be rejected by the validator")
	}
}

func TestCollectionExists(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Collection doesn't exist
	exists, err := collectionExists(ctx, db, "nonexistent_collection")
	if err != nil {
		t.Fatalf("collectionExists() error = %v", err)
	}
	if exists {
		t.Error("collectionExists() should return false for nonexistent collection")
	}

	// Create collection and verify
	err = db.CreateCollection(ctx, "test_collection")
	if err != nil {
		t.Fatalf("CreateCollection() error = %v", err)
	}

	exists, err = collectionExists(ctx, db, "test_collection")
	if err != nil {
		t.Fatalf("collectionExists() error = %v", err)
	}
	if !exists {
		t.Error("collectionExists() should return true for existing collection")
	}
}

func TestEnsureCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// First call should create
	created, err := ensureCollection(ctx, db, "new_collection", zap.NewNop())
	if err != nil {
		t.Fatalf("First ensureCollection() error = %v", err)
	}
	if !created {
		t.Error("First ensureCollection() should return created=true")
	}

	// Second call should not create
	created, err = ensureCollection(ctx, db, "new_collection", zap.NewNop())
	if err != nil {
		t.Fatalf("Second ensureCollection() error = %v", err)
	}
	if created {
		t.Error("Second ensureCollection() should return created=false")
	}
}

func TestIsNamespaceExistsErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"already exists message", errors.New("collection already exists"), true},
		{"namespace exists message", errors.New("namespace exists"), true},
		{"uppercase already exists", errors.New("ALREADY EXISTS"), true},
		{"command error code 48", mongo.CommandError{Code: 48, Message: "exists"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNamespaceExistsErr(tt.err); got != tt.want {
				t.Errorf("isNamespaceExistsErr() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNoSuchCommand(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"no such command message", errors.New("no such command"), true},
		{"uppercase no such command", errors.New("NO SUCH COMMAND"), true},
		{"command error code 59", mongo.CommandError{Code: 59, Message: "command"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNoSuchCommand(tt.err); got != tt.want {
				t.Errorf("isNoSuchCommand() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotImplemented(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"not implemented message", errors.New("not implemented"), true},
		{"not supported message", errors.New("not supported"), true},
		{"uppercase not implemented", errors.New("NOT IMPLEMENTED"), true},
		{"command error code 115", mongo.CommandError{Code: 115, Message: "impl"}, true},
		{"command error not implemented msg", mongo.CommandError{Code: 0, Message: "not implemented"}, true},
		{"command error not supported msg", mongo.CommandError{Code: 0, Message: "not supported"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotImplemented(tt.err); got != tt.want {
				t.Errorf("isNotImplemented() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectionsSchema(t *testing.T) {
	schema := selectionsSchema()
	jsonSchema, ok := schema["$jsonSchema"].(bson.M)
	if !ok {
		t.Fatalf("$jsonSchema should be a bson.M, got %T", schema["$jsonSchema"])
	}
	props, ok := jsonSchema["properties"].(bson.M)
	if !ok {
		t.Fatal("schema should have properties")
	}
	preset, ok := props["preset"].(bson.M)
	if !ok {
		t.Fatal("schema should constrain preset")
	}
	if got := len(preset["enum"].(bson.A)); got != len(daterange.Presets()) {
		t.Errorf("preset enum has %d values, want %d", got, len(daterange.Presets()))
	}
}
