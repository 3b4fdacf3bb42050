// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratametrics/internal/app/store/pgentities"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. Services is
// allocated here and filled in by Startup so the later hooks share the
// same board, loader and runner.
type DBDeps struct {
	// MongoDB client and database (entity collections, shared selection)
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// PostgreSQL pool; nil unless a domain is postgres-backed
	Postgres *pgentities.DB

	Services *Services
}
