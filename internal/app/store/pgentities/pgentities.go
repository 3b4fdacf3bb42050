// internal/app/store/pgentities/pgentities.go
package pgentities

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEmptyQuery is returned by NewSource when no query is configured.
var ErrEmptyQuery = errors.New("postgres source needs a query")

// DB wraps the connection pool shared by all postgres-backed kinds.
type DB struct {
	Pool *pgxpool.Pool
}

// Connect parses dsn and opens a pool.
func Connect(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// Ready runs a trivial query.
func (db *DB) Ready(ctx context.Context) error {
	var one int
	return db.Pool.QueryRow(ctx, "select 1").Scan(&one)
}

// Source runs one query and returns each row as a record keyed by column name.
type Source struct {
	db    *DB
	query string
}

// NewSource binds query to db.
func NewSource(db *DB, query string) (*Source, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return &Source{db: db, query: query}, nil
}

// Fetch implements sources.Source.
func (s *Source) Fetch(ctx context.Context) (any, error) {
	return s.List(ctx)
}

// List runs the query.
func (s *Source) List(ctx context.Context) ([]entity.Record, error) {
	rows, err := s.db.Pool.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("collect rows: %w", err)
	}

	out := make([]entity.Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, toRecord(m))
	}
	return out, nil
}

func toRecord(m map[string]any) entity.Record {
	r := make(entity.Record, len(m))
	for k, v := range m {
		r[k] = plain(v)
	}
	return r
}

// plain maps pgx's decoded values onto the shapes the resolvers read.
func plain(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case map[string]any:
		return map[string]any(toRecord(t))
	}
	return v
}
