// internal/app/system/sources/sources.go
// Package sources defines where each domain's raw records come from.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
)

// Source fetches one domain's raw payload. The payload may be a bare list or
// an envelope; callers normalize it.
type Source interface {
	Fetch(ctx context.Context) (any, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context) (any, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context) (any, error) { return f(ctx) }

// Backend names a source implementation in configuration.
type Backend string

// Backends.
const (
	BackendNone     Backend = "none"
	BackendHTTP     Backend = "http"
	BackendMongo    Backend = "mongo"
	BackendPostgres Backend = "postgres"
)

// ErrUnknownBackend is returned by ParseBackend for unrecognized names.
var ErrUnknownBackend = errors.New("unknown source backend")

// ParseBackend parses a configured backend name. Empty means none.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(normalize.Token(s)); b {
	case "":
		return BackendNone, nil
	case BackendNone, BackendHTTP, BackendMongo, BackendPostgres:
		return b, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Registry maps kinds to their sources. Kinds without a source are never populated.
type Registry map[entity.Kind]Source

// Kinds returns the registered kinds in canonical order.
func (r Registry) Kinds() []entity.Kind {
	var out []entity.Kind
	for _, k := range entity.Kinds() {
		if _, ok := r[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
