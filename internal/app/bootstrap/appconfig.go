// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
)

// AppConfig holds service-specific configuration for this WAFFLE app.
// These values come from environment variables, config files, or
// command-line flags (loaded in LoadConfig). They are separate from
// WAFFLE's CoreConfig, which handles ports, TLS, logging level, etc.
type AppConfig struct {
	// MongoDB (entity collections and the shared selection)
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// PostgreSQL (optional entity source)
	PostgresDSN string

	// API access
	APIKeys     []string // accepted keys; empty disables API key auth
	CORSOrigins []string // API CORS origins; empty allows any origin

	// Engine
	Timezone            string        // IANA zone for zone-less datetimes and calendar presets
	AccountActiveWindow time.Duration // accounts with a login inside this window are active
	RecomputeInterval   time.Duration // memoized aggregates are reused for at most this long

	// Refresh
	RefreshInterval    time.Duration
	RefreshConcurrency int
	FetchLimit         int64 // max documents per Mongo domain; 0 is unlimited

	// HTTP upstream
	UpstreamTimeout           time.Duration
	UpstreamToken             string
	UpstreamOAuthClientID     string
	UpstreamOAuthClientSecret string
	UpstreamOAuthTokenURL     string
	UpstreamOAuthScopes       []string

	// Per-domain source wiring
	Sources map[entity.Kind]SourceConfig
}

// SourceConfig describes where one domain's records come from.
type SourceConfig struct {
	Source     string // http, mongo, postgres, or none
	URL        string // http
	Collection string // mongo
	Query      string // postgres
}

// usesBackend reports whether any domain is wired to b.
func (c AppConfig) usesBackend(b sources.Backend) bool {
	for _, sc := range c.Sources {
		if got, err := sc.Backend(); err == nil && got == b {
			return true
		}
	}
	return false
}

// Backend parses the configured source name.
func (sc SourceConfig) Backend() (sources.Backend, error) {
	return sources.ParseBackend(sc.Source)
}
