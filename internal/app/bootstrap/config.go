// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	entitystore "github.com/dalemusser/stratametrics/internal/app/store/entities"
	"github.com/dalemusser/stratametrics/internal/app/system/inputval"
	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATAMETRICS"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, account_source, etc.
//   - Environment variables: STRATAMETRICS_MONGO_URI, STRATAMETRICS_ACCOUNT_SOURCE, etc.
//   - Command-line flags: --mongo_uri, --account_source, etc.
var appConfigKeys = append([]config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratametrics", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "postgres_dsn", Default: "", Desc: "PostgreSQL DSN for postgres-backed domains"},

	// API access
	{Name: "api_key", Default: "", Desc: "Comma-separated API keys (leave empty to disable API key auth)"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated origins allowed to call the API (empty allows any)"},

	// Engine
	{Name: "timezone", Default: "UTC", Desc: "IANA time zone for calendar presets and zone-less datetimes"},
	{Name: "account_active_window", Default: "720h", Desc: "Accounts that logged in within this window are active"},
	{Name: "recompute_interval", Default: "1m", Desc: "How long computed aggregates are reused (0 keeps them until inputs change)"},

	// Refresh
	{Name: "refresh_interval", Default: "5m", Desc: "How often every domain is re-fetched"},
	{Name: "refresh_concurrency", Default: 0, Desc: "Max domains fetched in parallel (0 fetches all at once)"},
	{Name: "fetch_limit", Default: 0, Desc: "Max documents read per Mongo-backed domain (0 is unlimited)"},

	// HTTP upstream
	{Name: "upstream_timeout", Default: "15s", Desc: "Timeout for each upstream HTTP fetch"},
	{Name: "upstream_token", Default: "", Desc: "Static bearer token for upstream HTTP sources"},
	{Name: "upstream_oauth_client_id", Default: "", Desc: "OAuth2 client ID for upstream client-credentials auth"},
	{Name: "upstream_oauth_client_secret", Default: "", Desc: "OAuth2 client secret for upstream client-credentials auth"},
	{Name: "upstream_oauth_token_url", Default: "", Desc: "OAuth2 token endpoint for upstream client-credentials auth"},
	{Name: "upstream_oauth_scopes", Default: "", Desc: "Comma-separated OAuth2 scopes"},
}, sourceKeys()...)

// sourceKeys declares <kind>_source, <kind>_url, <kind>_collection and
// <kind>_query for every domain.
func sourceKeys() []config.AppKey {
	var keys []config.AppKey
	for _, k := range entity.Kinds() {
		keys = append(keys,
			config.AppKey{Name: string(k) + "_source", Default: "none", Desc: fmt.Sprintf("Source for %s: http, mongo, postgres, or none", k.Plural())},
			config.AppKey{Name: string(k) + "_url", Default: "", Desc: fmt.Sprintf("Upstream URL for %s (http source)", k.Plural())},
			config.AppKey{Name: string(k) + "_collection", Default: entitystore.DefaultCollection(k), Desc: fmt.Sprintf("Collection holding %s (mongo source)", k.Plural())},
			config.AppKey{Name: string(k) + "_query", Default: "", Desc: fmt.Sprintf("SQL selecting %s (postgres source)", k.Plural())},
		)
	}
	return keys
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATAMETRICS_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		PostgresDSN:      appValues.String("postgres_dsn"),

		APIKeys:     splitList(appValues.String("api_key")),
		CORSOrigins: splitList(appValues.String("cors_origins")),

		Timezone:            appValues.String("timezone"),
		AccountActiveWindow: appValues.Duration("account_active_window", 30*24*time.Hour),
		RecomputeInterval:   appValues.Duration("recompute_interval", time.Minute),

		RefreshInterval:    appValues.Duration("refresh_interval", 5*time.Minute),
		RefreshConcurrency: appValues.Int("refresh_concurrency"),
		FetchLimit:         int64(appValues.Int("fetch_limit")),

		UpstreamTimeout:           appValues.Duration("upstream_timeout", 15*time.Second),
		UpstreamToken:             appValues.String("upstream_token"),
		UpstreamOAuthClientID:     appValues.String("upstream_oauth_client_id"),
		UpstreamOAuthClientSecret: appValues.String("upstream_oauth_client_secret"),
		UpstreamOAuthTokenURL:     appValues.String("upstream_oauth_token_url"),
		UpstreamOAuthScopes:       splitList(appValues.String("upstream_oauth_scopes")),

		Sources: make(map[entity.Kind]SourceConfig, len(entity.Kinds())),
	}

	for _, k := range entity.Kinds() {
		appCfg.Sources[k] = SourceConfig{
			Source:     appValues.String(string(k) + "_source"),
			URL:        strings.TrimSpace(appValues.String(string(k) + "_url")),
			Collection: strings.TrimSpace(appValues.String(string(k) + "_collection")),
			Query:      strings.TrimSpace(appValues.String(string(k) + "_query")),
		}
	}

	return coreCfg, appCfg, nil
}

// Config fragments checked with inputval.
type (
	zoneInput struct {
		Timezone string `json:"timezone" validate:"required,timezone" label:"Time zone"`
	}
	sourceInput struct {
		Source string `json:"source" validate:"required,oneof=http mongo postgres none" label:"Source"`
	}
	httpInput struct {
		URL string `json:"url" validate:"required,httpurl" label:"URL"`
	}
	mongoInput struct {
		Collection string `json:"collection" validate:"required,max=255" label:"Collection"`
	}
)

// ValidateConfig performs app-specific config validation.
//
// Every problem is reported at once so a misconfigured deployment can be
// fixed in a single pass.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	var errs []error

	if res := inputval.Validate(zoneInput{Timezone: appCfg.Timezone}); res.HasErrors() {
		errs = append(errs, fmt.Errorf("timezone: %s", res.First()))
	}
	if appCfg.AccountActiveWindow <= 0 {
		errs = append(errs, errors.New("account_active_window: must be positive"))
	}
	if appCfg.RecomputeInterval < 0 {
		errs = append(errs, errors.New("recompute_interval: must not be negative"))
	}
	if appCfg.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh_interval: must be positive"))
	}
	if appCfg.RefreshConcurrency < 0 {
		errs = append(errs, errors.New("refresh_concurrency: must not be negative"))
	}
	if appCfg.FetchLimit < 0 {
		errs = append(errs, errors.New("fetch_limit: must not be negative"))
	}

	oauthSet := 0
	for _, v := range []string{appCfg.UpstreamOAuthClientID, appCfg.UpstreamOAuthClientSecret, appCfg.UpstreamOAuthTokenURL} {
		if v != "" {
			oauthSet++
		}
	}
	switch oauthSet {
	case 0:
	case 3:
		if res := inputval.Validate(httpInput{URL: appCfg.UpstreamOAuthTokenURL}); res.HasErrors() {
			errs = append(errs, fmt.Errorf("upstream_oauth_token_url: %s", res.First()))
		}
	default:
		errs = append(errs, errors.New("upstream_oauth: client id, client secret and token url must be set together"))
	}

	for _, k := range entity.Kinds() {
		sc := appCfg.Sources[k]
		name := normalize.Token(sc.Source)
		if name == "" {
			name = string(sources.BackendNone)
		}
		if res := inputval.Validate(sourceInput{Source: name}); res.HasErrors() {
			errs = append(errs, fmt.Errorf("%s_source: %s", k, res.First()))
			continue
		}
		switch sources.Backend(name) {
		case sources.BackendHTTP:
			if res := inputval.Validate(httpInput{URL: sc.URL}); res.HasErrors() {
				errs = append(errs, fmt.Errorf("%s_url: %s", k, res.First()))
			}
		case sources.BackendMongo:
			if res := inputval.Validate(mongoInput{Collection: sc.Collection}); res.HasErrors() {
				errs = append(errs, fmt.Errorf("%s_collection: %s", k, res.First()))
			}
		case sources.BackendPostgres:
			if sc.Query == "" {
				errs = append(errs, fmt.Errorf("%s_query: required for postgres source", k))
			}
			if appCfg.PostgresDSN == "" {
				errs = append(errs, fmt.Errorf("postgres_dsn: required by %s_source", k))
			}
		}
	}

	// MongoDB also holds the shared selection, so the URI is always checked.
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		errs = append(errs, fmt.Errorf("invalid MongoDB URI: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
