// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	metricsfeature "github.com/dalemusser/stratametrics/internal/app/features/metrics"
	entitystore "github.com/dalemusser/stratametrics/internal/app/store/entities"
	"github.com/dalemusser/stratametrics/internal/app/store/pgentities"
	selectionstore "github.com/dalemusser/stratametrics/internal/app/store/selections"
	"github.com/dalemusser/stratametrics/internal/app/system/dashboard"
	"github.com/dalemusser/stratametrics/internal/app/system/refresh"
	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/app/system/tasks"
	"github.com/dalemusser/stratametrics/internal/app/system/telemetry"
	"github.com/dalemusser/stratametrics/internal/app/system/timeouts"
	"github.com/dalemusser/stratametrics/internal/app/system/timezones"
	"github.com/dalemusser/stratametrics/internal/app/system/upstream"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Services are the long-lived application objects shared by BuildHandler
// and Shutdown.
type Services struct {
	Metrics    *telemetry.Metrics
	Board      *dashboard.Board
	Selections *selectionstore.Store
	Loader     *refresh.Loader
	Runner     *tasks.Runner
}

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It builds the board, restores the saved selection, wires each domain to
// its source and starts the background refresh, which loads every domain
// immediately and then on refresh_interval.
//
// The context will be cancelled if the process is asked to shut down while
// Startup is running.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(EnvVarPrefix); n > 0 {
		logger.Info("timeouts configured from environment", zap.Int("overrides", n))
	}

	loc, err := timezones.Load(appCfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	logger.Info("operator time zone", zap.String("zone", timezones.Label(appCfg.Timezone, time.Now())))

	svc := deps.Services
	svc.Metrics = telemetry.New()
	svc.Board = dashboard.New(dashboard.Options{
		Location:          loc,
		AccountWindow:     appCfg.AccountActiveWindow,
		RecomputeInterval: appCfg.RecomputeInterval,
		Observer:          svc.Metrics,
		Logger:            logger,
	})

	svc.Selections = selectionstore.New(deps.MongoDatabase)
	metricsfeature.RestoreSelection(ctx, svc.Board, svc.Selections, logger)

	reg, err := buildRegistry(appCfg, deps, logger)
	if err != nil {
		return err
	}
	if len(reg) == 0 {
		logger.Warn("no domain has a source; every metric will report unavailable")
	}

	svc.Loader = refresh.New(svc.Board, reg, refresh.Options{
		Timeout:     timeouts.Fetch(),
		Concurrency: appCfg.RefreshConcurrency,
		Observer:    svc.Metrics,
		Logger:      logger,
	})

	// Start background task runner
	svc.Runner = tasks.New(logger)
	svc.Runner.Register(svc.Loader.Job(appCfg.RefreshInterval))
	svc.Runner.Start()

	return nil
}

// buildRegistry creates the configured source for every domain. Domains
// set to none are left out and stay unavailable.
func buildRegistry(appCfg AppConfig, deps DBDeps, logger *zap.Logger) (sources.Registry, error) {
	reg := make(sources.Registry)

	var client *upstream.Client
	if appCfg.usesBackend(sources.BackendHTTP) {
		// The OAuth token source outlives Startup, so it must not inherit its context.
		client = upstream.New(context.Background(), upstream.Config{
			Timeout: appCfg.UpstreamTimeout,
			Token:   appCfg.UpstreamToken,
			OAuth: upstream.OAuthConfig{
				ClientID:     appCfg.UpstreamOAuthClientID,
				ClientSecret: appCfg.UpstreamOAuthClientSecret,
				TokenURL:     appCfg.UpstreamOAuthTokenURL,
				Scopes:       appCfg.UpstreamOAuthScopes,
			},
		}, logger)
	}

	for _, k := range entity.Kinds() {
		sc := appCfg.Sources[k]
		b, err := sc.Backend()
		if err != nil {
			return nil, fmt.Errorf("%s_source: %w", k, err)
		}

		switch b {
		case sources.BackendHTTP:
			reg[k] = client.Source(sc.URL)
		case sources.BackendMongo:
			reg[k] = entitystore.New(deps.MongoDatabase, sc.Collection, appCfg.FetchLimit)
		case sources.BackendPostgres:
			src, err := pgentities.NewSource(deps.Postgres, sc.Query)
			if err != nil {
				return nil, fmt.Errorf("%s_query: %w", k, err)
			}
			reg[k] = src
		default:
			continue
		}

		logger.Info("domain source configured",
			zap.String("kind", string(k)),
			zap.String("source", string(b)))
	}

	return reg, nil
}
