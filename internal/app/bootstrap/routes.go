// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	errorsfeature "github.com/dalemusser/stratametrics/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratametrics/internal/app/features/health"
	metricsfeature "github.com/dalemusser/stratametrics/internal/app/features/metrics"
	"github.com/dalemusser/stratametrics/internal/app/system/apicors"
	"github.com/dalemusser/stratametrics/internal/app/system/auth"
	"github.com/dalemusser/stratametrics/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. The router serves:
//   - /api/metrics/*: the metrics API (API key auth + API CORS)
//   - /health, /ready, /readyz, /livez: probes
//   - /metrics: Prometheus exposition
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services

	// Create error logger for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	// Request timeout middleware. A manual refresh may fetch every domain,
	// so the bound is the refresh timeout plus headroom.
	r.Use(chimw.Timeout(timeouts.Refresh() + timeouts.Request()))

	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	r.Use(svc.Metrics.Middleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// API routes
	// ─────────────────────────────────────────────────────────────────────────────

	if len(appCfg.APIKeys) == 0 {
		logger.Warn("no api_key configured; /api/metrics is unauthenticated")
	}

	var refresher metricsfeature.Refresher
	if svc.Loader != nil {
		refresher = svc.Loader
	}
	var selections metricsfeature.SelectionStore
	if svc.Selections != nil {
		selections = svc.Selections
	}
	metricsHandler := metricsfeature.NewHandler(svc.Board, refresher, selections, errLog, logger)
	r.Route("/api/metrics", func(r chi.Router) {
		r.Use(apicors.Middleware(appCfg.CORSOrigins...))
		if len(appCfg.APIKeys) > 0 {
			r.Use(auth.APIKeyAuth(logger, appCfg.APIKeys...))
		}
		r.Mount("/", metricsfeature.Routes(metricsHandler))
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Operational endpoints
	// ─────────────────────────────────────────────────────────────────────────────

	checks := []healthfeature.Check{healthfeature.MongoCheck(deps.MongoClient)}
	if deps.Postgres != nil {
		checks = append(checks, healthfeature.Check{Name: "postgres", Ping: deps.Postgres.Ready})
	}
	healthHandler := healthfeature.NewHandler(logger, checks...)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Handle("/metrics", svc.Metrics.Handler())

	errHandler := errorsfeature.NewHandler()
	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	return r, nil
}
