// internal/app/features/health/health.go
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency probe.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name: "mongodb",
		Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
}

// Handler provides health check endpoints.
type Handler struct {
	checks  []Check
	timeout time.Duration
	logger  *zap.Logger
}

// NewHandler creates a health Handler. With no checks every probe reports ok.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{
		checks:  checks,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready and /livez endpoints directly on the root router.
// This is the standard convention for Kubernetes probes:
//   - /ready (or /readyz) - readiness probe
//   - /livez - liveness probe
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// probe runs every check and returns the per-service result.
func (h *Handler) probe(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	healthy := true
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			healthy = false
			services[c.Name] = "unavailable"
			h.logger.Warn("health check: ping failed", zap.String("service", c.Name), zap.Error(err))
			continue
		}
		services[c.Name] = "ok"
	}
	return services, healthy
}

// Check performs a full health check of every configured dependency.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services, healthy := h.probe(r.Context())
	resp := Response{Status: "ok", Services: services}
	if !healthy {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(resp)
}

// Ready checks if the service is ready to accept requests.
// Used by Kubernetes readiness probes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, healthy := h.probe(r.Context()); !healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	w.Write([]byte(`{"status":"ready"}`))
}

// Live checks if the service is alive.
// Used by Kubernetes liveness probes.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"alive"}`))
}
