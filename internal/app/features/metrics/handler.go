// Package metrics serves the dashboard aggregates over HTTP.
//
// Endpoints (mounted at /api/metrics):
//   - GET  /                  - all four domains for the shared (or ad-hoc) selection
//   - GET  /accounts/logins   - lastLogin timestamps of the selected accounts
//   - GET  /filters           - the shared selection
//   - PUT  /filters           - replace the shared selection
//   - POST /refresh           - refetch every domain now
//   - GET  /{kind}            - one domain's count and breakdown
//   - GET  /{kind}/records    - the records behind that count
package metrics

import (
	"context"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratametrics/internal/app/features/errors"
	"github.com/dalemusser/stratametrics/internal/app/system/dashboard"
	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
	"github.com/dalemusser/stratametrics/internal/app/system/jsonutil"
	"github.com/dalemusser/stratametrics/internal/app/system/refresh"
	"github.com/dalemusser/stratametrics/internal/app/system/timeouts"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Refresher reloads the domains on demand.
type Refresher interface {
	Refresh(ctx context.Context) refresh.Result
}

// Handler serves the metrics API.
type Handler struct {
	board      *dashboard.Board
	refresher  Refresher
	selections SelectionStore
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
}

// NewHandler creates a metrics Handler. refresher and selections may be nil.
func NewHandler(board *dashboard.Board, refresher Refresher, selections SelectionStore, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		board:      board,
		refresher:  refresher,
		selections: selections,
		errLog:     errLog,
		logger:     logger,
	}
}

// DomainResponse is one domain's numbers.
type DomainResponse struct {
	Kind      entity.Kind             `json:"kind"`
	Count     int                     `json:"count"`
	Breakdown entitymetrics.Breakdown `json:"breakdown"`
	Loaded    bool                    `json:"loaded"`
	Records   int                     `json:"records"`
	UpdatedAt *time.Time              `json:"updatedAt,omitempty"`
}

// SummaryResponse is the body of GET /api/metrics.
type SummaryResponse struct {
	Filters    FilterBody                     `json:"filters"`
	Shared     bool                           `json:"shared"`
	Domains    map[entity.Kind]DomainResponse `json:"domains"`
	ComputedAt time.Time                      `json:"computedAt"`
}

// snapshotFor serves the shared memoized snapshot unless the request
// carries its own selection.
func (h *Handler) snapshotFor(w http.ResponseWriter, r *http.Request) (dashboard.Snapshot, bool, bool) {
	fb := filterQuery(r)
	if fb.empty() {
		return h.board.Snapshot(), true, true
	}
	sel, fields := fb.toSelection()
	if fields != nil {
		jsonutil.ValidationError(w, fields)
		return dashboard.Snapshot{}, false, false
	}
	return h.board.Evaluate(sel), false, true
}

func domainOf(snap dashboard.Snapshot, k entity.Kind) DomainResponse {
	res := snap.Results[k]
	info := snap.Domains[k]
	out := DomainResponse{
		Kind:      k,
		Count:     res.Count,
		Breakdown: res.Breakdown,
		Loaded:    info.Loaded,
		Records:   info.Records,
	}
	if !info.UpdatedAt.IsZero() {
		at := info.UpdatedAt
		out.UpdatedAt = &at
	}
	return out
}

func summaryOf(snap dashboard.Snapshot, shared bool) SummaryResponse {
	out := SummaryResponse{
		Filters:    filterBodyOf(snap.Selection),
		Shared:     shared,
		Domains:    make(map[entity.Kind]DomainResponse, len(snap.Results)),
		ComputedAt: snap.ComputedAt,
	}
	for _, k := range entity.Kinds() {
		out.Domains[k] = domainOf(snap, k)
	}
	return out
}

// Summary handles GET /.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	snap, shared, ok := h.snapshotFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, summaryOf(snap, shared))
}

// kindParam resolves {kind}, writing 404 when it names no domain.
func kindParam(w http.ResponseWriter, r *http.Request) (entity.Kind, bool) {
	raw := chi.URLParam(r, "kind")
	k, ok := entity.ParseKind(raw)
	if !ok {
		jsonutil.NotFound(w, "unknown entity kind: "+raw)
		return "", false
	}
	return k, true
}

// Domain handles GET /{kind}.
func (h *Handler) Domain(w http.ResponseWriter, r *http.Request) {
	k, ok := kindParam(w, r)
	if !ok {
		return
	}
	snap, _, ok := h.snapshotFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, domainOf(snap, k))
}

// Records handles GET /{kind}/records.
func (h *Handler) Records(w http.ResponseWriter, r *http.Request) {
	k, ok := kindParam(w, r)
	if !ok {
		return
	}
	sel := h.board.Selection()
	if fb := filterQuery(r); !fb.empty() {
		var fields map[string]string
		if sel, fields = fb.toSelection(); fields != nil {
			jsonutil.ValidationError(w, fields)
			return
		}
	}
	recs := h.board.Records(k, sel)
	jsonutil.OK(w, map[string]any{
		"kind":    k,
		"filters": filterBodyOf(sel),
		"count":   len(recs),
		"records": recs,
	})
}

// Logins handles GET /accounts/logins.
func (h *Handler) Logins(w http.ResponseWriter, r *http.Request) {
	snap, _, ok := h.snapshotFor(w, r)
	if !ok {
		return
	}
	jsonutil.OK(w, map[string]any{"logins": snap.Logins})
}

// GetFilters handles GET /filters.
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	jsonutil.OK(w, filterBodyOf(h.board.Selection()))
}

// PutFilters handles PUT /filters.
func (h *Handler) PutFilters(w http.ResponseWriter, r *http.Request) {
	var in FilterBody
	if err := jsonutil.Decode(w, r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	sel, fields := in.toSelection()
	if fields != nil {
		jsonutil.ValidationError(w, fields)
		return
	}

	h.board.SetSelection(sel)
	h.logger.Info("shared selection changed",
		zap.String("status", string(sel.Status)),
		zap.String("range", string(sel.Range.Preset)))

	if h.selections != nil {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.logger, "save selection")
		defer cancel()
		if err := h.selections.Save(ctx, savedOf(sel)); err != nil {
			h.errLog.Log(r, "failed to persist selection", err)
		}
	}

	jsonutil.OK(w, filterBodyOf(sel))
}

// RefreshResponse is the body of POST /refresh.
type RefreshResponse struct {
	Refresh refresh.Result  `json:"refresh"`
	Summary SummaryResponse `json:"summary"`
}

// Refresh handles POST /refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.refresher == nil {
		jsonutil.Error(w, http.StatusServiceUnavailable, "no sources configured")
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Refresh(), h.logger, "manual refresh")
	defer cancel()

	res := h.refresher.Refresh(ctx)
	if err := res.Err(); err != nil {
		h.errLog.LogWithFields(r, "manual refresh incomplete", err, zap.String("run_id", res.RunID))
	}
	jsonutil.OK(w, RefreshResponse{Refresh: res, Summary: summaryOf(h.board.Snapshot(), true)})
}
