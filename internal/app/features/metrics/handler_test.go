package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	errorsfeature "github.com/dalemusser/stratametrics/internal/app/features/errors"
	selectionstore "github.com/dalemusser/stratametrics/internal/app/store/selections"
	"github.com/dalemusser/stratametrics/internal/app/system/dashboard"
	"github.com/dalemusser/stratametrics/internal/app/system/daterange"
	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
	"github.com/dalemusser/stratametrics/internal/app/system/refresh"
	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.uber.org/zap"
)

var now = time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)

func ts(d time.Duration) string { return now.Add(d).Format(time.RFC3339) }

type memSelections struct {
	saved selectionstore.Saved
	has   bool
	err   error
}

func (m *memSelections) Get(context.Context) (selectionstore.Saved, error) {
	if m.err != nil {
		return selectionstore.Saved{}, m.err
	}
	if !m.has {
		return selectionstore.Saved{}, selectionstore.ErrNotFound
	}
	return m.saved, nil
}

func (m *memSelections) Save(_ context.Context, s selectionstore.Saved) error {
	if m.err != nil {
		return m.err
	}
	m.saved, m.has = s, true
	return nil
}

func newTestBoard() *dashboard.Board {
	b := dashboard.New(dashboard.Options{Now: func() time.Time { return now }})
	b.SetPayload(entity.KindAccount, map[string]any{"data": []any{
		map[string]any{"lastLogin": ts(-2 * time.Hour)},
		map[string]any{"lastLogin": ts(-45 * 24 * time.Hour)},
		map[string]any{}, // no lastLogin: falls back to the default status
	}})
	b.SetPayload(entity.KindEvent, []any{
		map[string]any{"fromDate": ts(-time.Hour), "toDate": ts(time.Hour)},
		map[string]any{"fromDate": ts(-72 * time.Hour), "toDate": ts(-48 * time.Hour)},
	})
	return b
}

func newTestHandler(t *testing.T, b *dashboard.Board, ref Refresher, sel SelectionStore) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	return Routes(NewHandler(b, ref, sel, errorsfeature.NewErrorLogger(logger), logger))
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestSummary(t *testing.T) {
	h := newTestHandler(t, newTestBoard(), nil, nil)

	t.Run("shared selection", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[SummaryResponse](t, rec)
		if !resp.Shared {
			t.Error("Shared = false for plain GET")
		}
		acc := resp.Domains[entity.KindAccount]
		if acc.Count != 3 || acc.Breakdown.Active != 2 || acc.Breakdown.Inactive != 1 {
			t.Errorf("account = %+v", acc)
		}
		if pkg := resp.Domains[entity.KindPackage]; pkg.Loaded || pkg.Count != 0 {
			t.Errorf("package = %+v, want unloaded zero", pkg)
		}
	})

	t.Run("ad-hoc selection", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/?status=active&range=today", "")
		resp := decode[SummaryResponse](t, rec)
		if resp.Shared {
			t.Error("Shared = true for ad-hoc query")
		}
		if got := resp.Domains[entity.KindEvent]; got.Count != 1 || got.Breakdown.Active != 1 {
			t.Errorf("event = %+v", got)
		}
		if resp.Filters.Status != "active" || resp.Filters.Range != "today" {
			t.Errorf("filters = %+v", resp.Filters)
		}
	})

	t.Run("invalid query", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/?status=maybe&range=custom&start=2025-02-30", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := decode[struct {
			Fields map[string]string `json:"fields"`
		}](t, rec)
		if body.Fields["status"] == "" || body.Fields["start"] == "" {
			t.Errorf("fields = %v", body.Fields)
		}
	})
}

func TestDomain(t *testing.T) {
	h := newTestHandler(t, newTestBoard(), nil, nil)

	tests := []struct {
		path      string
		wantCode  int
		wantCount int
	}{
		{"/event", http.StatusOK, 2},
		{"/events", http.StatusOK, 2},
		{"/Accounts?status=inactive", http.StatusOK, 1},
		{"/coach", http.StatusOK, 0},
		{"/widgets", http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if got := decode[DomainResponse](t, rec); got.Count != tt.wantCount {
				t.Errorf("count = %d, want %d", got.Count, tt.wantCount)
			}
		})
	}
}

func TestRecords(t *testing.T) {
	h := newTestHandler(t, newTestBoard(), nil, nil)

	rec := do(t, h, http.MethodGet, "/events/records?status=inactive", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Count   int              `json:"count"`
		Records []map[string]any `json:"records"`
	}](t, rec)
	if body.Count != 1 || len(body.Records) != 1 {
		t.Fatalf("body = %+v", body)
	}
	if body.Records[0]["toDate"] != ts(-48*time.Hour) {
		t.Errorf("record = %v", body.Records[0])
	}
}

func TestLogins(t *testing.T) {
	h := newTestHandler(t, newTestBoard(), nil, nil)

	rec := do(t, h, http.MethodGet, "/accounts/logins", "")
	body := decode[struct {
		Logins []string `json:"logins"`
	}](t, rec)
	if len(body.Logins) != 2 {
		t.Errorf("logins = %v, want 2 entries", body.Logins)
	}

	rec = do(t, h, http.MethodGet, "/accounts/logins?status=active", "")
	body = decode[struct {
		Logins []string `json:"logins"`
	}](t, rec)
	if len(body.Logins) != 1 || body.Logins[0] != ts(-2*time.Hour) {
		t.Errorf("active logins = %v", body.Logins)
	}
}

func TestFilters(t *testing.T) {
	b := newTestBoard()
	store := &memSelections{}
	h := newTestHandler(t, b, nil, store)

	rec := do(t, h, http.MethodGet, "/filters", "")
	if got := decode[FilterBody](t, rec); got.Status != "all" || got.Range != "all" {
		t.Errorf("default filters = %+v", got)
	}

	rec = do(t, h, http.MethodPut, "/filters", `{"status":"inactive","range":"custom","start":"2025-06-01","end":"2025-06-30"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}

	sel := b.Selection()
	if sel.Status != entitymetrics.FilterInactive || sel.Range.Preset != daterange.PresetCustom {
		t.Errorf("board selection = %+v", sel)
	}
	if !store.has || store.saved.Start != "2025-06-01" || store.saved.Status != "inactive" {
		t.Errorf("persisted = %+v", store.saved)
	}

	// The shared summary now reflects the new selection.
	rec = do(t, h, http.MethodGet, "/event", "")
	if got := decode[DomainResponse](t, rec); got.Count != 1 {
		t.Errorf("event count under inactive June range = %d, want 1", got.Count)
	}

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  string
			field string
		}{
			{"bad status", `{"status":"sometimes"}`, "status"},
			{"bad preset", `{"range":"fortnight"}`, "range"},
			{"inverted", `{"range":"custom","start":"2025-07-01","end":"2025-06-01"}`, "end"},
			{"bad end day", `{"start":"2025-06-01","end":"June 5"}`, "end"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(t, h, http.MethodPut, "/filters", tt.body)
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				body := decode[struct {
					Fields map[string]string `json:"fields"`
				}](t, rec)
				if body.Fields[tt.field] == "" {
					t.Errorf("fields = %v, want %q", body.Fields, tt.field)
				}
			})
		}
		if got := b.Selection(); got.Status != entitymetrics.FilterInactive {
			t.Errorf("invalid PUT changed selection to %+v", got)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		if rec := do(t, h, http.MethodPut, "/filters", `{"status":`); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("store failure does not fail request", func(t *testing.T) {
		h := newTestHandler(t, b, nil, &memSelections{err: errors.New("mongo down")})
		if rec := do(t, h, http.MethodPut, "/filters", `{"status":"all"}`); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestRefresh(t *testing.T) {
	t.Run("no sources", func(t *testing.T) {
		h := newTestHandler(t, newTestBoard(), nil, nil)
		if rec := do(t, h, http.MethodPost, "/refresh", ""); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		b := newTestBoard()
		loader := refresh.New(b, sources.Registry{
			entity.KindCoach: sources.Func(func(context.Context) (any, error) {
				return []any{map[string]any{"status": "active"}}, nil
			}),
			entity.KindEvent: sources.Func(func(context.Context) (any, error) {
				return nil, errors.New("upstream 502")
			}),
		}, refresh.Options{})
		h := newTestHandler(t, b, loader, nil)

		rec := do(t, h, http.MethodPost, "/refresh", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		resp := decode[RefreshResponse](t, rec)
		if resp.Refresh.Loaded[entity.KindCoach] != 1 || resp.Refresh.Failed[entity.KindEvent] == "" {
			t.Errorf("refresh = %+v", resp.Refresh)
		}
		if got := resp.Summary.Domains[entity.KindEvent].Count; got != 2 {
			t.Errorf("event count = %d, want previous 2", got)
		}
		if got := resp.Summary.Domains[entity.KindCoach].Count; got != 1 {
			t.Errorf("coach count = %d, want 1", got)
		}
	})
}

func TestRestoreSelection(t *testing.T) {
	tests := []struct {
		name  string
		store *memSelections
		want  dashboard.Selection
	}{
		{"nothing saved", &memSelections{}, dashboard.DefaultSelection()},
		{"store error", &memSelections{err: errors.New("down")}, dashboard.DefaultSelection()},
		{"invalid saved", &memSelections{has: true, saved: selectionstore.Saved{Status: "bogus"}}, dashboard.DefaultSelection()},
		{"valid saved", &memSelections{has: true, saved: selectionstore.Saved{Status: "active", Preset: "thisWeek"}},
			dashboard.Selection{Status: entitymetrics.FilterActive, Range: daterange.Range{Preset: daterange.PresetThisWeek}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := dashboard.New(dashboard.Options{})
			RestoreSelection(context.Background(), b, tt.store, zap.NewNop())
			if got := b.Selection(); !got.Equal(tt.want) {
				t.Errorf("selection = %+v, want %+v", got, tt.want)
			}
		})
	}
}
