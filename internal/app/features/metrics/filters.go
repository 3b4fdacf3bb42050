// internal/app/features/metrics/filters.go
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"

	selectionstore "github.com/dalemusser/stratametrics/internal/app/store/selections"
	"github.com/dalemusser/stratametrics/internal/app/system/dashboard"
	"github.com/dalemusser/stratametrics/internal/app/system/daterange"
	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// FilterBody is the wire form of a selection, used by GET/PUT /filters
// and as query parameters.
type FilterBody struct {
	Status string `json:"status"`
	Range  string `json:"range"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

func (f FilterBody) empty() bool {
	return strings.TrimSpace(f.Status+f.Range+f.Start+f.End) == ""
}

// toSelection validates f. Field errors are keyed by wire field name.
func (f FilterBody) toSelection() (dashboard.Selection, map[string]string) {
	fields := map[string]string{}
	sel := dashboard.DefaultSelection()

	st, err := entitymetrics.ParseStatusFilter(f.Status)
	if err != nil {
		fields["status"] = "must be all, active or inactive"
	} else {
		sel.Status = st
	}

	rng, err := daterange.Parse(f.Range, f.Start, f.End)
	switch {
	case err == nil:
		sel.Range = rng
	case errors.Is(err, daterange.ErrUnknownPreset):
		fields["range"] = "must be all, today, thisWeek, thisMonth, thisYear or custom"
	case errors.Is(err, daterange.ErrInvertedRange):
		fields["end"] = "must not be before start"
	case errors.Is(err, daterange.ErrInvalidDay):
		if _, e := daterange.ParseDay(f.Start); strings.TrimSpace(f.Start) != "" && e != nil {
			fields["start"] = "must be a date (YYYY-MM-DD)"
		} else {
			fields["end"] = "must be a date (YYYY-MM-DD)"
		}
	default:
		fields["range"] = err.Error()
	}

	if len(fields) > 0 {
		return dashboard.Selection{}, fields
	}
	return sel, nil
}

// filterBodyOf renders a selection in wire form.
func filterBodyOf(sel dashboard.Selection) FilterBody {
	out := FilterBody{Status: string(sel.Status), Range: string(sel.Range.Preset)}
	if out.Status == "" {
		out.Status = string(entitymetrics.FilterAll)
	}
	if out.Range == "" {
		out.Range = string(daterange.PresetAll)
	}
	if sel.Range.Start != nil {
		out.Start = sel.Range.Start.String()
	}
	if sel.Range.End != nil {
		out.End = sel.Range.End.String()
	}
	return out
}

// filterQuery reads the selection query parameters.
func filterQuery(r *http.Request) FilterBody {
	return FilterBody{
		Status: normalize.QueryParam(query.Get(r, "status")),
		Range:  normalize.QueryParam(query.Get(r, "range")),
		Start:  normalize.QueryParam(query.Get(r, "start")),
		End:    normalize.QueryParam(query.Get(r, "end")),
	}
}

// SelectionStore persists the shared selection.
type SelectionStore interface {
	Get(ctx context.Context) (selectionstore.Saved, error)
	Save(ctx context.Context, sel selectionstore.Saved) error
}

func savedOf(sel dashboard.Selection) selectionstore.Saved {
	b := filterBodyOf(sel)
	return selectionstore.Saved{Status: b.Status, Preset: b.Range, Start: b.Start, End: b.End}
}

// RestoreSelection loads the persisted selection into board. A missing or
// unreadable selection leaves the default in place.
func RestoreSelection(ctx context.Context, board *dashboard.Board, store SelectionStore, logger *zap.Logger) {
	saved, err := store.Get(ctx)
	if err != nil {
		if !errors.Is(err, selectionstore.ErrNotFound) {
			logger.Warn("could not load saved selection", zap.Error(err))
		}
		return
	}
	sel, fields := FilterBody{Status: saved.Status, Range: saved.Preset, Start: saved.Start, End: saved.End}.toSelection()
	if fields != nil {
		logger.Warn("ignoring invalid saved selection", zap.Any("fields", fields))
		return
	}
	board.SetSelection(sel)
	logger.Info("restored saved selection",
		zap.String("status", saved.Status),
		zap.String("range", saved.Preset))
}
