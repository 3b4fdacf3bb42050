// internal/app/system/dashboard/board.go
// Package dashboard holds the four domain record sets and the operator's
// filter selection, and serves memoized aggregates for them.
package dashboard

import (
	"sync"
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/daterange"
	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.uber.org/zap"
)

// Selection is the operator's current filter choice.
type Selection struct {
	Status entitymetrics.StatusFilter `json:"status"`
	Range  daterange.Range            `json:"range"`
}

// DefaultSelection counts everything.
func DefaultSelection() Selection {
	return Selection{Status: entitymetrics.FilterAll, Range: daterange.All()}
}

// Equal reports whether two selections are the same.
func (s Selection) Equal(o Selection) bool {
	return s.Status == o.Status && s.Range.Equal(o.Range)
}

// DomainInfo describes what is currently loaded for one kind.
type DomainInfo struct {
	Loaded    bool      `json:"loaded"`
	Records   int       `json:"records"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Snapshot is the full set of numbers for one selection.
type Snapshot struct {
	Selection  Selection                            `json:"selection"`
	Boundary   *entitymetrics.Boundary              `json:"boundary,omitempty"`
	Results    map[entity.Kind]entitymetrics.Result `json:"results"`
	Domains    map[entity.Kind]DomainInfo           `json:"domains"`
	Logins     []string                             `json:"logins"`
	ComputedAt time.Time                            `json:"computedAt"`
}

// Observer is notified when records load and when a domain is recomputed.
type Observer interface {
	RecordsLoaded(kind entity.Kind, n int)
	Recomputed(kind entity.Kind, res entitymetrics.Result)
}

// Options configures a Board.
type Options struct {
	Now               func() time.Time
	Location          *time.Location
	AccountWindow     time.Duration
	RecomputeInterval time.Duration // memo lifetime; zero keeps results until an input changes
	Observer          Observer
	Logger            *zap.Logger
}

type domain struct {
	records   []entity.Record
	version   uint64
	loaded    bool
	updatedAt time.Time
}

type memoEntry struct {
	version uint64
	result  entitymetrics.Result
	logins  []string
}

// Board is safe for concurrent use.
type Board struct {
	opts Options

	mu         sync.Mutex
	domains    map[entity.Kind]*domain
	sel        Selection
	selVersion uint64

	memo         map[entity.Kind]memoEntry
	memoSel      uint64
	memoAt       time.Time
	memoBoundary *entitymetrics.Boundary
}

// New creates a Board with the default selection and no records.
func New(opts Options) *Board {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	b := &Board{
		opts:    opts,
		domains: make(map[entity.Kind]*domain, len(entity.Kinds())),
		sel:     DefaultSelection(),
		memo:    make(map[entity.Kind]memoEntry),
	}
	for _, k := range entity.Kinds() {
		b.domains[k] = &domain{}
	}
	return b
}

// Location returns the operator time zone used for presets and zone-less dates.
func (b *Board) Location() *time.Location {
	return b.opts.Location
}

// SetPayload normalizes a raw upstream payload and replaces kind's records.
func (b *Board) SetPayload(kind entity.Kind, payload any) int {
	recs := normalize.Records(payload)
	b.SetRecords(kind, recs)
	return len(recs)
}

// SetRecords replaces kind's records. Other domains are untouched.
func (b *Board) SetRecords(kind entity.Kind, recs []entity.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.domains[kind]
	if !ok {
		b.opts.Logger.Warn("ignoring records for unknown kind", zap.String("kind", string(kind)))
		return
	}
	d.records = recs
	d.version++
	d.loaded = true
	d.updatedAt = b.opts.Now()

	if b.opts.Observer != nil {
		b.opts.Observer.RecordsLoaded(kind, len(recs))
	}
}

// Selection returns the current filter selection.
func (b *Board) Selection() Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel
}

// SetStatusFilter changes the status filter.
func (b *Board) SetStatusFilter(f entitymetrics.StatusFilter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sel.Status != f {
		b.sel.Status = f
		b.selVersion++
	}
}

// SetDateRange changes the date range.
func (b *Board) SetDateRange(r daterange.Range) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sel.Range.Equal(r) {
		b.sel.Range = r
		b.selVersion++
	}
}

// SetSelection replaces both filters at once.
func (b *Board) SetSelection(sel Selection) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.sel.Equal(sel) {
		b.sel = sel
		b.selVersion++
	}
}

// Snapshot returns the aggregates for the current selection. A domain is
// recomputed only when its records or the selection changed, or when the
// memo is older than RecomputeInterval.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.opts.Now()
	if b.memoStale(now) {
		b.memo = make(map[entity.Kind]memoEntry, len(b.domains))
		b.memoSel = b.selVersion
		b.memoAt = now
		b.memoBoundary = b.sel.Range.Boundary(now, b.opts.Location)
	}

	env := b.env(b.memoAt)
	snap := b.newSnapshot(b.sel, b.memoBoundary, b.memoAt)
	for _, k := range entity.Kinds() {
		d := b.domains[k]
		m, ok := b.memo[k]
		if !ok || m.version != d.version {
			start := time.Now()
			m = compute(k, d.records, b.sel.Status, b.memoBoundary, env)
			m.version = d.version
			b.memo[k] = m
			b.opts.Logger.Debug("recomputed domain metrics",
				zap.String("kind", string(k)),
				zap.Int("records", len(d.records)),
				zap.Int("count", m.result.Count),
				zap.Duration("took", time.Since(start)))
			if b.opts.Observer != nil {
				b.opts.Observer.Recomputed(k, m.result)
			}
		}
		snap.Results[k] = m.result
		if k == entity.KindAccount {
			snap.Logins = m.logins
		}
	}
	return snap
}

// Evaluate computes aggregates for an ad-hoc selection without touching the
// shared selection or the memo.
func (b *Board) Evaluate(sel Selection) Snapshot {
	b.mu.Lock()
	recs := make(map[entity.Kind][]entity.Record, len(b.domains))
	for k, d := range b.domains {
		recs[k] = d.records
	}
	now := b.opts.Now()
	boundary := sel.Range.Boundary(now, b.opts.Location)
	snap := b.newSnapshot(sel, boundary, now)
	b.mu.Unlock()

	env := b.env(now)
	for _, k := range entity.Kinds() {
		m := compute(k, recs[k], sel.Status, boundary, env)
		snap.Results[k] = m.result
		if k == entity.KindAccount {
			snap.Logins = m.logins
		}
	}
	return snap
}

// Records returns kind's records passing sel, in load order.
func (b *Board) Records(kind entity.Kind, sel Selection) []entity.Record {
	b.mu.Lock()
	d, ok := b.domains[kind]
	var recs []entity.Record
	if ok {
		recs = d.records
	}
	now := b.opts.Now()
	b.mu.Unlock()

	boundary := sel.Range.Boundary(now, b.opts.Location)
	return entitymetrics.Select(recs, sel.Status, boundary, entitymetrics.For(kind, b.env(now)))
}

func (b *Board) memoStale(now time.Time) bool {
	if b.memoAt.IsZero() || b.memoSel != b.selVersion {
		return true
	}
	iv := b.opts.RecomputeInterval
	return iv > 0 && now.Sub(b.memoAt) >= iv
}

func (b *Board) env(now time.Time) entitymetrics.Env {
	return entitymetrics.Env{
		Now:           now,
		AccountWindow: b.opts.AccountWindow,
		Location:      b.opts.Location,
	}
}

// newSnapshot must be called with b.mu held.
func (b *Board) newSnapshot(sel Selection, boundary *entitymetrics.Boundary, at time.Time) Snapshot {
	snap := Snapshot{
		Selection:  sel,
		Boundary:   boundary,
		Results:    make(map[entity.Kind]entitymetrics.Result, len(b.domains)),
		Domains:    make(map[entity.Kind]DomainInfo, len(b.domains)),
		Logins:     []string{},
		ComputedAt: at,
	}
	for k, d := range b.domains {
		snap.Domains[k] = DomainInfo{Loaded: d.loaded, Records: len(d.records), UpdatedAt: d.updatedAt}
	}
	return snap
}

// compute runs the aggregator for one domain.
func compute(kind entity.Kind, recs []entity.Record, f entitymetrics.StatusFilter, boundary *entitymetrics.Boundary, env entitymetrics.Env) memoEntry {
	s := entitymetrics.For(kind, env)
	m := memoEntry{result: entitymetrics.Aggregate(recs, f, boundary, s)}
	if as, ok := s.(entitymetrics.AccountStrategy); ok {
		m.logins = entitymetrics.LoginTimestamps(recs, f, boundary, as)
	}
	return m
}
