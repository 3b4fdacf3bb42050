// internal/app/system/refresh/loader.go
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/sources"
	"github.com/dalemusser/stratametrics/internal/app/system/tasks"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink receives each domain's payload as soon as its fetch completes.
type Sink interface {
	SetPayload(kind entity.Kind, payload any) int
}

// FetchObserver is told about every fetch attempt.
type FetchObserver interface {
	FetchDone(kind entity.Kind, took time.Duration, err error)
}

// Result summarizes one refresh run.
type Result struct {
	RunID  string                 `json:"runId"`
	Loaded map[entity.Kind]int    `json:"loaded"`
	Failed map[entity.Kind]string `json:"failed,omitempty"`
	Took   time.Duration          `json:"took"`

	errs map[entity.Kind]error
}

// Err joins the per-domain failures, or returns nil when every fetch succeeded.
func (r Result) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	kinds := make([]string, 0, len(r.errs))
	for k := range r.errs {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	joined := make([]error, 0, len(kinds))
	for _, k := range kinds {
		joined = append(joined, fmt.Errorf("%s: %w", k, r.errs[entity.Kind(k)]))
	}
	return errors.Join(joined...)
}

// Options configures a Loader.
type Options struct {
	Timeout     time.Duration // per-domain fetch bound; zero leaves it to ctx
	Concurrency int           // parallel fetches; zero fetches every domain at once
	Observer    FetchObserver
	Logger      *zap.Logger
}

// Loader fetches every registered domain and hands each payload to the sink.
type Loader struct {
	sink    Sink
	sources sources.Registry
	opts    Options

	mu      sync.Mutex
	last    Result
	hasLast bool
}

// New creates a Loader.
func New(sink Sink, reg sources.Registry, opts Options) *Loader {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Loader{sink: sink, sources: reg, opts: opts}
}

// Kinds returns the kinds this loader populates.
func (l *Loader) Kinds() []entity.Kind { return l.sources.Kinds() }

// Refresh fetches all domains concurrently. A failed domain keeps whatever
// the sink already holds for it; the others are applied independently.
func (l *Loader) Refresh(ctx context.Context) Result {
	start := time.Now()
	res := Result{
		RunID:  uuid.NewString(),
		Loaded: make(map[entity.Kind]int),
		Failed: make(map[entity.Kind]string),
		errs:   make(map[entity.Kind]error),
	}
	log := l.opts.Logger.With(zap.String("run_id", res.RunID))

	var mu sync.Mutex
	var g errgroup.Group
	if l.opts.Concurrency > 0 {
		g.SetLimit(l.opts.Concurrency)
	}
	for _, kind := range l.sources.Kinds() {
		kind, src := kind, l.sources[kind]
		g.Go(func() error {
			n, err := l.fetchOne(ctx, kind, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.errs[kind] = err
				res.Failed[kind] = err.Error()
				log.Warn("domain fetch failed", zap.String("kind", string(kind)), zap.Error(err))
				return nil
			}
			res.Loaded[kind] = n
			return nil
		})
	}
	_ = g.Wait()

	res.Took = time.Since(start)
	log.Info("domain refresh finished",
		zap.Int("loaded", len(res.Loaded)),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("took", res.Took))

	l.mu.Lock()
	l.last, l.hasLast = res, true
	l.mu.Unlock()
	return res
}

// RefreshAll implements tasks.Refresher.
func (l *Loader) RefreshAll(ctx context.Context) error {
	return l.Refresh(ctx).Err()
}

// Last returns the most recent run, if any.
func (l *Loader) Last() (Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.hasLast
}

// Job adapts the loader to the background runner.
func (l *Loader) Job(interval time.Duration) tasks.Job {
	timeout := time.Duration(0)
	if l.opts.Timeout > 0 {
		timeout = 2 * l.opts.Timeout
	}
	return tasks.RefreshJob(l, interval, timeout, l.opts.Logger)
}

func (l *Loader) fetchOne(ctx context.Context, kind entity.Kind, src sources.Source) (int, error) {
	if l.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := src.Fetch(ctx)
	if l.opts.Observer != nil {
		l.opts.Observer.FetchDone(kind, time.Since(start), err)
	}
	if err != nil {
		return 0, err
	}
	return l.sink.SetPayload(kind, payload), nil
}
