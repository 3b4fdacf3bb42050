// internal/app/system/entitymetrics/strategy.go
package entitymetrics

import (
	"time"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
)

// DefaultAccountWindow is how recently an account must have logged in to count as active.
const DefaultAccountWindow = 30 * 24 * time.Hour

// Field cascades used by the temporal strategies.
var (
	AccountLoginFields = []Accessor{Field("lastLogin")}
	EventStartFields   = []Accessor{Field("fromDate"), Field("startDate"), Field("date")}
	EventEndFields     = []Accessor{Field("toDate"), Field("endDate")}
	PackageDateFields  = []Accessor{Field("startDate"), Field("fromDate"), Field("date")}
)

// packageSessionList holds a package's scheduled session dates.
const packageSessionList = "sessionDates"

// Env carries the inputs a strategy needs besides the record itself.
type Env struct {
	Now           time.Time
	AccountWindow time.Duration  // zero means DefaultAccountWindow
	Location      *time.Location // zone for timestamps without an offset; nil means UTC
}

func (e Env) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e Env) accountWindow() time.Duration {
	if e.AccountWindow <= 0 {
		return DefaultAccountWindow
	}
	return e.AccountWindow
}

// Strategy is the per-kind activity policy used by the aggregator.
type Strategy interface {
	Kind() entity.Kind
	ResolveStatus(r entity.Record) bool
	ResolveDate(r entity.Record) (time.Time, bool)
}

// For returns the strategy for kind. Unknown kinds get the coach (default) policy.
func For(kind entity.Kind, env Env) Strategy {
	switch kind {
	case entity.KindAccount:
		return AccountStrategy{Env: env}
	case entity.KindEvent:
		return EventStrategy{Env: env}
	case entity.KindPackage:
		return PackageStrategy{Env: env}
	}
	return CoachStrategy{Env: env}
}

// AccountStrategy treats an account as active when it logged in recently.
type AccountStrategy struct{ Env }

func (AccountStrategy) Kind() entity.Kind { return entity.KindAccount }

func (s AccountStrategy) ResolveStatus(r entity.Record) bool {
	if last, ok := s.LastLogin(r); ok {
		return s.Now.Sub(last) <= s.accountWindow()
	}
	return ResolveStatus(r)
}

func (s AccountStrategy) ResolveDate(r entity.Record) (time.Time, bool) {
	return resolveDateIn(r, s.location())
}

// LastLogin returns the account's parsed lastLogin.
func (s AccountStrategy) LastLogin(r entity.Record) (time.Time, bool) {
	return firstTime(r, s.location(), AccountLoginFields)
}

// EventStrategy keeps an event active until its end has passed.
// An event with only a start date ends at its start.
type EventStrategy struct{ Env }

func (EventStrategy) Kind() entity.Kind { return entity.KindEvent }

func (s EventStrategy) ResolveStatus(r entity.Record) bool {
	loc := s.location()
	start, hasStart := firstTime(r, loc, EventStartFields)
	end, hasEnd := firstTime(r, loc, EventEndFields)
	if !hasEnd {
		if !hasStart {
			return ResolveStatus(r)
		}
		end = start
	}
	return !end.Before(s.Now)
}

func (s EventStrategy) ResolveDate(r entity.Record) (time.Time, bool) {
	return resolveDateIn(r, s.location())
}

// PackageStrategy treats a package as active while any of its dates is still ahead.
type PackageStrategy struct{ Env }

func (PackageStrategy) Kind() entity.Kind { return entity.KindPackage }

func (s PackageStrategy) ResolveStatus(r entity.Record) bool {
	dates := allTimes(r, s.location(), []string{packageSessionList}, PackageDateFields)
	if len(dates) == 0 {
		return ResolveStatus(r)
	}
	for _, d := range dates {
		if !d.Before(s.Now) {
			return true
		}
	}
	return false
}

func (s PackageStrategy) ResolveDate(r entity.Record) (time.Time, bool) {
	return resolveDateIn(r, s.location())
}

// CoachStrategy has no temporal signal and uses the record's own status.
type CoachStrategy struct{ Env }

func (CoachStrategy) Kind() entity.Kind { return entity.KindCoach }

func (CoachStrategy) ResolveStatus(r entity.Record) bool { return ResolveStatus(r) }

func (s CoachStrategy) ResolveDate(r entity.Record) (time.Time, bool) {
	return resolveDateIn(r, s.location())
}
