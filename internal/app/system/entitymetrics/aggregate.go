// internal/app/system/entitymetrics/aggregate.go
package entitymetrics

import (
	"errors"
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
)

// StatusFilter restricts which classification is counted.
type StatusFilter string

// Status filter values.
const (
	FilterAll      StatusFilter = "all"
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
)

// ErrUnknownStatusFilter is returned for filter values outside all/active/inactive.
var ErrUnknownStatusFilter = errors.New("unknown status filter")

// ParseStatusFilter parses operator input. Empty input means FilterAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch f := StatusFilter(normalize.Token(s)); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterInactive:
		return f, nil
	}
	return "", ErrUnknownStatusFilter
}

// admits reports whether a record with the given classification passes f.
func (f StatusFilter) admits(active bool) bool {
	switch f {
	case FilterActive:
		return active
	case FilterInactive:
		return !active
	}
	return true
}

// Boundary is an inclusive instant range. Either side may be nil.
// A nil *Boundary means "all time".
type Boundary struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Contains reports whether t lies within the boundary.
func (b *Boundary) Contains(t time.Time) bool {
	if b == nil {
		return true
	}
	if b.Start != nil && t.Before(*b.Start) {
		return false
	}
	if b.End != nil && t.After(*b.End) {
		return false
	}
	return true
}

// Breakdown splits a count by classification.
type Breakdown struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// Result is the aggregate for one domain. Breakdown.Active+Breakdown.Inactive == Count.
type Result struct {
	Count     int       `json:"count"`
	Breakdown Breakdown `json:"breakdown"`
}

// match applies the status filter and then the date boundary.
// Under a boundary, records without an effective date are excluded.
func match(r entity.Record, filter StatusFilter, b *Boundary, s Strategy) (active bool, ok bool) {
	active = s.ResolveStatus(r)
	if !filter.admits(active) {
		return active, false
	}
	if b != nil {
		d, ok := s.ResolveDate(r)
		if !ok || !b.Contains(d) {
			return active, false
		}
	}
	return active, true
}

// Aggregate counts the records passing filter and b in a single pass.
func Aggregate(records []entity.Record, filter StatusFilter, b *Boundary, s Strategy) Result {
	var res Result
	for _, r := range records {
		active, ok := match(r, filter, b, s)
		if !ok {
			continue
		}
		res.Count++
		if active {
			res.Breakdown.Active++
		} else {
			res.Breakdown.Inactive++
		}
	}
	return res
}

// Count returns how many records pass filter and b.
func Count(records []entity.Record, filter StatusFilter, b *Boundary, s Strategy) int {
	return Aggregate(records, filter, b, s).Count
}

// BreakdownOf returns the active/inactive split of the records passing filter and b.
func BreakdownOf(records []entity.Record, filter StatusFilter, b *Boundary, s Strategy) Breakdown {
	return Aggregate(records, filter, b, s).Breakdown
}

// Select returns the records passing filter and b, in input order.
func Select(records []entity.Record, filter StatusFilter, b *Boundary, s Strategy) []entity.Record {
	out := make([]entity.Record, 0, len(records))
	for _, r := range records {
		if _, ok := match(r, filter, b, s); ok {
			out = append(out, r)
		}
	}
	return out
}

// LoginTimestamps projects the accounts passing filter and b onto their
// lastLogin, formatted as RFC 3339 in UTC. Accounts without a parseable lastLogin
// are omitted.
func LoginTimestamps(records []entity.Record, filter StatusFilter, b *Boundary, s AccountStrategy) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := match(r, filter, b, s); !ok {
			continue
		}
		if last, ok := s.LastLogin(r); ok {
			out = append(out, last.UTC().Format(time.RFC3339))
		}
	}
	return out
}
