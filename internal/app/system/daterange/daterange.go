// Package daterange turns the operator's date-range selection into an
// instant boundary for the aggregator.
package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/normalize"
	"github.com/dalemusser/stratametrics/internal/app/system/entitymetrics"
)

// Preset names a canonical range relative to the current instant.
type Preset string

// Presets.
const (
	PresetAll       Preset = "all"
	PresetToday     Preset = "today"
	PresetThisWeek  Preset = "thisWeek"
	PresetThisMonth Preset = "thisMonth"
	PresetThisYear  Preset = "thisYear"
	PresetCustom    Preset = "custom"
)

var presets = []Preset{PresetAll, PresetToday, PresetThisWeek, PresetThisMonth, PresetThisYear, PresetCustom}

// Presets returns every preset in display order.
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}

var (
	ErrUnknownPreset = errors.New("unknown date range preset")
	ErrInvalidDay    = errors.New("invalid calendar day (want YYYY-MM-DD)")
	ErrInvertedRange = errors.New("range start is after range end")
)

const dayLayout = "2006-01-02"

// Day is a calendar day with no time zone attached.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDay parses YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t), nil
}

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) String() string {
	return d.Start(time.UTC).Format(dayLayout)
}

// Start returns the first instant of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// End returns the last instant of d in loc.
func (d Day) End(loc *time.Location) time.Time {
	return d.Start(loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// After reports whether d falls after o.
func (d Day) After(o Day) bool {
	return d.Start(time.UTC).After(o.Start(time.UTC))
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Range is an operator date-range selection. Start and End are only
// meaningful for PresetCustom and may each be nil.
type Range struct {
	Preset Preset `json:"preset"`
	Start  *Day   `json:"start,omitempty"`
	End    *Day   `json:"end,omitempty"`
}

// All is the "all time" selection.
func All() Range {
	return Range{Preset: PresetAll}
}

// Custom builds a custom range. A range with neither day set is All.
func Custom(start, end *Day) (Range, error) {
	if start == nil && end == nil {
		return All(), nil
	}
	if start != nil && end != nil && start.After(*end) {
		return Range{}, ErrInvertedRange
	}
	return Range{Preset: PresetCustom, Start: start, End: end}, nil
}

// ParsePreset matches a preset name, ignoring case, dashes and underscores
// ("this-week", "THIS_WEEK" and "thisWeek" are the same). Empty means all.
func ParsePreset(s string) (Preset, error) {
	key := foldPreset(s)
	if key == "" {
		return PresetAll, nil
	}
	for _, p := range presets {
		if foldPreset(string(p)) == key {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, s)
}

func foldPreset(s string) string {
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(normalize.Token(s))
}

// Parse builds a Range from operator input. Supplying start or end without a
// preset selects a custom range.
func Parse(preset, start, end string) (Range, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	p, err := ParsePreset(preset)
	if err != nil {
		return Range{}, err
	}
	if strings.TrimSpace(preset) == "" && (start != "" || end != "") {
		p = PresetCustom
	}
	if p != PresetCustom {
		return Range{Preset: p}, nil
	}

	var s, e *Day
	if start != "" {
		d, err := ParseDay(start)
		if err != nil {
			return Range{}, err
		}
		s = &d
	}
	if end != "" {
		d, err := ParseDay(end)
		if err != nil {
			return Range{}, err
		}
		e = &d
	}
	return Custom(s, e)
}

// IsAll reports whether r imposes no date constraint.
func (r Range) IsAll() bool {
	return r.Preset == "" || r.Preset == PresetAll
}

// Equal reports whether two selections are the same.
func (r Range) Equal(o Range) bool {
	return r.Preset == o.Preset && sameDay(r.Start, o.Start) && sameDay(r.End, o.End)
}

func sameDay(a, b *Day) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Boundary resolves r against now in loc. All yields nil.
func (r Range) Boundary(now time.Time, loc *time.Location) *entitymetrics.Boundary {
	if loc == nil {
		loc = time.UTC
	}
	today := DayOf(now.In(loc))

	var start, end time.Time
	switch r.Preset {
	case PresetToday:
		start, end = today.Start(loc), today.End(loc)
	case PresetThisWeek:
		start = weekStart(today).Start(loc)
		end = start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	case PresetThisMonth:
		start = time.Date(today.Year, today.Month, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case PresetThisYear:
		start = time.Date(today.Year, time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	case PresetCustom:
		b := &entitymetrics.Boundary{}
		if r.Start != nil {
			s := r.Start.Start(loc)
			b.Start = &s
		}
		if r.End != nil {
			e := r.End.End(loc)
			b.End = &e
		}
		return b
	default:
		return nil
	}
	return &entitymetrics.Boundary{Start: &start, End: &end}
}

// weekStart returns the Monday of the week containing d.
func weekStart(d Day) Day {
	t := d.Start(time.UTC)
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday = 7
	}
	return DayOf(t.AddDate(0, 0, -(weekday - 1)))
}
