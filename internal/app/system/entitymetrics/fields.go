// Package entitymetrics classifies upstream records as active or inactive,
// picks an effective date for each, and counts them under a status filter and
// an optional date boundary.
//
// Every function in this package is pure: records are never modified and the
// current time is always an explicit input, so results can be memoized by
// the caller.
package entitymetrics

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Accessor reads one candidate value from a record.
type Accessor struct {
	Name  string
	Value func(entity.Record) (any, bool)
}

// Field reads a top-level field.
func Field(name string) Accessor {
	return Accessor{
		Name: name,
		Value: func(r entity.Record) (any, bool) {
			v, ok := r.Get(name)
			return v, ok && v != nil
		},
	}
}

// FirstOf reads the first element of a list field.
func FirstOf(name string) Accessor {
	return Accessor{
		Name: name + "[0]",
		Value: func(r entity.Record) (any, bool) {
			v, ok := r.Get(name)
			if !ok {
				return nil, false
			}
			list := listValues(v)
			if len(list) == 0 || list[0] == nil {
				return nil, false
			}
			return list[0], true
		},
	}
}

// listValues flattens the list types that decoders produce.
func listValues(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case bson.A:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	case []time.Time:
		out := make([]any, len(list))
		for i, t := range list {
			out[i] = t
		}
		return out
	}
	return nil
}

// zonedLayouts carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// localLayouts have no offset and are read in the caller's location.
// A bare date is midnight of that calendar day.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime converts a raw field value into an instant.
// Numbers are Unix epoch milliseconds. Anything else that does not parse
// reports false.
func parseTime(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case primitive.DateTime:
		return t.Time(), true
	case string:
		return parseTimeString(t, loc)
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC(), true
	case float64:
		return time.UnixMilli(int64(t)).UTC(), true
	case int64:
		return time.UnixMilli(t).UTC(), true
	case int:
		return time.UnixMilli(int64(t)).UTC(), true
	case int32:
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

func parseTimeString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// firstTime returns the first accessor value that parses as an instant.
func firstTime(r entity.Record, loc *time.Location, accessors []Accessor) (time.Time, bool) {
	for _, a := range accessors {
		v, ok := a.Value(r)
		if !ok {
			continue
		}
		if t, ok := parseTime(v, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// allTimes returns every value of the accessors and list fields that parses.
func allTimes(r entity.Record, loc *time.Location, lists []string, accessors []Accessor) []time.Time {
	var out []time.Time
	for _, name := range lists {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		for _, el := range listValues(v) {
			if t, ok := parseTime(el, loc); ok {
				out = append(out, t)
			}
		}
	}
	for _, a := range accessors {
		v, ok := a.Value(r)
		if !ok {
			continue
		}
		if t, ok := parseTime(v, loc); ok {
			out = append(out, t)
		}
	}
	return out
}
