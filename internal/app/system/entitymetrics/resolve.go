// internal/app/system/entitymetrics/resolve.go
package entitymetrics

import (
	"time"

	"github.com/dalemusser/stratametrics/internal/app/system/status"
	"github.com/dalemusser/stratametrics/internal/domain/entity"
)

// Status fields, in precedence order.
const (
	fieldIsActive = "isActive"
	fieldStatus   = "status"
)

// DateFields is the effective-date cascade. The first entry that parses wins.
var DateFields = []Accessor{
	Field("createdAt"),
	Field("created_at"),
	Field("createdDate"),
	Field("date"),
	Field("lastLogin"),
	Field("fromDate"),
	Field("startDate"),
	FirstOf("sessionDates"),
	Field("toDate"),
	Field("updatedAt"),
}

// ResolveStatus classifies a record from its own status fields:
// boolean isActive, then boolean status, then a status string from the
// shared vocabulary. Records with no usable signal are active.
func ResolveStatus(r entity.Record) bool {
	if v, ok := r.Get(fieldIsActive); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	if v, ok := r.Get(fieldStatus); ok {
		switch s := v.(type) {
		case bool:
			return s
		case string:
			if active, known := status.Classify(s); known {
				return active
			}
		}
	}
	return status.Default()
}

// ResolveDate returns the record's effective date using DateFields.
// Zone-less timestamps are read as UTC.
func ResolveDate(r entity.Record) (time.Time, bool) {
	return resolveDateIn(r, time.UTC)
}

func resolveDateIn(r entity.Record, loc *time.Location) (time.Time, bool) {
	return firstTime(r, loc, DateFields)
}
