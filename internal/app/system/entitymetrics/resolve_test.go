package entitymetrics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// ago formats testNow-d as RFC 3339.
func ago(d time.Duration) string {
	return testNow.Add(-d).Format(time.RFC3339)
}

const day = 24 * time.Hour

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name string
		rec  entity.Record
		want bool
	}{
		{"isActive true", entity.Record{"isActive": true, "status": "disabled"}, true},
		{"isActive false", entity.Record{"isActive": false, "status": "active"}, false},
		{"isActive non-bool ignored", entity.Record{"isActive": "no", "status": "draft"}, false},
		{"status bool false", entity.Record{"status": false}, false},
		{"status bool true", entity.Record{"status": true}, true},
		{"status published", entity.Record{"status": "Published"}, true},
		{"status archived", entity.Record{"status": "ARCHIVED"}, false},
		{"status blocked", entity.Record{"status": " blocked "}, false},
		{"unknown status string", entity.Record{"status": "pending"}, true},
		{"numeric status", entity.Record{"status": 0.0}, true},
		{"no fields", entity.Record{}, true},
		{"nil record", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStatus(tt.rec); got != tt.want {
				t.Errorf("ResolveStatus(%v) = %v, want %v", tt.rec, got, tt.want)
			}
		})
	}
}

func TestResolveDate(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		rec    entity.Record
		want   time.Time
		wantOK bool
	}{
		{"createdAt wins", entity.Record{"createdAt": "2024-01-02T03:04:05Z", "updatedAt": "2025-01-01T00:00:00Z"}, created, true},
		{"invalid createdAt skipped", entity.Record{"createdAt": "not a date", "created_at": "2024-01-02T03:04:05Z"}, created, true},
		{"createdDate", entity.Record{"createdDate": "2024-01-02T03:04:05Z"}, created, true},
		{"date before lastLogin", entity.Record{"lastLogin": "2025-01-01T00:00:00Z", "date": "2024-01-02T03:04:05Z"}, created, true},
		{"first session date", entity.Record{"sessionDates": []any{"2024-01-02T03:04:05Z", "2025-01-01T00:00:00Z"}}, created, true},
		{"startDate before sessionDates", entity.Record{"sessionDates": []any{"2025-01-01T00:00:00Z"}, "startDate": "2024-01-02T03:04:05Z"}, created, true},
		{"empty sessionDates falls through", entity.Record{"sessionDates": []any{}, "toDate": "2024-01-02T03:04:05Z"}, created, true},
		{"updatedAt last", entity.Record{"updatedAt": "2024-01-02T03:04:05Z"}, created, true},
		{"date only is midnight", entity.Record{"date": "2024-01-02"}, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"epoch millis", entity.Record{"createdAt": float64(created.UnixMilli())}, created, true},
		{"json number", entity.Record{"createdAt": json.Number("1704164645000")}, created, true},
		{"bson datetime", entity.Record{"created_at": primitive.NewDateTimeFromTime(created)}, created, true},
		{"time value", entity.Record{"createdAt": created}, created, true},
		{"bson session list", entity.Record{"sessionDates": bson.A{primitive.NewDateTimeFromTime(created)}}, created, true},
		{"nothing parses", entity.Record{"createdAt": "garbage", "updatedAt": true}, time.Time{}, false},
		{"empty", entity.Record{}, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveDate(tt.rec)
			if ok != tt.wantOK {
				t.Fatalf("ResolveDate() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ResolveDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDateFields_Order(t *testing.T) {
	want := []string{
		"createdAt", "created_at", "createdDate", "date", "lastLogin",
		"fromDate", "startDate", "sessionDates[0]", "toDate", "updatedAt",
	}
	if len(DateFields) != len(want) {
		t.Fatalf("len(DateFields) = %d, want %d", len(DateFields), len(want))
	}
	for i, a := range DateFields {
		if a.Name != want[i] {
			t.Errorf("DateFields[%d] = %q, want %q", i, a.Name, want[i])
		}
	}
}

func TestParseTime_LocalLayouts(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	got, ok := parseTime("2024-03-01T09:30:00", loc)
	if !ok {
		t.Fatal("zone-less timestamp did not parse")
	}
	want := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTime() = %v, want %v", got, want)
	}
}

func TestParseTime_DateOnlyInLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}
	tests := []struct {
		name string
		loc  *time.Location
		want time.Time
	}{
		{"utc", time.UTC, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)},
		{"west of utc", ny, time.Date(2024, 5, 10, 0, 0, 0, 0, ny)},
		{"east of utc", time.FixedZone("UTC+9", 9*3600), time.Date(2024, 5, 9, 15, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTime("2024-05-10", tt.loc)
			if !ok {
				t.Fatal("date-only string did not parse")
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTime_EpochMillisIsUTC(t *testing.T) {
	got, ok := parseTime(float64(1704164645000), time.FixedZone("UTC-5", -5*3600))
	if !ok {
		t.Fatal("epoch millis did not parse")
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}
