package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
)

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("bad fixture %q: %v", s, err)
	}
	return v
}

func TestRecords_EnvelopeShapes(t *testing.T) {
	list := `[{"id":1,"status":"active"},{"id":2,"isActive":false}]`
	shapes := map[string]string{
		"bare":         list,
		"data":         `{"data":` + list + `}`,
		"data.data":    `{"data":{"data":` + list + `}}`,
		"data.data+xs": `{"meta":{"total":2},"data":{"page":1,"data":` + list + `}}`,
	}

	want := Records(decode(t, list))
	if len(want) != 2 {
		t.Fatalf("bare list normalized to %d records, want 2", len(want))
	}

	for name, payload := range shapes {
		t.Run(name, func(t *testing.T) {
			got := Records(decode(t, payload))
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Records(%s) = %v, want %v", name, got, want)
			}
		})
	}
}

func TestRecords_Unrecognized(t *testing.T) {
	tests := []struct {
		name    string
		payload any
	}{
		{"nil", nil},
		{"string", "oops"},
		{"number", 42.0},
		{"empty object", map[string]any{}},
		{"data is string", map[string]any{"data": "x"}},
		{"data.data is object", map[string]any{"data": map[string]any{"data": map[string]any{}}}},
		{"triple wrap", map[string]any{"data": map[string]any{"data": map[string]any{"data": []any{}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Records(tt.payload)
			if got == nil {
				t.Fatal("Records() returned nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("Records() len = %d, want 0", len(got))
			}
		})
	}
}

func TestRecords_NonObjectElements(t *testing.T) {
	got := Records([]any{map[string]any{"id": "a"}, "junk", nil, 7.0})
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	if got[0]["id"] != "a" {
		t.Errorf("first record id = %v, want a", got[0]["id"])
	}
	for i := 1; i < 4; i++ {
		if got[i] != nil {
			t.Errorf("element %d = %v, want nil record", i, got[i])
		}
	}
}

func TestRecords_BSONShapes(t *testing.T) {
	docs := bson.A{bson.M{"status": "draft"}, bson.D{{Key: "status", Value: "active"}}}

	got := Records(bson.M{"data": docs})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["status"] != "draft" || got[1]["status"] != "active" {
		t.Errorf("Records() = %v", got)
	}

	typed := Records([]entity.Record{{"a": 1}})
	if len(typed) != 1 || typed[0]["a"] != 1 {
		t.Errorf("typed list not returned as-is: %v", typed)
	}
}

func TestRecords_DoesNotMutateInput(t *testing.T) {
	in := []any{map[string]any{"status": "active"}}
	_ = Records(map[string]any{"data": in})
	if m, ok := in[0].(map[string]any); !ok || len(m) != 1 || m["status"] != "active" {
		t.Errorf("input mutated: %v", in)
	}
}
