// internal/app/system/normalize/records.go
package normalize

import (
	"github.com/dalemusser/stratametrics/internal/domain/entity"
	"go.mongodb.org/mongo-driver/bson"
)

// envelopeKey is the field upstream APIs wrap their lists in.
const envelopeKey = "data"

// Records extracts the record list from an upstream payload.
//
// Accepted shapes, checked in order:
//   - a bare list
//   - {"data": [...]}
//   - {"data": {"data": [...]}}
//
// Any other shape yields an empty slice. Records never fails: a malformed
// response degrades to zero records instead of an error. List elements that
// are not objects are kept as nil records so positions are preserved.
func Records(payload any) []entity.Record {
	if list, ok := asList(payload); ok {
		return list
	}
	outer, ok := asObject(payload)
	if !ok {
		return []entity.Record{}
	}
	if list, ok := asList(outer[envelopeKey]); ok {
		return list
	}
	inner, ok := asObject(outer[envelopeKey])
	if !ok {
		return []entity.Record{}
	}
	if list, ok := asList(inner[envelopeKey]); ok {
		return list
	}
	return []entity.Record{}
}

// asList converts any supported list type into records.
func asList(v any) ([]entity.Record, bool) {
	switch list := v.(type) {
	case []entity.Record:
		return list, true
	case []map[string]any:
		out := make([]entity.Record, len(list))
		for i, m := range list {
			out[i] = entity.Record(m)
		}
		return out, true
	case []bson.M:
		out := make([]entity.Record, len(list))
		for i, m := range list {
			out[i] = entity.Record(m)
		}
		return out, true
	case []any:
		return elements(list), true
	case bson.A:
		return elements(list), true
	}
	return nil, false
}

func elements(list []any) []entity.Record {
	out := make([]entity.Record, len(list))
	for i, el := range list {
		if obj, ok := asObject(el); ok {
			out[i] = obj
		}
	}
	return out
}

// asObject converts any supported object type into a record.
func asObject(v any) (entity.Record, bool) {
	switch obj := v.(type) {
	case entity.Record:
		return obj, true
	case map[string]any:
		return entity.Record(obj), true
	case bson.M:
		return entity.Record(obj), true
	case bson.D:
		out := make(entity.Record, len(obj))
		for _, e := range obj {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}
