// internal/domain/entity/entity.go
package entity

import "strings"

// Record is a single upstream record of unknown shape.
//
// Records are read-only once normalized. A nil Record is valid and behaves
// like a record with no fields.
type Record map[string]any

// Get returns the raw value stored under name.
func (r Record) Get(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[name]
	return v, ok
}

// Kind identifies which domain a record belongs to.
type Kind string

// Domain kinds.
const (
	KindAccount Kind = "account"
	KindEvent   Kind = "event"
	KindPackage Kind = "package"
	KindCoach   Kind = "coach"
)

// Kinds returns all domain kinds in display order.
func Kinds() []Kind {
	return []Kind{KindAccount, KindEvent, KindPackage, KindCoach}
}

// Plural returns the collection name used in URLs and payload keys.
func (k Kind) Plural() string {
	if k == KindCoach {
		return "coaches"
	}
	return string(k) + "s"
}

// ParseKind accepts singular or plural kind names, case-insensitively.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if s == string(k) || s == k.Plural() {
			return k, true
		}
	}
	return "", false
}
