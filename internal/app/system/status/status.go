// Package status provides canonical status values used throughout the application.
//
// Using these constants instead of string literals ensures consistency. The
// constants are plain strings (not a custom type) because upstream records
// carry status as free text.
package status

import "github.com/dalemusser/stratametrics/internal/app/system/normalize"

// Entity status values.
const (
	Active    = "active"
	Published = "published"
	Enabled   = "enabled"
	Approved  = "approved"

	Inactive = "inactive"
	Disabled = "disabled"
	Blocked  = "blocked"
	Archived = "archived"
	Draft    = "draft"
)

// ActiveValues are status strings that classify a record as active.
var ActiveValues = []string{Active, Published, Enabled, Approved}

// InactiveValues are status strings that classify a record as inactive.
var InactiveValues = []string{Inactive, Disabled, Blocked, Archived, Draft}

// Classify maps a free-text status to an activity classification.
// Matching is case-insensitive and ignores surrounding whitespace.
// known is false when s belongs to neither vocabulary.
func Classify(s string) (active bool, known bool) {
	s = normalize.Status(s)
	for _, v := range ActiveValues {
		if s == v {
			return true, true
		}
	}
	for _, v := range InactiveValues {
		if s == v {
			return false, true
		}
	}
	return false, false
}

// IsValid returns true if s is a recognized status value.
func IsValid(s string) bool {
	_, known := Classify(s)
	return known
}

// Default returns the classification for records whose status is unknown.
// Unknown records count as active so new vocabulary is not hidden.
func Default() bool {
	return true
}
