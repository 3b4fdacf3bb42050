// Package normalize turns loosely shaped upstream input into the forms the
// engine compares against. Use these helpers instead of scattered
// strings.ToLower and strings.TrimSpace calls.
package normalize

import "strings"

// Status normalizes a status value by trimming whitespace and converting to lowercase.
func Status(s string) string {
	return Token(s)
}

// Token normalizes an enumerated configuration or query value (status
// filter, preset name, source backend).
func Token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
