// Package normalize provides helper functions for consistent string normalization
// across the application. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls so slugs compare the same everywhere.
package normalize

import "strings"

// Slug normalizes a country slug by trimming whitespace and converting to lowercase.
// Slugs are the join key between the summary and history datasets.
func Slug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Label normalizes a display label by trimming whitespace and collapsing
// internal runs of whitespace to a single space.
func Label(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Flag reports whether a query or form value reads as "true".
// Accepts 1, true, yes and on in any case.
func Flag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
