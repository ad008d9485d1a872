// Package timefmt serializes timestamps for the database and the
// offline-message files.
package timefmt

import "time"

// Stamp is the second-precision UTC format used everywhere a
// timestamp is stored as text.
const Stamp = "2006-01-02T15:04:05Z"

// Format formats a time.Time to the standard string representation.
func Format(t time.Time) string {
	return t.UTC().Format(Stamp)
}

// Parse reads a stored timestamp; malformed input yields the zero
// time.
func Parse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
