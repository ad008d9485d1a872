// Package sanitize cleans client-supplied strings before they enter
// roster state or get fanned out to other users.
package sanitize

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds display names as stored on a status.
const MaxNameLength = 129

// MaxMessageLength bounds personal status messages.
const MaxMessageLength = 256

// clean removes control characters and limits the length in runes.
func clean(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}

// Name sanitizes a display name (the user's own or one assigned to a
// contact).
func Name(s string) string {
	return clean(s, MaxNameLength)
}

// Message sanitizes a personal status message.
func Message(s string) string {
	return clean(s, MaxMessageLength)
}
