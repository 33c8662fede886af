package types

import "unicode/utf8"

const (
	// MaxBodyBytes caps message bodies at 64KB.
	MaxBodyBytes = 64 * 1024

	// MaxDisplayNameChars caps user display names.
	MaxDisplayNameChars = 100
)

// IsValidID reports whether id can identify a persisted row.
func IsValidID(id int64) bool {
	return id > 0
}

// IsValidBody reports whether body is acceptable as message content.
func IsValidBody(body string) bool {
	return len(body) > 0 && len(body) <= MaxBodyBytes
}

// IsValidDisplayName reports whether name is acceptable as a display name.
func IsValidDisplayName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= MaxDisplayNameChars
}
