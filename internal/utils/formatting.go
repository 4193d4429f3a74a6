package utils

import "strings"

// NormalizeName lowercases text and joins its whitespace separated words
// with underscores, so "Quality  Assurance" becomes "quality_assurance".
func NormalizeName(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), "_")
}

// IsBlank reports whether text has no non-whitespace characters.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
