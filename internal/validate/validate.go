// Package validate provides input sanitization for visitor-supplied text.
package validate

import "strings"

// maxEmailLength is the RFC 5321 overall address limit.
const maxEmailLength = 254

// SanitizeLine makes a string safe to embed in a mail header field by
// replacing every CR and LF with a space, then trimming surrounding
// whitespace. An empty input yields an empty string.
func SanitizeLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// ValidEmail reports whether s looks like a deliverable address: exactly one
// "@", a non-empty local part, a dot somewhere in the domain, no whitespace,
// and a sane overall length. This is a syntactic sanity check, not full RFC
// validation.
func ValidEmail(s string) bool {
	if s == "" || len(s) > maxEmailLength {
		return false
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	// The dot must be inside the domain, not leading or trailing.
	return dot > 0 && dot < len(domain)-1
}
