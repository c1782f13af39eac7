// Package normalize trims and case-folds user-supplied values before they are
// compared or stored.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name collapses runs of whitespace and preserves case.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims and lowercases a staff login name.
func Username(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases an applicant or account status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role trims and lowercases a staff role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
