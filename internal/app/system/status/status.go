// Package status holds the account status values shared by staff users.
package status

const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid reports whether s is a recognized account status.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}
