// Package nationalid normalizes and formats national identification numbers
// (CPF). Stored values may carry punctuation; lookups and uniqueness use the
// digit-only form.
package nationalid

import "strings"

// Length is the number of digits in a well-formed national ID.
const Length = 11

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders an 11-digit ID as XXX.XXX.XXX-XX. Anything that does not
// reduce to exactly 11 digits is returned unchanged.
func Format(s string) string {
	d := Digits(s)
	if len(d) != Length {
		return s
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}

// Valid reports whether s reduces to exactly 11 digits.
func Valid(s string) bool {
	return len(Digits(s)) == Length
}
