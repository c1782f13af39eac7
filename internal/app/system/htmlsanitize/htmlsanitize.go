// Package htmlsanitize strips markup from user-supplied free text before it is
// stored. Applicant records are plain text; no tags survive.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes all HTML from s, unescapes the entities bluemonday emits
// for text content, and trims surrounding whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
