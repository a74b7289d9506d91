// Package htmlsanitize strips markup from user-supplied text before it is
// stored or echoed back.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict allows no elements and no attributes. Policies are safe for
// concurrent use once built.
var strict = bluemonday.StrictPolicy()

// PlainText removes every HTML element from s, unescapes the entities
// bluemonday leaves behind, and trims surrounding whitespace. Registration
// fields (names, team names, idea titles) are plain text; anything that
// looks like markup is dropped rather than rendered.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
