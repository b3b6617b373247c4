package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	StrictPolicy = bluemonday.StrictPolicy()

	// UGCPolicy keeps safe formatting (<p>, <b>, <i>, <a>, lists, <br>).
	UGCPolicy = bluemonday.UGCPolicy()
)

// Text strips all HTML and surrounding whitespace and returns plain text:
// the entities the policy escapes are decoded again, so "Rock & Roll" is
// stored as given.
// Use for: event titles and locations, review comments, profile fields.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(input)))
}

// HTML sanitizes rich text, allowing safe formatting tags.
// Use for: event descriptions.
func HTML(input string) string {
	return strings.TrimSpace(UGCPolicy.Sanitize(input))
}
