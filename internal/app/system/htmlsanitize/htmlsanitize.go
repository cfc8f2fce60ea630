// Package htmlsanitize strips markup from user- and editor-supplied text.
//
// Profile fields are stored as plain text, and article summaries are
// measured for reading time after tags are removed.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// StripTags removes every HTML element and returns unescaped text.
// Surrounding whitespace is trimmed.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s contains no tag opener.
func IsPlainText(s string) bool {
	return !strings.ContainsRune(s, '<')
}
