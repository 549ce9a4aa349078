// Package htmlsanitize strips markup from untrusted text before it is shown
// in a page.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// MaxPlainLen caps sanitized plain text, in characters.
const MaxPlainLen = 500

// PlainText removes all HTML and trims the result. The output is plain
// text, not HTML: bluemonday's entity escaping is undone so html/template
// escapes it exactly once.
func PlainText(s string) string {
	out := html.UnescapeString(strict.Sanitize(s))
	return Truncate(strings.TrimSpace(out), MaxPlainLen)
}

// Truncate shortens s to at most n characters without splitting a
// multi-byte character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
