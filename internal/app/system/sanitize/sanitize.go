// Package sanitize cleans user text before it is stored.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips control characters (keeping newlines and tabs), normalizes
// CRLF to LF and trims surrounding whitespace. Used for message bodies.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// PlainText removes every HTML element (and the content of script/style),
// then applies Text. Used for short single-line fields such as names,
// aliases and descriptions.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return Text(html.UnescapeString(strict.Sanitize(s)))
}
