// Package extract turns fetched pages into candidate records, either by CSS
// selectors over HTML or by JSON paths over response bodies.
package extract

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// quoteMarks wrap quote texts on most quote sites.
const quoteMarks = "\"“”«»„"

// cleanText normalises to NFC, drops non-printable runes and collapses
// whitespace runs to a single space.
func cleanText(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if !unicode.IsPrint(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// stripQuotes removes surrounding quote marks.
func stripQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, quoteMarks))
}

// resolve makes ref absolute against base. On parse failure ref is
// returned unchanged.
func resolve(base, ref string) string {
	if ref == "" || base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
