package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var keyFolder = cases.Fold()

// NormalizeKey reduces text to a comparison key: NFKC-normalized,
// case-folded, punctuation stripped, and interior whitespace collapsed to
// single spaces. Two entries that differ only in case, spacing, or trailing
// punctuation produce the same key.
func NormalizeKey(text string) string {
	text = norm.NFKC.String(strings.TrimSpace(text))
	if text == "" {
		return ""
	}
	text = keyFolder.String(text)

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsPunct(r):
			// Dropped entirely so "40%." and "40%" compare equal; note
			// that % is a symbol, not punctuation, and survives.
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

// Slug converts a show or episode title into a lowercase hyphenated slug
// suitable for directory names.
func Slug(title string) string {
	title = norm.NFKC.String(strings.TrimSpace(title))
	if title == "" {
		return ""
	}
	title = cases.Lower(language.Und).String(title)

	var b strings.Builder
	b.Grow(len(title))
	lastHyphen := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
