package util

import (
	"strings"
	"time"
	"unicode"
)

// NormalizePlate uppercases a license plate and strips everything that is
// not a letter or digit. Portals and users disagree on spacing and dashes;
// the stored form never carries either.
func NormalizePlate(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// looseDateLayouts covers the date shapes the portal has been seen to emit.
// Day-first layouts come before ISO because the portal is Australian.
var looseDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
	"2 Jan 2006",
	"02 Jan 2006",
}

// ParseLooseDate attempts to interpret a portal date string. The second
// return value is false when no known layout matches; callers treat such
// notices as not overdue rather than guessing.
func ParseLooseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
