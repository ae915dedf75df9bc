// Package strings provides string slice normalisation helpers.
package strings

import (
	"strings"
)

// DedupeAndTrim trims every element, drops empties and duplicates, and keeps
// first-seen order.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}) // [foo bar]
func DedupeAndTrim(values []string) []string {
	return normalise(values, strings.TrimSpace)
}

// DedupeAndTrimUpper is DedupeAndTrim with upper-casing, for enum-like labels
// such as provider reject reasons.
//
//	DedupeAndTrimUpper([]string{" forgery", "FORGERY", "bad_photo"}) // [FORGERY BAD_PHOTO]
func DedupeAndTrimUpper(values []string) []string {
	return normalise(values, func(s string) string {
		return strings.ToUpper(strings.TrimSpace(s))
	})
}

func normalise(values []string, clean func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		c := clean(v)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
