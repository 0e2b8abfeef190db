// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug derives category slugs, the stable keys the catalog filters
// on.
package slug

import (
	"strings"
	"unicode"
)

// Generate lower-cases s and joins its ASCII letter and digit runs with
// single hyphens. Apostrophes are dropped rather than splitting a word.
// Example: "Data & Analytics" -> "data-analytics", "Builder's Kit" -> "builders-kit".
func Generate(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// Valid reports whether s is a non-empty slug in the form Generate emits.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
