package comparator

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a cell value before equality comparison: canonical
// Unicode composition (NFC), non-breaking spaces collapsed to regular spaces,
// surrounding whitespace trimmed and internal whitespace runs collapsed to a
// single space. No numeric or type coercion happens here or anywhere else:
// "80" and "80.0" stay unequal. The function is idempotent.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
