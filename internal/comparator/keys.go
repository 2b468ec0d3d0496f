package comparator

import (
	"sort"
	"strconv"
	"strings"

	"github.com/mxdataops/csv-reconciler/pkg/models"
)

// Key is the ordered tuple of values identifying one row in key-based mode.
// Values are kept verbatim; empty or whitespace-only components still count.
type Key []string

// keyOf extracts the key tuple of a row for the configured key columns
func keyOf(row models.Row, keyColumns []string) Key {
	k := make(Key, len(keyColumns))
	for i, c := range keyColumns {
		k[i] = row[c]
	}
	return k
}

// String renders the key for reports: the bare value for a single-column
// key, a parenthesized tuple otherwise
func (k Key) String() string {
	if len(k) == 1 {
		return k[0]
	}
	return "(" + strings.Join(k, ", ") + ")"
}

// mapKey returns the hashable form used to index rows by key
func (k Key) mapKey() string {
	return strings.Join(k, "\x1f")
}

// lessKeys orders two keys component-wise: components that both parse as
// numbers compare numerically, anything else compares as strings, and
// numeric ties fall back to the string form so the order is total and
// deterministic even over mixed-type key sets.
func lessKeys(a, b Key) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := compareComponent(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return len(a) < len(b)
}

func compareComponent(a, b string) int {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	}
	return strings.Compare(a, b)
}

// sortKeys sorts keys in place using the deterministic key order
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return lessKeys(keys[i], keys[j]) })
}

// keyStrings renders a sorted key slice for reports
func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
