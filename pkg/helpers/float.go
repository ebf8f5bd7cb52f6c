// Package helpers provides common utility functions used across the codebase.
package helpers

import (
	"strconv"
	"strings"
)

// FormatAmount renders a transfer amount the way Python's str(float) would:
// an integral value always carries a trailing ".0", fractional values use
// the shortest round-trippable decimal representation. Output is always in
// plain decimal notation: magnitudes below 1e-4 or at least 1e16, which
// Python prints in exponent form, are not rendered that way. Canonical block
// hashing depends on every peer producing byte-identical text for the same
// amount, so this formatting is never allowed to drift from this function.
func FormatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
