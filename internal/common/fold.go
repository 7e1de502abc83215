package common

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold returns the Unicode case-folded form of s with surrounding space removed.
// A new Caser is built per call because Casers carry state.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// FoldEqual reports whether a and b are equal under Unicode case folding.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}
