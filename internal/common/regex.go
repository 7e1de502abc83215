package common

import (
	"regexp"
	"strings"
)

var leadingFlags = regexp.MustCompile(`^\(\?[imsU-]+\)`)

// CompileInsensitive compiles pattern with case-insensitive matching unless the
// pattern already sets its own flags.
func CompileInsensitive(pattern string) (*regexp.Regexp, error) {
	if !leadingFlags.MatchString(pattern) {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// FirstCapture returns the first non-empty capture group of re in text, or the
// whole match when re has no groups. ok is false when re does not match.
func FirstCapture(re *regexp.Regexp, text string) (string, bool) {
	if re == nil {
		return "", false
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	for _, group := range m[1:] {
		if strings.TrimSpace(group) != "" {
			return strings.TrimSpace(group), true
		}
	}
	return strings.TrimSpace(m[0]), true
}
