package textutil

import (
	"strings"
	"unicode"
)

// FileName strips characters from name that are unsafe in a library file
// name. Path separators and colons become dashes so structure hints survive;
// wildcard, quoting, and control characters are dropped. The result is
// trimmed of surrounding whitespace and dots.
func FileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\' || r == ':':
			b.WriteByte('-')
		case r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			// dropped
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " \t.")
}

// Tag normalizes a raw tag to a lowercase token of letters and digits with
// runs of anything else collapsed to single underscores. Input with no
// usable characters yields the empty string.
func Tag(value string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(value) {
		word := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !word {
			pendingSep = b.Len() > 0
			continue
		}
		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
