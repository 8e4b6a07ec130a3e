package label

import "strings"

// Sanitize keeps only ASCII letters, digits and spaces, then trims the
// surrounding spaces. Element labels and click payloads go through the same
// function so they compare on equal terms.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == ' ' {
			return r
		}
		return -1
	}, s)
	return strings.Trim(s, " ")
}
