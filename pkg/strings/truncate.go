package strings

import (
	"strings"
)

// MinTruncateLen is the minimum maxLen value for Truncate and TruncatePath.
// Values smaller than this would not leave room for meaningful content plus "...".
const MinTruncateLen = 4

// Ellipsis marks elided text.
const Ellipsis = "..."

// Truncate shortens s to at most maxLen runes and makes it single-line.
// Runs of whitespace, including newlines from multi-line unit values,
// collapse to one space. Truncated results end in "...".
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
	}
	return s
}

// TruncatePath shortens a path to at most maxLen runes by keeping its tail,
// where the file name is: "/srv/quadlets/team/web.container" becomes
// ".../team/web.container". The tail is cut at a separator when one fits.
func TruncatePath(p string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	runes := []rune(p)
	if len(runes) <= maxLen {
		return p
	}

	keep := maxLen - len(Ellipsis)
	tail := string(runes[len(runes)-keep:])
	if i := strings.IndexRune(tail, '/'); i > 0 {
		tail = tail[i:]
	}
	return Ellipsis + tail
}
