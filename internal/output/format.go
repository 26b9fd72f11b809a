package output

import "strings"

// SeparatorWidth is the width of separator lines.
const SeparatorWidth = 60

// Separator returns a separator line of the default width.
func Separator() string {
	return strings.Repeat("─", SeparatorWidth)
}

// Shorten abbreviates a hex address or hash to 0x1234…abcd.
func Shorten(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
