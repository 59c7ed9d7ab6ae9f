// Package textutil holds the rune-aware shortening helpers shared by the
// briefing, extraction and output code.
package textutil

// Ellipsis marks text that was cut short.
const Ellipsis = "..."

// Preview keeps the first n runes of text and appends Ellipsis when anything was cut.
// Text of n runes or fewer is returned unchanged.
func Preview(text string, n int) string {
	if n < 0 {
		n = 0
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + Ellipsis
}

// Fit shortens text so the result, Ellipsis included, is at most width runes.
// Used for fixed-width table columns.
func Fit(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	if width <= len(Ellipsis) {
		if width < 0 {
			width = 0
		}
		return string(runes[:width])
	}
	return string(runes[:width-len(Ellipsis)]) + Ellipsis
}
