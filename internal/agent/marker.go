package agent

import (
	"regexp"
	"strings"
)

// DefaultMarkerPhrase is the phrase a coordinator uses to conclude a deliberation.
const DefaultMarkerPhrase = "FINAL RECOMMENDATION:"

// Marker is the coordinator's termination predicate: a case-insensitive substring match.
// The zero value never matches.
type Marker struct {
	phrase string
	re     *regexp.Regexp
}

// NewMarker creates a marker for phrase. Surrounding whitespace is ignored.
func NewMarker(phrase string) Marker {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return Marker{}
	}
	return Marker{phrase: phrase, re: regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))}
}

// DefaultMarker returns the marker for DefaultMarkerPhrase.
func DefaultMarker() Marker {
	return NewMarker(DefaultMarkerPhrase)
}

// Phrase returns the marker phrase.
func (m Marker) Phrase() string {
	return m.phrase
}

// IsTerminal reports whether text contains the marker phrase, ignoring case.
func (m Marker) IsTerminal(text string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(text)
}

// Strip removes every occurrence of the marker phrase from text and trims the result.
func (m Marker) Strip(text string) string {
	if m.re == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(m.re.ReplaceAllString(text, ""))
}
