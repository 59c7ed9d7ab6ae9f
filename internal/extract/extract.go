// Package extract turns a deliberation transcript into a structured recommendation.
package extract

import (
	"github.com/dyluth/nextpost/internal/agent"
	"github.com/dyluth/nextpost/internal/textutil"
)

const (
	// MinSpecialistLength filters out short acknowledgements from specialists.
	MinSpecialistLength = 100
	// DisplayLength is the number of characters kept from a specialist turn.
	DisplayLength = 500
	// Ellipsis marks a truncated specialist turn.
	Ellipsis = textutil.Ellipsis
)

// Recommendation is the structured outcome of a deliberation. Both parts may be empty.
type Recommendation struct {
	Strategy    string
	Specialists map[agent.Role]string
}

// IsEmpty reports that the deliberation produced no actionable content. This is a
// valid outcome and distinct from a failed session.
func (r Recommendation) IsEmpty() bool {
	if r.Strategy != "" {
		return false
	}
	for _, text := range r.Specialists {
		if text != "" {
			return false
		}
	}
	return true
}

// Specialist returns the kept text for role, or "".
func (r Recommendation) Specialist(role agent.Role) string {
	return r.Specialists[role]
}

type settings struct {
	marker        agent.Marker
	minLength     int
	displayLength int
}

// Option configures Extract.
type Option func(*settings)

// WithMarker sets the phrase that identifies the coordinator's conclusion.
func WithMarker(m agent.Marker) Option {
	return func(s *settings) { s.marker = m }
}

// WithMinSpecialistLength overrides MinSpecialistLength.
func WithMinSpecialistLength(n int) Option {
	return func(s *settings) { s.minLength = n }
}

// WithDisplayLength overrides DisplayLength.
func WithDisplayLength(n int) Option {
	return func(s *settings) { s.displayLength = n }
}

// Extract scans transcript in reverse for the last coordinator turn carrying the
// marker, and forward for the last substantial turn of each specialist role.
func Extract(transcript []agent.Turn, opts ...Option) Recommendation {
	s := &settings{
		marker:        agent.DefaultMarker(),
		minLength:     MinSpecialistLength,
		displayLength: DisplayLength,
	}
	for _, opt := range opts {
		opt(s)
	}

	rec := Recommendation{Specialists: map[agent.Role]string{}}

	for i := len(transcript) - 1; i >= 0; i-- {
		t := transcript[i]
		if t.Role == agent.RoleCoordinator && s.marker.IsTerminal(t.Text) {
			rec.Strategy = s.marker.Strip(t.Text)
			break
		}
	}

	for _, t := range transcript {
		if !t.Role.IsSpecialist() {
			continue
		}
		if len([]rune(t.Text)) > s.minLength {
			rec.Specialists[t.Role] = textutil.Preview(t.Text, s.displayLength)
		}
	}

	return rec
}
