// Package knowledge is the content knowledge store: it ingests posts, keeps them in a
// vector index and answers similarity, metadata and analytics queries over them.
package knowledge

import (
	"strings"
	"time"
)

// Record is one ingested post. Records are immutable once added.
type Record struct {
	ID         string
	Text       string
	Category   string
	Engagement int
	Tags       []string
	PostedOn   time.Time
}

// NewRecord is the caller-supplied part of a Record; the store assigns the ID.
type NewRecord struct {
	Text       string
	Category   string
	Engagement int
	Tags       []string
	PostedOn   time.Time
}

// Validate checks the ingestion constraints and returns a *ValidationError on the first violation.
func (n NewRecord) Validate() error {
	if strings.TrimSpace(n.Text) == "" {
		return &ValidationError{Field: "text", Reason: "cannot be empty"}
	}
	if strings.TrimSpace(n.Category) == "" {
		return &ValidationError{Field: "category", Reason: "cannot be empty"}
	}
	if n.Engagement < 0 {
		return &ValidationError{Field: "engagement", Reason: "must be >= 0"}
	}
	if n.PostedOn.IsZero() {
		return &ValidationError{Field: "posted_on", Reason: "is required"}
	}
	return nil
}

// EmbeddingText is the text a record's vector is computed from: its caption followed by its tags.
func EmbeddingText(text string, tags []string) string {
	return text + " " + strings.Join(tags, " ")
}

// Date returns the calendar date of t as UTC midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b (negative when b is earlier).
func DaysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

func copyTags(tags []string) []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
