package postindex

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the on-disk format of Payload.PostedOn.
const DateLayout = "2006-01-02"

// Entry is one indexed post. Entries are immutable once written.
type Entry struct {
	ID       string    `json:"id"`       // UUID assigned by the caller
	Document string    `json:"document"` // Caption text
	Vector   []float32 `json:"-"`        // Embedding, never returned to display code
	Payload  Payload   `json:"payload"`
	Seq      int64     `json:"seq"` // Insertion sequence, assigned by Add
}

// Payload is the metadata stored next to each entry's vector.
type Payload struct {
	Category   string   `json:"category"`
	Engagement int      `json:"engagement"`
	Tags       []string `json:"tags"`      // Stored as a single JSON string field
	PostedOn   string   `json:"posted_on"` // YYYY-MM-DD
}

// Match is a query hit with its cosine distance from the query vector.
type Match struct {
	Entry    *Entry
	Distance float64
}

// Filter restricts List results. All set fields are ANDed together.
type Filter struct {
	Category      string // Exact match, empty = no filter
	MinEngagement *int   // Inclusive lower bound, nil = no filter
}

// MinEngagement is a convenience for building a Filter.
func MinEngagement(n int) *int {
	return &n
}

func (f *Filter) isEmpty() bool {
	return f == nil || (f.Category == "" && f.MinEngagement == nil)
}

// Validate checks if the Entry has valid field values.
func (e *Entry) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}

	if strings.TrimSpace(e.Document) == "" {
		return fmt.Errorf("document cannot be empty")
	}

	if len(e.Vector) == 0 {
		return fmt.Errorf("vector cannot be empty")
	}

	return e.Payload.Validate()
}

// Validate checks if the Payload has valid field values.
func (p *Payload) Validate() error {
	if p.Category == "" {
		return fmt.Errorf("category cannot be empty")
	}

	if p.Engagement < 0 {
		return fmt.Errorf("invalid engagement: must be >= 0, got %d", p.Engagement)
	}

	if _, err := time.Parse(DateLayout, p.PostedOn); err != nil {
		return fmt.Errorf("invalid posted_on %q: expected YYYY-MM-DD", p.PostedOn)
	}

	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
