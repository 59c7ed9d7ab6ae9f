package postindex

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between entries and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Scalar payload fields get
// their own hash fields so they stay readable with redis-cli; the tags array and the
// embedding are JSON-encoded into single fields.

// EntryToHash converts an Entry to a Redis hash.
func EntryToHash(e *Entry) (map[string]interface{}, error) {
	tags := e.Payload.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	vectorJSON, err := json.Marshal(e.Vector)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding: %w", err)
	}

	hash := map[string]interface{}{
		"id":         e.ID,
		"document":   e.Document,
		"category":   e.Payload.Category,
		"engagement": e.Payload.Engagement,
		"tags":       string(tagsJSON),
		"posted_on":  e.Payload.PostedOn,
		"seq":        e.Seq,
		"embedding":  string(vectorJSON),
	}

	return hash, nil
}

// HashToEntry converts a Redis hash back to an Entry.
func HashToEntry(hash map[string]string) (*Entry, error) {
	engagement, err := strconv.Atoi(hash["engagement"])
	if err != nil {
		return nil, fmt.Errorf("invalid engagement field: %w", err)
	}

	seq, err := strconv.ParseInt(hash["seq"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid seq field: %w", err)
	}

	var tags []string
	if tagsJSON := hash["tags"]; tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}

	// Ensure we have an empty slice instead of nil for consistency
	if tags == nil {
		tags = []string{}
	}

	var vector []float32
	if vectorJSON := hash["embedding"]; vectorJSON != "" {
		if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
			return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}

	entry := &Entry{
		ID:       hash["id"],
		Document: hash["document"],
		Vector:   vector,
		Payload: Payload{
			Category:   hash["category"],
			Engagement: engagement,
			Tags:       tags,
			PostedOn:   hash["posted_on"],
		},
		Seq: seq,
	}

	return entry, nil
}
