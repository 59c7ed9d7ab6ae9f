package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/dyluth/nextpost/internal/embedding"
	"github.com/dyluth/nextpost/internal/metrics"
	"github.com/dyluth/nextpost/pkg/postindex"
	"github.com/google/uuid"
)

// Index is the vector index the store persists into. *postindex.Client implements it.
type Index interface {
	Add(ctx context.Context, e *postindex.Entry) error
	Get(ctx context.Context, id string) (*postindex.Entry, error)
	List(ctx context.Context, filter *postindex.Filter) ([]*postindex.Entry, error)
	Query(ctx context.Context, vector []float32, k int) ([]postindex.Match, error)
	Count(ctx context.Context) (int, error)
	IDs(ctx context.Context) ([]string, error)
}

// Match is a similarity result. Score is 1 minus the cosine distance, so it lies in [-1, 1]
// and is only meaningful as a ranking signal.
type Match struct {
	Record Record
	Score  float64
}

// Store is the content knowledge store. Writes are serialised; reads go straight to the index.
type Store struct {
	index    Index
	embedder embedding.Embedder
	metrics  *metrics.Metrics
	newID    func() string

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics counts ingestions on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a store over index, embedding text with embedder.
func New(index Index, embedder embedding.Embedder, opts ...Option) *Store {
	s := &Store{
		index:    index,
		embedder: embedder,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates, embeds and persists a post and returns its new ID.
// Validation happens before the embedder or the index are touched.
func (s *Store) Add(ctx context.Context, in NewRecord) (string, error) {
	if err := in.Validate(); err != nil {
		s.metrics.IngestFailed("validation")
		return "", err
	}

	vector, err := s.embedder.Embed(ctx, EmbeddingText(in.Text, in.Tags))
	if err != nil {
		s.metrics.IngestFailed("embed")
		return "", &StoreError{Op: "embed", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &postindex.Entry{
		ID:       s.newID(),
		Document: in.Text,
		Vector:   vector,
		Payload: postindex.Payload{
			Category:   in.Category,
			Engagement: in.Engagement,
			Tags:       copyTags(in.Tags),
			PostedOn:   Date(in.PostedOn).Format(postindex.DateLayout),
		},
	}

	if err := s.index.Add(ctx, entry); err != nil {
		s.metrics.IngestFailed("store")
		return "", &StoreError{Op: "add", Err: err}
	}

	s.metrics.RecordAdded()
	logEvent("record_added", map[string]interface{}{
		"record_id":  entry.ID,
		"category":   entry.Payload.Category,
		"engagement": entry.Payload.Engagement,
		"seq":        entry.Seq,
	})

	return entry.ID, nil
}

// Similar returns at most limit records ordered by descending similarity to query.
func (s *Store) Similar(ctx context.Context, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		return nil, &ValidationError{Field: "limit", Reason: "must be > 0"}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "embed", Err: err}
	}

	hits, err := s.index.Query(ctx, vector, limit)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		r, err := recordFromEntry(hit.Entry)
		if err != nil {
			return nil, err
		}
		matches = append(matches, Match{Record: r, Score: 1 - hit.Distance})
	}
	return matches, nil
}

// All returns every record. The order is insertion order but callers must not rely on it.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	return s.list(ctx, nil)
}

// Recent returns up to limit records, newest PostedOn first. Records posted on the same
// day keep insertion order.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Reason: "must be >= 0"}
	}

	records, err := s.list(ctx, nil)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PostedOn.After(records[j].PostedOn)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// ByCategory returns the records whose category equals category exactly.
func (s *Store) ByCategory(ctx context.Context, category string) ([]Record, error) {
	if category == "" {
		return []Record{}, nil
	}
	return s.list(ctx, &postindex.Filter{Category: category})
}

// HighEngagement returns the records with Engagement >= threshold, highest first.
func (s *Store) HighEngagement(ctx context.Context, threshold int) ([]Record, error) {
	records, err := s.list(ctx, &postindex.Filter{MinEngagement: postindex.MinEngagement(threshold)})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Engagement > records[j].Engagement
	})
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.index.Count(ctx)
	if err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}

// Get returns the record with the given ID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	entry, err := s.index.Get(ctx, id)
	if err != nil {
		if postindex.IsNotFound(err) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Record{}, &StoreError{Op: "get", Err: err}
	}
	return recordFromEntry(entry)
}

// IDs returns every record ID in insertion order.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	ids, err := s.index.IDs(ctx)
	if err != nil {
		return nil, &StoreError{Op: "ids", Err: err}
	}
	return ids, nil
}

// Analysis computes aggregate statistics over every stored record.
func (s *Store) Analysis(ctx context.Context) (*Analysis, error) {
	records, err := s.list(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Analyze(records), nil
}

func (s *Store) list(ctx context.Context, filter *postindex.Filter) ([]Record, error) {
	entries, err := s.index.List(ctx, filter)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		r, err := recordFromEntry(e)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func recordFromEntry(e *postindex.Entry) (Record, error) {
	postedOn, err := time.Parse(postindex.DateLayout, e.Payload.PostedOn)
	if err != nil {
		return Record{}, &StoreError{Op: "decode", Err: fmt.Errorf("entry %s: invalid posted_on: %w", e.ID, err)}
	}

	return Record{
		ID:         e.ID,
		Text:       e.Document,
		Category:   e.Payload.Category,
		Engagement: e.Payload.Engagement,
		Tags:       copyTags(e.Payload.Tags),
		PostedOn:   postedOn,
	}, nil
}

// logEvent logs a structured event in JSON format.
func logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "knowledge"
	data["event_type"] = eventType

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Knowledge] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
