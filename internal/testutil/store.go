// Package testutil provides fixtures for tests that need a knowledge store backed by
// an in-memory Redis.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/nextpost/internal/embedding"
	"github.com/dyluth/nextpost/internal/knowledge"
	"github.com/dyluth/nextpost/pkg/postindex"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// EmbeddingDimensions is the vector size of stores created by NewStore.
const EmbeddingDimensions = 64

// NewIndex starts a miniredis server and returns an index client for namespace.
// Both are closed when the test ends.
func NewIndex(t testing.TB, namespace string) (*postindex.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := postindex.NewClient(&redis.Options{Addr: mr.Addr()}, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

// NewStore returns an empty knowledge store using the offline hash embedder.
func NewStore(t testing.TB, namespace string, opts ...knowledge.Option) *knowledge.Store {
	t.Helper()
	client, _ := NewIndex(t, namespace)
	return knowledge.New(client, embedding.NewHashEmbedder(EmbeddingDimensions), opts...)
}

// Post describes a post relative to a reference day.
type Post struct {
	Text       string
	Category   string
	Engagement int
	DaysAgo    int
	Tags       []string
}

// Add stores posts dated relative to today and returns their IDs in order.
func Add(t testing.TB, s *knowledge.Store, today time.Time, posts ...Post) []string {
	t.Helper()
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		id, err := s.Add(context.Background(), knowledge.NewRecord{
			Text:       p.Text,
			Category:   p.Category,
			Engagement: p.Engagement,
			Tags:       p.Tags,
			PostedOn:   knowledge.Date(today).AddDate(0, 0, -p.DaysAgo),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}
