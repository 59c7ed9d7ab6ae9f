package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/nextpost/internal/embedding"
	"github.com/dyluth/nextpost/internal/metrics"
	"github.com/dyluth/nextpost/pkg/postindex"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder wraps an embedder and counts calls, optionally failing them.
type countingEmbedder struct {
	inner embedding.Embedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }

func setupTestStore(t *testing.T, opts ...Option) (*Store, *countingEmbedder, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client, err := postindex.NewClient(&redis.Options{Addr: mr.Addr()}, "test-account")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	emb := &countingEmbedder{inner: embedding.NewHashEmbedder(512)}
	return New(client, emb, opts...), emb, mr
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func addRecord(t *testing.T, s *Store, text, category string, engagement int, date string, tags ...string) string {
	t.Helper()
	id, err := s.Add(context.Background(), NewRecord{
		Text:       text,
		Category:   category,
		Engagement: engagement,
		Tags:       tags,
		PostedOn:   day(date),
	})
	require.NoError(t, err)
	return id
}

func TestAdd_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	before, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, before)

	id := addRecord(t, s, "Satisfying window clean", "satisfying_video", 1500, "2024-01-05", "#zeta", "#alpha", "#mid")
	assert.Len(t, id, 36)

	after, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	r := all[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "Satisfying window clean", r.Text)
	assert.Equal(t, "satisfying_video", r.Category)
	assert.Equal(t, 1500, r.Engagement)
	assert.Equal(t, []string{"#zeta", "#alpha", "#mid"}, r.Tags, "tag order must be preserved")
	assert.True(t, r.PostedOn.Equal(day("2024-01-05")))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestAdd_NoTags(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	id := addRecord(t, s, "Plain post", "promotion", 0, "2024-01-01")

	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, r.Tags)
	assert.Equal(t, 0, r.Engagement)
}

func TestAdd_TruncatesTimeOfDay(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	id, err := s.Add(ctx, NewRecord{
		Text:     "Evening job",
		Category: "behind_scenes",
		PostedOn: time.Date(2024, 3, 9, 22, 15, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), r.PostedOn)
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    NewRecord
		field string
	}{
		{"empty text", NewRecord{Text: "", Category: "promotion", PostedOn: day("2024-01-01")}, "text"},
		{"whitespace text", NewRecord{Text: "   ", Category: "promotion", PostedOn: day("2024-01-01")}, "text"},
		{"negative engagement", NewRecord{Text: "x", Category: "promotion", Engagement: -1, PostedOn: day("2024-01-01")}, "engagement"},
		{"empty category", NewRecord{Text: "x", PostedOn: day("2024-01-01")}, "category"},
		{"missing date", NewRecord{Text: "x", Category: "promotion"}, "posted_on"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			s, emb, _ := setupTestStore(t, WithMetrics(m))

			id, err := s.Add(context.Background(), tt.in)
			require.Error(t, err)
			assert.Empty(t, id)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
			assert.True(t, IsValidationError(err))

			assert.Equal(t, 0, emb.calls, "embedder must not be called for invalid input")
			n, err := s.Count(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, n)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestFailures.WithLabelValues("validation")))
		})
	}
}

func TestAdd_EmbedderFailure(t *testing.T) {
	s, emb, _ := setupTestStore(t)
	emb.err = errors.New("backend unavailable")

	_, err := s.Add(context.Background(), NewRecord{Text: "x", Category: "promotion", PostedOn: day("2024-01-01")})
	require.Error(t, err)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "embed", se.Op)
	assert.ErrorIs(t, err, emb.err)
}

func TestAdd_IndexFailure(t *testing.T) {
	s, _, mr := setupTestStore(t)
	mr.Close()

	_, err := s.Add(context.Background(), NewRecord{Text: "x", Category: "promotion", PostedOn: day("2024-01-01")})
	require.Error(t, err)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "add", se.Op)
}

func TestAdd_CountsMetric(t *testing.T) {
	m := metrics.New()
	s, _, _ := setupTestStore(t, WithMetrics(m))

	addRecord(t, s, "one", "promotion", 1, "2024-01-01")
	addRecord(t, s, "two", "promotion", 2, "2024-01-02")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsAdded))
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := postindex.NewClient(&redis.Options{Addr: mr.Addr()}, "test-account")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	small := New(client, embedding.NewHashEmbedder(32))
	large := New(client, embedding.NewHashEmbedder(64))

	_, err = small.Add(ctx, NewRecord{Text: "squeegee tips", Category: "educational", PostedOn: day("2024-01-01")})
	require.NoError(t, err)

	_, err = large.Add(ctx, NewRecord{Text: "spring offer", Category: "promotion", PostedOn: day("2024-01-02")})
	require.Error(t, err)

	var se *StoreError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "add", se.Op)
	assert.ErrorIs(t, err, postindex.ErrDimensionMismatch)

	n, err := small.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	matches, err := small.Similar(ctx, "squeegee", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "squeegee tips", matches[0].Record.Text)
}

func TestAdd_Concurrent(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client, err := postindex.NewClient(&redis.Options{Addr: mr.Addr()}, "test-account")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	s := New(client, embedding.NewHashEmbedder(64))

	const writers = 50
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, writers)
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := s.Add(ctx, NewRecord{
				Text:       fmt.Sprintf("post number %d", i),
				Category:   "promotion",
				Engagement: i,
				PostedOn:   day("2024-01-01"),
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[id] = struct{}{}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Len(t, ids, writers)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, n)
}

func TestSimilar(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	addRecord(t, s, "streak free window cleaning with squeegee", "satisfying_video", 2000, "2024-01-01", "#windowcleaning")
	addRecord(t, s, "spring discount on gutter cleaning", "promotion", 300, "2024-01-02", "#discount")
	addRecord(t, s, "how to remove hard water stains from glass", "educational", 800, "2024-01-03", "#tips")

	t.Run("ordered by descending score", func(t *testing.T) {
		matches, err := s.Similar(ctx, "squeegee window cleaning", 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)
		assert.Equal(t, "satisfying_video", matches[0].Record.Category)
		for i := 1; i < len(matches); i++ {
			assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
		}
		for _, m := range matches {
			assert.LessOrEqual(t, m.Score, 1.0+1e-9)
			assert.GreaterOrEqual(t, m.Score, -1.0-1e-9)
		}
	})

	t.Run("never more than limit", func(t *testing.T) {
		matches, err := s.Similar(ctx, "cleaning", 2)
		require.NoError(t, err)
		assert.Len(t, matches, 2)
	})

	t.Run("never fewer than min(limit, count)", func(t *testing.T) {
		matches, err := s.Similar(ctx, "cleaning", 10)
		require.NoError(t, err)
		assert.Len(t, matches, 3)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := s.Similar(ctx, "cleaning", 0)
		assert.True(t, IsValidationError(err))
	})
}

func TestSimilar_EmptyStore(t *testing.T) {
	s, _, _ := setupTestStore(t)

	matches, err := s.Similar(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecent(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	addRecord(t, s, "first", "promotion", 1, "2024-01-01")
	addRecord(t, s, "fifth", "promotion", 1, "2024-01-05")
	addRecord(t, s, "third", "promotion", 1, "2024-01-03")

	recent, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "fifth", recent[0].Text)
	assert.Equal(t, "third", recent[1].Text)

	all, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Recent(ctx, -1)
	assert.True(t, IsValidationError(err))
}

func TestRecent_SameDayKeepsInsertionOrder(t *testing.T) {
	s, _, _ := setupTestStore(t)

	addRecord(t, s, "a", "promotion", 1, "2024-01-02")
	addRecord(t, s, "b", "promotion", 1, "2024-01-02")
	addRecord(t, s, "c", "promotion", 1, "2024-01-02")

	recent, err := s.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, texts(recent))
}

func TestByCategory(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	addRecord(t, s, "a", "promotion", 1, "2024-01-01")
	addRecord(t, s, "b", "educational", 1, "2024-01-02")
	addRecord(t, s, "c", "promotion", 1, "2024-01-03")

	promos, err := s.ByCategory(ctx, "promotion")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, texts(promos))

	none, err := s.ByCategory(ctx, "Promotion")
	require.NoError(t, err)
	assert.Empty(t, none, "category match is exact")
}

func TestHighEngagement(t *testing.T) {
	s, _, _ := setupTestStore(t)

	addRecord(t, s, "low", "promotion", 50, "2024-01-01")
	addRecord(t, s, "mid", "promotion", 1000, "2024-01-02")
	addRecord(t, s, "high", "promotion", 2400, "2024-01-03")
	addRecord(t, s, "mid2", "educational", 1000, "2024-01-04")

	records, err := s.HighEngagement(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"high", "mid", "mid2"}, texts(records))
}

func TestGet_NotFound(t *testing.T) {
	s, _, _ := setupTestStore(t)

	_, err := s.Get(context.Background(), "8a0f7a4e-51d1-4a5e-9a55-3f6c2b1d9e00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIDs(t *testing.T) {
	s, _, _ := setupTestStore(t)

	a := addRecord(t, s, "a", "promotion", 1, "2024-01-01")
	b := addRecord(t, s, "b", "promotion", 1, "2024-01-01")

	ids, err := s.IDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, ids)
}

func TestReturnedTagsAreCopies(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	tags := []string{"#one", "#two"}
	id := addRecord(t, s, "post", "promotion", 1, "2024-01-01", tags...)
	tags[0] = "#mutated"

	r, err := s.Get(ctx, id)
	require.NoError(t, err)
	r.Tags[1] = "#changed"

	again, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"#one", "#two"}, again.Tags)
}

func TestStoreAnalysis(t *testing.T) {
	ctx := context.Background()
	s, _, _ := setupTestStore(t)

	empty, err := s.Analysis(ctx)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	addRecord(t, s, "rare", "satisfying_video", 9999, "2024-01-01", "#rare")
	addRecord(t, s, "common one", "promotion", 100, "2024-01-02", "#common")
	addRecord(t, s, "common two", "promotion", 200, "2024-01-03", "#common")

	a, err := s.Analysis(ctx)
	require.NoError(t, err)
	assert.False(t, a.IsEmpty())
	assert.Equal(t, 3, a.Total)
	require.Len(t, a.BestTags, 1)
	assert.Equal(t, "#common", a.BestTags[0].Tag)
	assert.InDelta(t, 150.0, a.BestTags[0].MeanEngagement, 1e-9)
}

func texts(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}
