package postindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrDuplicateID is returned by Add when an entry with the same ID already exists.
	ErrDuplicateID = errors.New("entry already exists")

	// ErrDimensionMismatch is returned when a vector's length differs from the dimension
	// the namespace was created with.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Client provides namespace-scoped Redis operations for the post index.
// All keys are automatically namespaced. The client is safe for concurrent use.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new index client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: account identifier (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Namespace returns the namespace this client writes to.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Add validates an entry, assigns its insertion sequence and writes it together
// with its secondary indexes in a single MULTI/EXEC transaction.
//
// The duplicate-ID and dimension checks run under WATCH on the entry and dimension
// keys, so a concurrent writer touching either aborts the transaction instead of
// overwriting. The first entry of a namespace fixes its vector dimension; later
// entries of a different length are rejected with ErrDimensionMismatch.
// Returns ErrDuplicateID if the ID is already present; existing entries are never modified.
func (c *Client) Add(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	key := EntryKey(c.namespace, e.ID)
	dimsKey := DimsKey(c.namespace)

	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("failed to check entry existence: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
		}

		dims, err := dimensions(ctx, tx, dimsKey)
		if err != nil {
			return err
		}
		if dims > 0 && dims != len(e.Vector) {
			return fmt.Errorf("%w: namespace %s holds %d-dimensional vectors, got %d",
				ErrDimensionMismatch, c.namespace, dims, len(e.Vector))
		}

		seq, err := tx.Incr(ctx, SeqKey(c.namespace)).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence number: %w", err)
		}
		e.Seq = seq

		hash, err := EntryToHash(e)
		if err != nil {
			return fmt.Errorf("failed to serialize entry: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			pipe.ZAdd(ctx, EntriesKey(c.namespace), redis.Z{Score: float64(seq), Member: e.ID})
			pipe.SAdd(ctx, CategoryKey(c.namespace, e.Payload.Category), e.ID)
			pipe.ZAdd(ctx, EngagementKey(c.namespace), redis.Z{Score: float64(e.Payload.Engagement), Member: e.ID})
			pipe.SetNX(ctx, dimsKey, len(e.Vector), 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to write entry to Redis: %w", err)
		}
		return nil
	}, key, dimsKey)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("concurrent write to entry %s, nothing was written: %w", e.ID, err)
	}
	return err
}

// Dimensions returns the vector dimension of the namespace, or 0 before the first entry.
func (c *Client) Dimensions(ctx context.Context) (int, error) {
	return dimensions(ctx, c.rdb, DimsKey(c.namespace))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func dimensions(ctx context.Context, cmd getter, key string) (int, error) {
	dims, err := cmd.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read index dimension: %w", err)
	}
	return dims, nil
}

// Get retrieves an entry by ID.
// Returns (nil, redis.Nil) if the entry doesn't exist. Use IsNotFound() to check.
func (c *Client) Get(ctx context.Context, entryID string) (*Entry, error) {
	hashData, err := c.rdb.HGetAll(ctx, EntryKey(c.namespace, entryID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read entry from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	entry, err := HashToEntry(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize entry: %w", err)
	}

	return entry, nil
}

// List returns the entries matching filter in insertion order.
// A nil or empty filter returns every entry.
func (c *Client) List(ctx context.Context, filter *Filter) ([]*Entry, error) {
	ids, err := c.matchingIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	entries, err := c.fetchEntries(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})

	return entries, nil
}

// Query returns the k entries nearest to vector by cosine distance, nearest first.
// Equal distances keep insertion order. Returns an empty slice for k <= 0 or an empty index.
func (c *Client) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}

	entries, err := c.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(entries))
	for _, e := range entries {
		d, err := CosineDistance(vector, e.Vector)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		matches = append(matches, Match{Entry: e, Distance: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

// Count returns the number of entries in the namespace.
func (c *Client) Count(ctx context.Context) (int, error) {
	n, err := c.rdb.ZCard(ctx, EntriesKey(c.namespace)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return int(n), nil
}

// IDs returns every entry ID in insertion order.
func (c *Client) IDs(ctx context.Context) ([]string, error) {
	ids, err := c.rdb.ZRange(ctx, EntriesKey(c.namespace), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entry IDs: %w", err)
	}
	return ids, nil
}

// matchingIDs resolves a filter to a set of candidate IDs using the secondary indexes.
func (c *Client) matchingIDs(ctx context.Context, filter *Filter) ([]string, error) {
	if filter.isEmpty() {
		return c.IDs(ctx)
	}

	var byCategory, byEngagement []string
	var err error

	if filter.Category != "" {
		byCategory, err = c.rdb.SMembers(ctx, CategoryKey(c.namespace, filter.Category)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read category index: %w", err)
		}
	}

	if filter.MinEngagement != nil {
		byEngagement, err = c.rdb.ZRangeByScore(ctx, EngagementKey(c.namespace), &redis.ZRangeBy{
			Min: strconv.Itoa(*filter.MinEngagement),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read engagement index: %w", err)
		}
	}

	switch {
	case filter.Category != "" && filter.MinEngagement != nil:
		return intersect(byCategory, byEngagement), nil
	case filter.Category != "":
		return byCategory, nil
	default:
		return byEngagement, nil
	}
}

// fetchEntries loads entry hashes in one pipeline. IDs whose hash is missing are skipped.
func (c *Client) fetchEntries(ctx context.Context, ids []string) ([]*Entry, error) {
	if len(ids) == 0 {
		return []*Entry{}, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, EntryKey(c.namespace, id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to read entries from Redis: %w", err)
	}

	entries := make([]*Entry, 0, len(ids))
	for i, cmd := range cmds {
		hashData := cmd.Val()
		if len(hashData) == 0 {
			continue
		}
		entry, err := HashToEntry(hashData)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize entry %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, id := range b {
		inB[id] = true
	}
	out := make([]string, 0, len(a))
	for _, id := range a {
		if inB[id] {
			out = append(out, id)
		}
	}
	return out
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
