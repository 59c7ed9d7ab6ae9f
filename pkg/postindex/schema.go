package postindex

import "fmt"

// Redis key pattern helpers
//
// All keys are namespaced so several accounts can share a Redis server.
// Key pattern: nextpost:{namespace}:{entity}[:{id}]

// EntryKey returns the Redis key for an entry hash.
// Pattern: nextpost:{namespace}:entry:{entry_id}
func EntryKey(namespace, entryID string) string {
	return fmt.Sprintf("nextpost:%s:entry:%s", namespace, entryID)
}

// EntriesKey returns the Redis key for the insertion-ordered ZSET of entry IDs.
// Pattern: nextpost:{namespace}:entries
func EntriesKey(namespace string) string {
	return fmt.Sprintf("nextpost:%s:entries", namespace)
}

// CategoryKey returns the Redis key for the SET of entry IDs in a category.
// Pattern: nextpost:{namespace}:by_category:{category}
func CategoryKey(namespace, category string) string {
	return fmt.Sprintf("nextpost:%s:by_category:%s", namespace, category)
}

// EngagementKey returns the Redis key for the engagement-scored ZSET of entry IDs.
// Pattern: nextpost:{namespace}:by_engagement
func EngagementKey(namespace string) string {
	return fmt.Sprintf("nextpost:%s:by_engagement", namespace)
}

// SeqKey returns the Redis key for the insertion sequence counter.
// Pattern: nextpost:{namespace}:seq
func SeqKey(namespace string) string {
	return fmt.Sprintf("nextpost:%s:seq", namespace)
}

// DimsKey returns the Redis key holding the vector dimension fixed by the first entry.
// Pattern: nextpost:{namespace}:dims
func DimsKey(namespace string) string {
	return fmt.Sprintf("nextpost:%s:dims", namespace)
}
