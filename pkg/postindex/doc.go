// Package postindex provides the Redis-backed vector index that stores past posts
// for nextpost.
//
// # Overview
//
// Every entry is one post: its caption (the document), an embedding vector, and a
// small metadata payload (category, engagement, tags, posted date). Entries are
// immutable once written. The index answers three kinds of question:
//
//   - nearest neighbours of a query vector (cosine distance, brute force)
//   - exact metadata filters (category, minimum engagement)
//   - counts and id listings
//
// # Namespacing
//
// All Redis keys are namespaced so several nextpost accounts can share one Redis
// server without interference.
//
// # Usage Example
//
//	import "github.com/dyluth/nextpost/pkg/postindex"
//
//	client, err := postindex.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	entry := &postindex.Entry{
//		ID:       uuid.New().String(),
//		Document: "Before and after: six months of grime gone",
//		Vector:   vec,
//		Payload: postindex.Payload{
//			Category:   "satisfying_video",
//			Engagement: 4100,
//			Tags:       []string{"#beforeafter", "#satisfying"},
//			PostedOn:   "2024-03-02",
//		},
//	}
//	if err := client.Add(ctx, entry); err != nil {
//		log.Fatal(err)
//	}
//
//	matches, err := client.Query(ctx, queryVec, 5)
//
// # Redis Schema
//
// Entries: nextpost:{namespace}:entry:{id} (hash)
// Insertion order: nextpost:{namespace}:entries (ZSET, score = insertion sequence)
// Category index: nextpost:{namespace}:by_category:{category} (SET)
// Engagement index: nextpost:{namespace}:by_engagement (ZSET, score = engagement)
// Sequence counter: nextpost:{namespace}:seq
//
// Tags and the embedding are JSON-encoded into single hash fields.
//
// # Distance
//
// Distances are cosine distances (1 - cosine similarity), so they fall in [0, 2].
// Smaller means more similar.
package postindex
