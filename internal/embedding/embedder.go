// Package embedding turns post text into vectors for the post index.
package embedding

import (
	"context"
	"errors"
)

// Embedder generates vector embeddings from text.
// Implementations must be deterministic for identical input within a model version.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector dimensions produced by this embedder.
	Dimensions() int
}

// ErrEmptyEmbedding is returned when a backend answers without a vector.
var ErrEmptyEmbedding = errors.New("no embedding returned")
