package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI embedding models and their dimensions.
const (
	ModelTextEmbedding3Small  = "text-embedding-3-small"
	ModelTextEmbedding3Large  = "text-embedding-3-large"
	DimensionsTextEmbedding3S = 1536
	DimensionsTextEmbedding3L = 3072
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// OpenAIEmbedderOption configures an OpenAIEmbedder.
type OpenAIEmbedderOption func(*openaiEmbedderSettings)

type openaiEmbedderSettings struct {
	model      string
	dimensions int
	baseURL    string
}

// WithModel sets the embedding model and the dimensions it produces.
func WithModel(model string, dimensions int) OpenAIEmbedderOption {
	return func(s *openaiEmbedderSettings) {
		s.model = model
		s.dimensions = dimensions
	}
}

// WithBaseURL points the embedder at a proxy or an OpenAI-compatible API.
func WithBaseURL(url string) OpenAIEmbedderOption {
	return func(s *openaiEmbedderSettings) {
		s.baseURL = url
	}
}

// NewOpenAIEmbedder creates an OpenAI embedder with the given API key.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIEmbedderOption) *OpenAIEmbedder {
	s := &openaiEmbedderSettings{
		model:      ModelTextEmbedding3Small,
		dimensions: DimensionsTextEmbedding3S,
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := openai.DefaultConfig(apiKey)
	if s.baseURL != "" {
		cfg.BaseURL = s.baseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(cfg),
		model:      s.model,
		dimensions: s.dimensions,
	}
}

// Embed generates an embedding for the given text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}

	return resp.Data[0].Embedding, nil
}

// Dimensions returns the vector dimensions for this embedder.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

var _ Embedder = (*OpenAIEmbedder)(nil)
