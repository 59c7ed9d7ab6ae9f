package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Chat generation defaults.
const (
	DefaultChatModel   = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// OpenAIGenerator implements Generator with the OpenAI chat completions API.
// The role description becomes the system message and every prior turn is sent as a
// user message tagged with its speaker's name.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIGeneratorOption configures an OpenAIGenerator.
type OpenAIGeneratorOption func(*OpenAIGenerator)

// WithChatModel sets the chat model.
func WithChatModel(model string) OpenAIGeneratorOption {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) OpenAIGeneratorOption {
	return func(g *OpenAIGenerator) { g.temperature = t }
}

// WithMaxTokens caps the completion length. Zero leaves it to the backend.
func WithMaxTokens(n int) OpenAIGeneratorOption {
	return func(g *OpenAIGenerator) { g.maxTokens = n }
}

// NewOpenAIGenerator creates a generator. baseURL may be empty for the public API.
func NewOpenAIGenerator(apiKey, baseURL string, opts ...OpenAIGeneratorOption) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	g := &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		model:       DefaultChatModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate asks the model for the next turn.
func (g *OpenAIGenerator) Generate(ctx context.Context, roleDescription string, transcript []Turn) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    chatMessages(roleDescription, transcript),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func chatMessages(roleDescription string, transcript []Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: roleDescription,
	})
	for _, t := range transcript {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Name:    messageName(t.Speaker),
			Content: t.Text,
		})
	}
	return messages
}

// messageName maps a speaker to the character set the chat API accepts for names.
func messageName(speaker string) string {
	name := invalidNameChars.ReplaceAllString(speaker, "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}

var _ Generator = (*OpenAIGenerator)(nil)
