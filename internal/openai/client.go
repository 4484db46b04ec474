package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultGenerationModel is the chat model used for drafting replies
	DefaultGenerationModel = "gpt-4o-mini"
	// requestTimeout bounds each API call
	requestTimeout = 60 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoCompletion is returned when the API returns no choices
	ErrNoCompletion = errors.New("no completion returned")
)

// API defines the subset of the OpenAI API the client depends on.
type API interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	CreateCompletion(ctx context.Context, model, prompt string) (string, error)
}

// Client wraps the OpenAI API for embeddings and draft generation.
type Client struct {
	api             API
	dimensions      int
	generationModel string
}

type openAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
}

func newOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *openAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: requestTimeout}
	return &openAIAdapter{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: model,
	}
}

// CreateEmbeddings calls the OpenAI API to embed a batch of texts.
func (a *openAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// CreateCompletion calls the OpenAI chat API with a single user prompt.
func (a *openAIAdapter) CreateCompletion(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	GenerationModel     string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	generationModel := cfg.GenerationModel
	if generationModel == "" {
		generationModel = DefaultGenerationModel
	}
	return &Client{
		api:             newOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions:      dimensions,
		generationModel: generationModel,
	}
}

// NewClientWithAPI creates a client backed by a custom API implementation (for testing).
func NewClientWithAPI(api API, dimensions int, generationModel string) *Client {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	if generationModel == "" {
		generationModel = DefaultGenerationModel
	}
	return &Client{api: api, dimensions: dimensions, generationModel: generationModel}
}

// GenerateEmbedding generates an embedding for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateEmbeddings generates embeddings for a batch of texts, preserving order.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
	}

	embeddings, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	for _, embedding := range embeddings {
		if len(embedding) != c.dimensions {
			return nil, ErrWrongDimensions
		}
	}

	return embeddings, nil
}

// GenerateText submits a prompt to the chat model and returns its trimmed output.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	text, err := c.api.CreateCompletion(ctx, c.generationModel, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	return strings.TrimSpace(text), nil
}
