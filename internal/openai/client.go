package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingBatchSize bounds how many texts are sent per embeddings request
const DefaultEmbeddingBatchSize = 100

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding does not have the configured dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrEmptyCompletion is returned when the model returns no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
	// ErrNoChatModel is returned when Complete is called on an embeddings-only client
	ErrNoChatModel = errors.New("client has no chat model configured")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for single-turn chat completions
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, prompt string) (string, error)
}

// OpenAIAdapter talks to any OpenAI-compatible endpoint (OpenAI, Groq, Gemini, Ollama).
type OpenAIAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
	temperature    float32
	maxTokens      int
}

func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		chatModel:      cfg.ChatModel,
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxTokens,
	}
}

// CreateEmbeddings calls the embeddings endpoint and returns vectors in input order
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
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

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	out := make([][]float32, len(data))
	for i, d := range data {
		out[i] = d.Embedding
	}
	return out, nil
}

// CreateChatCompletion sends the prompt as a single user message
func (a *OpenAIAdapter) CreateChatCompletion(ctx context.Context, prompt string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.chatModel,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

type Config struct {
	APIKey  string
	BaseURL string

	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingBatchSize  int

	ChatModel   string
	Temperature float32
	MaxTokens   int

	HTTPClient *http.Client
}

// Client wraps an OpenAI-compatible API for embeddings and chat
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
	batchSize  int
}

// NewClient creates a new client for the configured endpoint.
// Dimensions are only checked when EmbeddingDimensions is set.
func NewClient(cfg Config) *Client {
	adapter := NewOpenAIAdapter(cfg)
	c := &Client{
		embeddings: adapter,
		dimensions: cfg.EmbeddingDimensions,
		batchSize:  cfg.EmbeddingBatchSize,
	}
	if cfg.ChatModel != "" {
		c.chat = adapter
	}
	if c.batchSize <= 0 {
		c.batchSize = DefaultEmbeddingBatchSize
	}
	return c
}

// EmbedDocuments embeds texts in batches, preserving order
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[start:end]
		for _, t := range batch {
			if t == "" {
				return nil, ErrEmptyText
			}
		}

		vectors, err := c.embeddings.CreateEmbeddings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding: %w", err)
		}
		for _, v := range vectors {
			if err := c.checkDimensions(v); err != nil {
				return nil, err
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a single query
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	vectors, err := c.embeddings.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	if err := c.checkDimensions(vectors[0]); err != nil {
		return nil, err
	}

	return vectors[0], nil
}

// Complete runs one chat completion for the prompt
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.chat == nil {
		return "", ErrNoChatModel
	}

	out, err := c.chat.CreateChatCompletion(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	return out, nil
}

func (c *Client) checkDimensions(v []float32) error {
	if c.dimensions > 0 && len(v) != c.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, c.dimensions, len(v))
	}
	return nil
}
