// Package provider resolves embedding and chat model provider tags to
// concrete clients.
package provider

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/openai"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

const (
	// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint
	GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// GeminiEmbeddingModel is the Gemini embeddings model
	GeminiEmbeddingModel = "gemini-embedding-001"
)

// EmbeddingConfig holds credentials and endpoints for embedding providers.
type EmbeddingConfig struct {
	GoogleAPIKey        string
	HuggingFaceAPIToken string

	// Endpoint overrides, empty means the public endpoint.
	GeminiBaseURL      string
	HuggingFaceBaseURL string

	HTTPClient *http.Client
}

// EmbeddingFactory resolves embedding provider tags. Embedders are stateless
// and shared across tenants using the same tag.
type EmbeddingFactory struct {
	cfg   EmbeddingConfig
	mu    sync.Mutex
	cache map[string]vectorstore.Embedder
}

func NewEmbeddingFactory(cfg EmbeddingConfig) *EmbeddingFactory {
	return &EmbeddingFactory{
		cfg:   cfg,
		cache: make(map[string]vectorstore.Embedder),
	}
}

// CanonicalEmbeddingTag maps accepted aliases onto the canonical provider tag.
func CanonicalEmbeddingTag(tag string) string {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "default", "huggingface", domain.EmbeddingProviderDefault:
		return domain.EmbeddingProviderDefault
	case domain.EmbeddingProviderGemini:
		return domain.EmbeddingProviderGemini
	}
	return tag
}

// IsSupportedEmbeddingTag reports whether tag names a known embedding provider.
func IsSupportedEmbeddingTag(tag string) bool {
	switch CanonicalEmbeddingTag(tag) {
	case domain.EmbeddingProviderDefault, domain.EmbeddingProviderGemini:
		return true
	}
	return false
}

// Get returns the embedder for tag. Unknown tags fail with ErrUnsupportedProvider and
// missing credentials with ErrProviderUnavailable.
func (f *EmbeddingFactory) Get(tag string) (vectorstore.Embedder, error) {
	canonical := CanonicalEmbeddingTag(tag)

	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.cache[canonical]; ok {
		return e, nil
	}

	var e vectorstore.Embedder
	switch canonical {
	case domain.EmbeddingProviderDefault:
		if f.cfg.HuggingFaceAPIToken != "" {
			e = NewHuggingFaceEmbedder(f.cfg.HuggingFaceBaseURL, DefaultHuggingFaceModel, f.cfg.HuggingFaceAPIToken, f.cfg.HTTPClient)
		} else {
			e = NewHashingEmbedder(DefaultHashingDimensions)
		}
	case domain.EmbeddingProviderGemini:
		if f.cfg.GoogleAPIKey == "" {
			return nil, domain.Wrap(domain.ErrProviderUnavailable,
				"embedding provider 'gemini' is unavailable, GOOGLE_API_KEY is not set", nil)
		}
		baseURL := f.cfg.GeminiBaseURL
		if baseURL == "" {
			baseURL = GeminiOpenAIBaseURL
		}
		e = openai.NewClient(openai.Config{
			APIKey:         f.cfg.GoogleAPIKey,
			BaseURL:        baseURL,
			EmbeddingModel: GeminiEmbeddingModel,
			HTTPClient:     f.cfg.HTTPClient,
		})
	default:
		return nil, domain.Wrap(domain.ErrUnsupportedProvider,
			fmt.Sprintf("unsupported embedding provider: %s", tag), nil)
	}

	f.cache[canonical] = e
	return e, nil
}
