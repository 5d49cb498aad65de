package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/openai"
)

// Chat provider tags accepted by the chat endpoint
const (
	ChatProviderGemini = "gemini"
	ChatProviderGroq   = "groq"
	ChatProviderOllama = "ollama"
)

const (
	GroqOpenAIBaseURL = "https://api.groq.com/openai/v1"

	geminiChatModel = "gemini-2.5-flash-lite"
	groqChatModel   = "qwen/qwen3-32b"
)

// ChatProviders lists the accepted chat provider tags.
var ChatProviders = []string{ChatProviderGemini, ChatProviderGroq, ChatProviderOllama}

// ChatModel generates an answer for a fully rendered prompt.
type ChatModel interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ChatConfig holds credentials, endpoints and policy for chat providers.
type ChatConfig struct {
	GroqAPIKey    string
	GoogleAPIKey  string
	OllamaBaseURL string
	OllamaModel   string
	EnableOllama  bool

	// Endpoint overrides, empty means the public endpoint.
	GroqBaseURL   string
	GeminiBaseURL string

	HTTPClient *http.Client
}

// ChatFactory builds a chat model per request so per-request credentials never leak between tenants.
type ChatFactory struct {
	cfg ChatConfig
}

func NewChatFactory(cfg ChatConfig) *ChatFactory {
	return &ChatFactory{cfg: cfg}
}

// Validate checks the provider tag and deployment policy without building a client.
func (f *ChatFactory) Validate(provider string) error {
	switch provider {
	case ChatProviderGemini, ChatProviderGroq:
		return nil
	case ChatProviderOllama:
		if !f.cfg.EnableOllama {
			return domain.Wrap(domain.ErrProviderDisabled,
				"model provider 'ollama' is disabled in this deployment", nil)
		}
		return nil
	}
	return domain.Wrap(domain.ErrUnsupportedProvider,
		fmt.Sprintf("unsupported model provider: %s (expected one of %s)", provider, strings.Join(ChatProviders, ", ")), nil)
}

// Get builds the chat model for provider. A non-empty apiKey overrides the configured credential.
func (f *ChatFactory) Get(provider, apiKey string) (ChatModel, error) {
	if err := f.Validate(provider); err != nil {
		return nil, err
	}

	switch provider {
	case ChatProviderGemini:
		key := firstNonEmpty(apiKey, f.cfg.GoogleAPIKey)
		if key == "" {
			return nil, unavailable(provider, "GOOGLE_API_KEY")
		}
		return openai.NewClient(openai.Config{
			APIKey:     key,
			BaseURL:    firstNonEmpty(f.cfg.GeminiBaseURL, GeminiOpenAIBaseURL),
			ChatModel:  geminiChatModel,
			HTTPClient: f.cfg.HTTPClient,
		}), nil

	case ChatProviderGroq:
		key := firstNonEmpty(apiKey, f.cfg.GroqAPIKey)
		if key == "" {
			return nil, unavailable(provider, "GROQ_API_KEY")
		}
		return openai.NewClient(openai.Config{
			APIKey:      key,
			BaseURL:     firstNonEmpty(f.cfg.GroqBaseURL, GroqOpenAIBaseURL),
			ChatModel:   groqChatModel,
			Temperature: 0.1,
			MaxTokens:   1024,
			HTTPClient:  f.cfg.HTTPClient,
		}), nil

	default:
		if f.cfg.OllamaBaseURL == "" || f.cfg.OllamaModel == "" {
			return nil, unavailable(provider, "OLLAMA_BASE_URL and OLLAMA_MODEL")
		}
		return openai.NewClient(openai.Config{
			// Ollama ignores the key but the OpenAI client always sends one.
			APIKey:      firstNonEmpty(apiKey, "ollama"),
			BaseURL:     strings.TrimRight(f.cfg.OllamaBaseURL, "/") + "/v1",
			ChatModel:   f.cfg.OllamaModel,
			Temperature: 0.2,
			MaxTokens:   256,
			HTTPClient:  f.cfg.HTTPClient,
		}), nil
	}
}

func unavailable(provider, setting string) error {
	return domain.Wrap(domain.ErrProviderUnavailable,
		fmt.Sprintf("could not initialize model provider '%s', check %s or send an api_key", provider, setting), nil)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
