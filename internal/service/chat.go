package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/provider"
	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

// FallbackAnswer is returned without calling the model when retrieval finds nothing
const FallbackAnswer = "Lo siento, no tengo información disponible sobre eso. Por favor, contacta a nuestro equipo de ventas."

const promptTemplate = `Eres un Asistente Virtual experto de la mueblería "Hermanos Jota".
Tu trabajo es responder en español a preguntas sobre la mueblería de manera profesional y comercial.

Instrucciones:
1. Usa SOLO el contexto proporcionado abajo para responder. No inventes información.
2. Si la respuesta no está en el contexto, di amablemente que no tienes esa información y sugiere contactar a ventas.
3. Sé breve y conciso. Evita introducciones largas como "Basado en el contexto...". Ve al grano.
4. Mantén un tono cordial y servicial.

<context>
{context}
</context>

Pregunta del cliente: {input}
`

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Retriever returns the chunks to ground an answer on
type Retriever interface {
	MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64) ([]domain.Chunk, error)
}

// ChatOptions are the retrieval and context settings for one chat
type ChatOptions struct {
	K                int
	FetchK           int
	Lambda           float64
	MaxContextLength int
}

// ChatOptionsFor extracts the chat settings from a tenant config
func ChatOptionsFor(cfg domain.TenantConfig) ChatOptions {
	return ChatOptions{
		K:                cfg.MMRK,
		FetchK:           cfg.MMRFetchK,
		Lambda:           cfg.MMRLambda,
		MaxContextLength: cfg.MaxContextLength,
	}
}

// ChatService answers one question from a tenant's index with one model
type ChatService struct {
	retriever Retriever
	model     provider.ChatModel
	opts      ChatOptions
}

// NewChatService creates a new ChatService instance
func NewChatService(retriever Retriever, model provider.ChatModel, opts ChatOptions) *ChatService {
	return &ChatService{retriever: retriever, model: model, opts: opts}
}

// Chat retrieves context, prompts the model and returns the cleaned answer
func (s *ChatService) Chat(ctx context.Context, question string) (string, error) {
	chunks, err := s.retriever.MaxMarginalRelevanceSearch(ctx, question, s.opts.K, s.opts.FetchK, s.opts.Lambda)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	if len(chunks) == 0 {
		return FallbackAnswer, nil
	}

	prompt := BuildPrompt(AssembleContext(chunks, s.opts.MaxContextLength), question)

	raw, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	return StripThinking(raw), nil
}

// AssembleContext joins non-empty chunk contents with blank lines and cuts the
// result to at most maxLen characters. A non-positive maxLen disables the cut.
func AssembleContext(chunks []domain.Chunk, maxLen int) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c.Content != "" {
			parts = append(parts, c.Content)
		}
	}
	joined := strings.Join(parts, "\n\n")

	if maxLen > 0 && runeLen(joined) > maxLen {
		joined = string([]rune(joined)[:maxLen])
	}
	return joined
}

// BuildPrompt fills the store assistant template
func BuildPrompt(contextText, question string) string {
	return strings.NewReplacer("{context}", contextText, "{input}", question).Replace(promptTemplate)
}

// StripThinking removes <think>...</think> reasoning blocks from model output
func StripThinking(raw string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
}

// ChatModelFactory builds chat models by provider tag
type ChatModelFactory interface {
	Get(name, apiKey string) (provider.ChatModel, error)
}

// TenantRegistry is the subset of ClientManager used to answer questions
type TenantRegistry interface {
	Get(id string) (*domain.Tenant, error)
	GetVectorStore(id string) (*vectorstore.Index, bool)
}

// AskInput is one chat request
type AskInput struct {
	TenantID string
	Question string
	Provider string
	APIKey   string
}

// ConversationService validates a chat request against the tenant and provider
// policy before running the chat pipeline
type ConversationService struct {
	tenants TenantRegistry
	models  ChatModelFactory
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(tenants TenantRegistry, models ChatModelFactory) *ConversationService {
	return &ConversationService{tenants: tenants, models: models}
}

// Ask answers a question for a tenant
func (s *ConversationService) Ask(ctx context.Context, input AskInput) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConversationService.Ask", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Provider:  input.Provider,
		Operation: "chat",
	})
	defer span.End()

	if strings.TrimSpace(input.Question) == "" {
		return "", domain.ErrMissingQuestion
	}

	tenant, err := s.tenants.Get(input.TenantID)
	if err != nil {
		return "", err
	}

	index, ok := s.tenants.GetVectorStore(input.TenantID)
	if !ok {
		return "", domain.ErrNoDocumentsLoaded
	}

	model, err := s.models.Get(input.Provider, input.APIKey)
	if err != nil {
		return "", err
	}

	answer, err := NewChatService(index, model, ChatOptionsFor(tenant.Config)).Chat(ctx, input.Question)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	return answer, nil
}
