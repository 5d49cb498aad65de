package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/provider"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

// MockRetriever is a mock implementation of Retriever
type MockRetriever struct {
	mock.Mock
}

func (m *MockRetriever) MaxMarginalRelevanceSearch(ctx context.Context, query string, k, fetchK int, lambda float64) ([]domain.Chunk, error) {
	args := m.Called(ctx, query, k, fetchK, lambda)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

// MockChatModel is a mock implementation of provider.ChatModel
type MockChatModel struct {
	mock.Mock
}

func (m *MockChatModel) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockChatModelFactory is a mock implementation of ChatModelFactory
type MockChatModelFactory struct {
	mock.Mock
}

func (m *MockChatModelFactory) Get(name, apiKey string) (provider.ChatModel, error) {
	args := m.Called(name, apiKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.ChatModel), args.Error(1)
}

// MockTenantRegistry is a mock implementation of TenantRegistry
type MockTenantRegistry struct {
	mock.Mock
}

func (m *MockTenantRegistry) Get(id string) (*domain.Tenant, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRegistry) GetVectorStore(id string) (*vectorstore.Index, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*vectorstore.Index), args.Bool(1)
}

var defaultChatOptions = ChatOptions{K: 5, FetchK: 20, Lambda: 0.5, MaxContextLength: 4000}

func TestChatService_EmptyRetrievalReturnsFallbackWithoutModel(t *testing.T) {
	retriever := new(MockRetriever)
	model := new(MockChatModel)
	ctx := context.Background()
	retriever.On("MaxMarginalRelevanceSearch", ctx, "¿Hacen envíos?", 5, 20, 0.5).Return([]domain.Chunk{}, nil)

	answer, err := NewChatService(retriever, model, defaultChatOptions).Chat(ctx, "¿Hacen envíos?")

	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, answer)
	model.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
	retriever.AssertExpectations(t)
}

func TestChatService_TruncatesContextToMaxLength(t *testing.T) {
	retriever := new(MockRetriever)
	model := new(MockChatModel)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{Content: strings.Repeat("a", 200)},
		{Content: strings.Repeat("b", 200)},
		{Content: strings.Repeat("c", 200)},
	}
	retriever.On("MaxMarginalRelevanceSearch", ctx, "q", 5, 20, 0.5).Return(chunks, nil)

	var prompt string
	model.On("Complete", ctx, mock.AnythingOfType("string")).Run(func(args mock.Arguments) {
		prompt = args.String(1)
	}).Return("ok", nil)

	opts := defaultChatOptions
	opts.MaxContextLength = 500
	_, err := NewChatService(retriever, model, opts).Chat(ctx, "q")
	require.NoError(t, err)

	full := strings.Repeat("a", 200) + "\n\n" + strings.Repeat("b", 200) + "\n\n" + strings.Repeat("c", 200)
	expected := full[:500]
	assert.Contains(t, prompt, "<context>\n"+expected+"\n</context>")
	assert.NotContains(t, prompt, full[:501])
}

func TestChatService_StripsThinkingFromAnswer(t *testing.T) {
	retriever := new(MockRetriever)
	model := new(MockChatModel)
	ctx := context.Background()
	retriever.On("MaxMarginalRelevanceSearch", ctx, "q", 5, 20, 0.5).Return([]domain.Chunk{{Content: "Somos una mueblería"}}, nil)
	model.On("Complete", ctx, mock.Anything).Return("<think>reasoning</think>Final answer.", nil)

	answer, err := NewChatService(retriever, model, defaultChatOptions).Chat(ctx, "q")

	require.NoError(t, err)
	assert.Equal(t, "Final answer.", answer)
}

func TestChatService_PromptCarriesQuestionAndContext(t *testing.T) {
	retriever := new(MockRetriever)
	model := new(MockChatModel)
	ctx := context.Background()
	retriever.On("MaxMarginalRelevanceSearch", ctx, "¿Qué es Hermanos Jota?", 5, 20, 0.5).Return([]domain.Chunk{
		{Content: "Somos una mueblería"},
		{Content: ""},
		{Content: "Fundada en 1990"},
	}, nil)

	var prompt string
	model.On("Complete", ctx, mock.Anything).Run(func(args mock.Arguments) {
		prompt = args.String(1)
	}).Return("Hermanos Jota es una mueblería.", nil)

	answer, err := NewChatService(retriever, model, defaultChatOptions).Chat(ctx, "¿Qué es Hermanos Jota?")

	require.NoError(t, err)
	assert.Equal(t, "Hermanos Jota es una mueblería.", answer)
	assert.Contains(t, prompt, "<context>\nSomos una mueblería\n\nFundada en 1990\n</context>")
	assert.Contains(t, prompt, "Pregunta del cliente: ¿Qué es Hermanos Jota?")
	assert.Contains(t, prompt, `"Hermanos Jota"`)
}

func TestChatService_ModelErrorPropagates(t *testing.T) {
	retriever := new(MockRetriever)
	model := new(MockChatModel)
	ctx := context.Background()
	modelErr := errors.New("429 too many requests")
	retriever.On("MaxMarginalRelevanceSearch", ctx, "q", 5, 20, 0.5).Return([]domain.Chunk{{Content: "x"}}, nil)
	model.On("Complete", ctx, mock.Anything).Return("", modelErr)

	_, err := NewChatService(retriever, model, defaultChatOptions).Chat(ctx, "q")

	assert.ErrorIs(t, err, modelErr)
}

func TestStripThinking(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<think>reasoning</think>Final answer.", "Final answer."},
		{"no tags", "no tags"},
		{"<think>a\nb</think>\nAnswer<think>more</think> end", "Answer end"},
		{"<think>unterminated", "<think>unterminated"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripThinking(tt.in))
	}
}

func TestAssembleContext_CountsRunes(t *testing.T) {
	chunks := []domain.Chunk{{Content: strings.Repeat("ñ", 10)}}

	assert.Equal(t, strings.Repeat("ñ", 4), AssembleContext(chunks, 4))
	assert.Equal(t, strings.Repeat("ñ", 10), AssembleContext(chunks, 0))
}

func newAskFixture() (*MockTenantRegistry, *MockChatModelFactory, *ConversationService) {
	tenants := new(MockTenantRegistry)
	models := new(MockChatModelFactory)
	return tenants, models, NewConversationService(tenants, models)
}

func TestConversationService_Ask_MissingQuestion(t *testing.T) {
	tenants, _, svc := newAskFixture()

	_, err := svc.Ask(context.Background(), AskInput{TenantID: "t", Question: "   ", Provider: "groq"})

	assert.ErrorIs(t, err, domain.ErrMissingQuestion)
	tenants.AssertNotCalled(t, "Get", mock.Anything)
}

func TestConversationService_Ask_UnknownTenant(t *testing.T) {
	tenants, models, svc := newAskFixture()
	tenants.On("Get", "t").Return(nil, domain.ErrTenantNotFound)

	_, err := svc.Ask(context.Background(), AskInput{TenantID: "t", Question: "hola", Provider: "groq"})

	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	models.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestConversationService_Ask_NoResidentIndex(t *testing.T) {
	tenants, models, svc := newAskFixture()
	tenants.On("Get", "t").Return(domain.NewTenant("t", "", testDefaults(), fixedNow), nil)
	tenants.On("GetVectorStore", "t").Return(nil, false)

	_, err := svc.Ask(context.Background(), AskInput{TenantID: "t", Question: "hola", Provider: "groq"})

	assert.ErrorIs(t, err, domain.ErrNoDocumentsLoaded)
	models.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestConversationService_Ask_ProviderDisabled(t *testing.T) {
	tenants, models, svc := newAskFixture()
	tenants.On("Get", "t").Return(domain.NewTenant("t", "", testDefaults(), fixedNow), nil)
	tenants.On("GetVectorStore", "t").Return(vectorstore.New(constantEmbedder{}), true)
	models.On("Get", "ollama", "").Return(nil, domain.ErrProviderDisabled)

	_, err := svc.Ask(context.Background(), AskInput{TenantID: "t", Question: "hola", Provider: "ollama"})

	assert.ErrorIs(t, err, domain.ErrProviderDisabled)
}

func TestConversationService_Ask_UsesTenantConfig(t *testing.T) {
	tenants, models, svc := newAskFixture()
	ctx := context.Background()

	cfg := testDefaults()
	cfg.MMRK = 1
	cfg.MMRFetchK = 2
	index, err := vectorstore.FromChunks(ctx, constantEmbedder{}, []domain.Chunk{
		{ID: "1", Content: "Mesa de roble"},
		{ID: "2", Content: "Silla de pino"},
	})
	require.NoError(t, err)

	model := new(MockChatModel)
	var prompt string
	model.On("Complete", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		prompt = args.String(1)
	}).Return("<think>x</think>Tenemos mesas.", nil)

	tenants.On("Get", "t").Return(domain.NewTenant("t", "", cfg, fixedNow), nil)
	tenants.On("GetVectorStore", "t").Return(index, true)
	models.On("Get", "groq", "sk-override").Return(model, nil)

	answer, err := svc.Ask(ctx, AskInput{TenantID: "t", Question: "¿Qué venden?", Provider: "groq", APIKey: "sk-override"})

	require.NoError(t, err)
	assert.Equal(t, "Tenemos mesas.", answer)
	assert.Equal(t, 1, strings.Count(prompt, "Mesa de roble")+strings.Count(prompt, "Silla de pino"))
	models.AssertExpectations(t)
}
