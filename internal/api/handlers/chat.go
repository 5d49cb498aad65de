package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/middleware"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

type QuestionAnswerer interface {
	Ask(ctx context.Context, input service.AskInput) (string, error)
}

type ChatHandler struct {
	answerer QuestionAnswerer
}

func NewChatHandler(answerer QuestionAnswerer) *ChatHandler {
	return &ChatHandler{answerer: answerer}
}

type ChatRequest struct {
	Question      string `json:"question"`
	ModelProvider string `json:"model_provider"`
	APIKey        string `json:"api_key,omitempty"`
}

type ChatResponse struct {
	Response string `json:"response"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ModelProvider == "" {
		api.Error(w, http.StatusBadRequest, "model_provider is required")
		return
	}

	answer, err := h.answerer.Ask(r.Context(), service.AskInput{
		TenantID: middleware.GetTenantID(r.Context()),
		Question: req.Question,
		Provider: req.ModelProvider,
		APIKey:   req.APIKey,
	})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{Response: answer})
}
