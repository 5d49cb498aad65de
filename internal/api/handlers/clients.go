package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/middleware"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/provider"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

const registeredMessage = "Client registered successfully. Use the client_id to upload documents and chat."

type ClientRegistry interface {
	Register(input service.RegisterInput) (*domain.Tenant, error)
	Get(id string) (*domain.Tenant, error)
}

type ClientHandler struct {
	clients ClientRegistry
}

func NewClientHandler(clients ClientRegistry) *ClientHandler {
	return &ClientHandler{clients: clients}
}

type RegisterRequest struct {
	Name   string                        `json:"name"`
	Config *domain.TenantConfigOverrides `json:"config"`
}

type RegisterResponse struct {
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

type ClientInfoResponse struct {
	ClientID  string              `json:"client_id"`
	Name      string              `json:"name,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	Config    domain.TenantConfig `json:"config"`
	Stats     domain.TenantStats  `json:"stats"`
}

func tenantToResponse(t *domain.Tenant) *ClientInfoResponse {
	return &ClientInfoResponse{
		ClientID:  t.ID,
		Name:      t.Name,
		CreatedAt: t.CreatedAt,
		Config:    t.Config,
		Stats:     t.Stats,
	}
}

func (h *ClientHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	// an empty body registers a client with the defaults
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Config != nil && req.Config.EmbeddingProvider != nil && !provider.IsSupportedEmbeddingTag(*req.Config.EmbeddingProvider) {
		api.Error(w, http.StatusBadRequest, "unsupported embedding provider: "+*req.Config.EmbeddingProvider)
		return
	}

	tenant, err := h.clients.Register(service.RegisterInput{Name: req.Name, Config: req.Config})
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusCreated, RegisterResponse{
		ClientID:  tenant.ID,
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt,
		Message:   registeredMessage,
	})
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.clients.Get(middleware.GetTenantID(r.Context()))
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, tenantToResponse(tenant))
}
