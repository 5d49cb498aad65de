package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/middleware"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/pagination"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

type ClientAdmin interface {
	ListPage(cursor string, limit int) (pagination.PageResult[*domain.Tenant], error)
	Delete(id string) bool
	CacheStats() service.CacheStats
}

type UploadPurger interface {
	Purge(ctx context.Context, tenantID string) error
}

type AdminHandler struct {
	clients ClientAdmin
	uploads UploadPurger
}

func NewAdminHandler(clients ClientAdmin, uploads UploadPurger) *AdminHandler {
	return &AdminHandler{clients: clients, uploads: uploads}
}

type ListClientsResponse struct {
	Items   []*ClientInfoResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

type DeleteClientResponse struct {
	Message string `json:"message"`
}

func (h *AdminHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := h.clients.ListPage(r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, r, err)
		return
	}

	items := make([]*ClientInfoResponse, 0, len(page.Items))
	for _, t := range page.Items {
		items = append(items, tenantToResponse(t))
	}

	api.Success(w, http.StatusOK, ListClientsResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *AdminHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	tenantID := middleware.GetTenantID(r.Context())

	if !h.clients.Delete(tenantID) {
		api.HandleError(w, r, domain.ErrTenantNotFound)
		return
	}

	if h.uploads != nil {
		if err := h.uploads.Purge(r.Context(), tenantID); err != nil {
			log.Printf("admin: client %s deleted but archived uploads remain: %v", tenantID, err)
		}
	}

	api.Success(w, http.StatusOK, DeleteClientResponse{Message: "Client deleted"})
}

func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.clients.CacheStats())
}
