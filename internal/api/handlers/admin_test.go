package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/marianoInsa/ChatBot-RAG/internal/cache"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/pagination"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

type MockClientAdmin struct {
	mock.Mock
}

func (m *MockClientAdmin) ListPage(cursor string, limit int) (pagination.PageResult[*domain.Tenant], error) {
	args := m.Called(cursor, limit)
	return args.Get(0).(pagination.PageResult[*domain.Tenant]), args.Error(1)
}

func (m *MockClientAdmin) Delete(id string) bool {
	return m.Called(id).Bool(0)
}

func (m *MockClientAdmin) CacheStats() service.CacheStats {
	return m.Called().Get(0).(service.CacheStats)
}

type MockUploadPurger struct {
	mock.Mock
}

func (m *MockUploadPurger) Purge(ctx context.Context, tenantID string) error {
	return m.Called(ctx, tenantID).Error(0)
}

func TestAdminHandler_ListClients(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	handler := NewAdminHandler(mockAdmin, nil)

	mockAdmin.On("ListPage", "abc", 2).Return(pagination.PageResult[*domain.Tenant]{
		Items:   []*domain.Tenant{newTestTenant()},
		Cursor:  "next",
		HasMore: true,
	}, nil)

	w := httptest.NewRecorder()
	handler.ListClients(w, httptest.NewRequest(http.MethodGet, "/api/admin/clients?limit=2&cursor=abc", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	assert.Equal(t, testTenantID, items[0].(map[string]interface{})["client_id"])
	assert.Equal(t, "next", data["cursor"])
	assert.Equal(t, true, data["has_more"])
}

func TestAdminHandler_ListClients_EmptyIsArray(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	handler := NewAdminHandler(mockAdmin, nil)

	mockAdmin.On("ListPage", "", 0).Return(pagination.PageResult[*domain.Tenant]{}, nil)

	w := httptest.NewRecorder()
	handler.ListClients(w, httptest.NewRequest(http.MethodGet, "/api/admin/clients", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)
}

func TestAdminHandler_ListClients_BadLimit(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	handler := NewAdminHandler(mockAdmin, nil)

	w := httptest.NewRecorder()
	handler.ListClients(w, httptest.NewRequest(http.MethodGet, "/api/admin/clients?limit=zero", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockAdmin.AssertNotCalled(t, "ListPage", mock.Anything, mock.Anything)
}

func TestAdminHandler_ListClients_BadCursor(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	handler := NewAdminHandler(mockAdmin, nil)

	mockAdmin.On("ListPage", "!!", 0).Return(pagination.PageResult[*domain.Tenant]{},
		domain.ErrInvalidCursor)

	w := httptest.NewRecorder()
	handler.ListClients(w, httptest.NewRequest(http.MethodGet, "/api/admin/clients?cursor=!!", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid cursor")
}

func TestAdminHandler_DeleteClient(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	mockPurger := new(MockUploadPurger)
	handler := NewAdminHandler(mockAdmin, mockPurger)

	mockAdmin.On("Delete", testTenantID).Return(true)
	mockPurger.On("Purge", mock.Anything, testTenantID).Return(errors.New("bucket gone"))

	w := httptest.NewRecorder()
	handler.DeleteClient(w, requestWithTenantID(http.MethodDelete, "/api/admin/clients/"+testTenantID, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Client deleted", decodeData(t, w)["message"])
	mockPurger.AssertExpectations(t)
}

func TestAdminHandler_DeleteClient_NotFound(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	mockPurger := new(MockUploadPurger)
	handler := NewAdminHandler(mockAdmin, mockPurger)

	mockAdmin.On("Delete", testTenantID).Return(false)

	w := httptest.NewRecorder()
	handler.DeleteClient(w, requestWithTenantID(http.MethodDelete, "/api/admin/clients/"+testTenantID, nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockPurger.AssertNotCalled(t, "Purge", mock.Anything, mock.Anything)
}

func TestAdminHandler_CacheStats(t *testing.T) {
	mockAdmin := new(MockClientAdmin)
	handler := NewAdminHandler(mockAdmin, nil)

	mockAdmin.On("CacheStats").Return(service.CacheStats{
		Size:     2,
		Capacity: 10,
		Stats:    cache.Stats{Hits: 5, Misses: 1, Evictions: 0},
	})

	w := httptest.NewRecorder()
	handler.CacheStats(w, httptest.NewRequest(http.MethodGet, "/api/admin/cache", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(2), data["size"])
	assert.Equal(t, float64(10), data["capacity"])
	assert.Equal(t, float64(5), data["stats"].(map[string]interface{})["hits"])
}
