package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
)

type contextKey string

const TenantIDKey contextKey = "tenant_id"

// TenantIDHeader carries the validated tenant id back to outer middleware
const TenantIDHeader = "X-Client-ID"

// TenantID validates the tenant id URL parameter as a UUID before any handler
// runs and stores its canonical form in the request context.
func TenantID(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := chi.URLParam(r, param)

			id, err := uuid.Parse(raw)
			if err != nil {
				api.Error(w, http.StatusBadRequest, domain.ErrInvalidTenantID.Message)
				return
			}

			tenantID := id.String()
			r.Header.Set(TenantIDHeader, tenantID)
			ctx := context.WithValue(r.Context(), TenantIDKey, tenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTenantID returns the validated tenant id from context.
func GetTenantID(ctx context.Context) string {
	tenantID, _ := ctx.Value(TenantIDKey).(string)
	return tenantID
}
