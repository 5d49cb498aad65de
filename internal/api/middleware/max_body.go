package middleware

import (
	"fmt"
	"net/http"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
)

// MaxBodyBytes rejects requests that declare a body over limit and caps
// streamed bodies so multipart parsing fails once limit is crossed.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	tooLarge := fmt.Sprintf("request body too large (limit %dMB)", limit/(1024*1024))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.Error(w, http.StatusRequestEntityTooLarge, tooLarge)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
