package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marianoInsa/ChatBot-RAG/internal/api"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/handlers"
	"github.com/marianoInsa/ChatBot-RAG/internal/api/middleware"
)

type RouterConfig struct {
	ClientHandler   *handlers.ClientHandler
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	AdminHandler    *handlers.AdminHandler

	// MaxBodyBytes caps request bodies; zero uses the default.
	MaxBodyBytes int64
}

// covers MAX_FILES files of MAX_FILE_SIZE_MB each with the stock settings
const defaultMaxBodyBytes int64 = 512 * 1024 * 1024

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/clients", func(r chi.Router) {
			r.Post("/register", cfg.ClientHandler.Register)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.TenantID("id"))
				r.Get("/", cfg.ClientHandler.Get)
				r.Post("/documents/upload", cfg.DocumentHandler.Upload)
				r.Post("/chat", cfg.ChatHandler.Chat)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/clients", cfg.AdminHandler.ListClients)
			r.With(middleware.TenantID("id")).Delete("/clients/{id}", cfg.AdminHandler.DeleteClient)
			r.Get("/cache", cfg.AdminHandler.CacheStats)
		})
	})

	return r
}
