//go:build e2e

package e2e

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
)

type clientInfo struct {
	ClientID string              `json:"client_id"`
	Name     string              `json:"name"`
	Config   domain.TenantConfig `json:"config"`
	Stats    domain.TenantStats  `json:"stats"`
}

func (e *E2ETestEnv) info(t *testing.T, clientID string) clientInfo {
	t.Helper()
	resp, err := e.Get("/api/clients/" + clientID)
	require.NoError(t, err)
	var info clientInfo
	require.NoError(t, json.Unmarshal(resp.Data, &info))
	return info
}

// TestE2E_ClientLifecycle covers register, ingest, chat, persistence and delete
func TestE2E_ClientLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	clientID := env.RegisterClient("Hermanos Jota")

	t.Run("new client has empty stats", func(t *testing.T) {
		info := env.info(t, clientID)
		assert.Equal(t, clientID, info.ClientID)
		assert.Equal(t, "Hermanos Jota", info.Name)
		assert.Zero(t, info.Stats.DocumentsCount)
		assert.Nil(t, info.Stats.LastUpdated)
		assert.Equal(t, 1000, info.Config.ChunkSize)
	})

	t.Run("chat before upload is rejected", func(t *testing.T) {
		resp, err := env.Post("/api/clients/"+clientID+"/chat", map[string]string{
			"question":       "¿Cuánto cuesta la silla?",
			"model_provider": "groq",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, domain.ErrNoDocumentsLoaded.Error(), resp.Error)
	})

	t.Run("upload URLs", func(t *testing.T) {
		resp, err := env.Upload(clientID, nil, []string{
			env.SiteURL("/sillas"),
			env.SiteURL("/envios"),
		})
		require.NoError(t, err)

		var result service.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.True(t, result.Success)
		assert.Equal(t, 2, result.URLsProcessed)
		assert.Positive(t, result.TotalChunksAdded)
		assert.Empty(t, result.Errors)

		info := env.info(t, clientID)
		assert.Equal(t, 2, info.Stats.DocumentsCount)
		assert.Equal(t, result.TotalChunksAdded, info.Stats.ChunksCount)
		assert.NotNil(t, info.Stats.LastUpdated)
	})

	t.Run("chat answers from the index", func(t *testing.T) {
		resp, err := env.Post("/api/clients/"+clientID+"/chat", map[string]string{
			"question":       "¿Cuánto cuesta la silla Belgrano?",
			"model_provider": "groq",
			"api_key":        "gsk-request",
		})
		require.NoError(t, err)

		var chat struct {
			Response string `json:"response"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &chat))
		assert.Equal(t, "La silla Belgrano cuesta $120.000.", chat.Response)

		prompts := env.Model.Prompts()
		require.NotEmpty(t, prompts)
		last := prompts[len(prompts)-1]
		assert.Contains(t, last, "¿Cuánto cuesta la silla Belgrano?")
		assert.Contains(t, last, "madera de paraíso")

		keys := env.Model.Keys()
		assert.Equal(t, "Bearer gsk-request", keys[len(keys)-1])
	})

	t.Run("unknown provider is rejected", func(t *testing.T) {
		resp, err := env.Post("/api/clients/"+clientID+"/chat", map[string]string{
			"question":       "hola",
			"model_provider": "claude",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ollama is disabled by default", func(t *testing.T) {
		resp, err := env.Post("/api/clients/"+clientID+"/chat", map[string]string{
			"question":       "hola",
			"model_provider": "ollama",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("tenant metadata is persisted", func(t *testing.T) {
		require.Eventually(t, func() bool {
			stored, err := env.TenantRepo.GetByID(env.Ctx, clientID)
			return err == nil && stored.Stats.DocumentsCount == 2
		}, 5*time.Second, 100*time.Millisecond)

		stored, err := env.TenantRepo.GetByID(env.Ctx, clientID)
		require.NoError(t, err)
		assert.Equal(t, "Hermanos Jota", stored.Name)
		assert.Equal(t, 1000, stored.Config.ChunkSize)
	})

	t.Run("admin delete removes the client", func(t *testing.T) {
		_, err := env.Delete("/api/admin/clients/" + clientID)
		require.NoError(t, err)

		resp, err := env.Get("/api/clients/" + clientID)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp, err = env.Delete("/api/admin/clients/" + clientID)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		require.Eventually(t, func() bool {
			_, err := env.TenantRepo.GetByID(env.Ctx, clientID)
			return errors.Is(err, domain.ErrTenantNotFound)
		}, 5*time.Second, 100*time.Millisecond)
	})
}

// TestE2E_RegisterWithOverrides checks per-client settings survive registration
func TestE2E_RegisterWithOverrides(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.Post("/api/clients/register", map[string]interface{}{
		"name":   "Overrides",
		"config": map[string]interface{}{"chunk_size": 300, "chunk_overlap": 50, "mmr_k": 2},
	})
	require.NoError(t, err)

	var reg struct {
		ClientID string `json:"client_id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &reg))

	info := env.info(t, reg.ClientID)
	assert.Equal(t, 300, info.Config.ChunkSize)
	assert.Equal(t, 50, info.Config.ChunkOverlap)
	assert.Equal(t, 2, info.Config.MMRK)
	assert.Equal(t, 20, info.Config.MMRFetchK)
	assert.Equal(t, domain.EmbeddingProviderDefault, info.Config.EmbeddingProvider)

	t.Run("empty body registers an anonymous client", func(t *testing.T) {
		id := env.RegisterClient("")
		info := env.info(t, id)
		assert.Empty(t, info.Name)
	})
}

// TestE2E_UploadEdgeCases covers archiving, per-source errors and limits
func TestE2E_UploadEdgeCases(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	clientID := env.RegisterClient("Uploads")

	t.Run("PDF is archived even when extraction fails", func(t *testing.T) {
		resp, err := env.Upload(clientID, map[string][]byte{
			"catalogo.pdf": []byte("not really a pdf"),
		}, nil)
		require.NoError(t, err)

		var result service.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Success)
		assert.Equal(t, service.MessageNoContent, result.Message)
		assert.NotEmpty(t, result.Errors)

		keys, err := env.S3Client.ListKeys(env.Ctx, "tenants/"+clientID+"/uploads/")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.True(t, strings.HasSuffix(keys[0], "-catalogo.pdf"))
	})

	t.Run("non-PDF files and broken URLs are reported", func(t *testing.T) {
		resp, err := env.Upload(clientID, map[string][]byte{
			"notas.txt": []byte("hola"),
		}, []string{env.SiteURL("/no-existe"), env.SiteURL("/sillas")})
		require.NoError(t, err)

		var result service.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.True(t, result.Success)
		assert.Equal(t, 1, result.URLsProcessed)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0], "notas.txt")
	})

	t.Run("page without text yields no content", func(t *testing.T) {
		other := env.RegisterClient("Empty")
		resp, err := env.Upload(other, nil, []string{env.SiteURL("/vacia")})
		require.NoError(t, err)

		var result service.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Success)

		info := env.info(t, other)
		assert.Zero(t, info.Stats.DocumentsCount)
	})

	t.Run("no sources", func(t *testing.T) {
		resp, err := env.Upload(clientID, nil, nil)
		require.NoError(t, err)

		var result service.UploadResult
		require.NoError(t, json.Unmarshal(resp.Data, &result))
		assert.False(t, result.Success)
		assert.Equal(t, service.MessageNoValidSources, result.Message)
	})

	t.Run("too many files", func(t *testing.T) {
		resp, err := env.Upload(clientID, map[string][]byte{
			"a.pdf": []byte("a"), "b.pdf": []byte("b"), "c.pdf": []byte("c"), "d.pdf": []byte("d"),
		}, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown client", func(t *testing.T) {
		resp, err := env.Upload("6f9619ff-8b86-d011-b42d-00c04fc964ff", nil, []string{env.SiteURL("/sillas")})
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed client id", func(t *testing.T) {
		resp, err := env.Upload("not-a-uuid", nil, []string{env.SiteURL("/sillas")})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("delete purges archived uploads", func(t *testing.T) {
		_, err := env.Delete("/api/admin/clients/" + clientID)
		require.NoError(t, err)

		keys, err := env.S3Client.ListKeys(env.Ctx, "tenants/"+clientID+"/uploads/")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}

// TestE2E_IndexEviction checks that evicted indices need a fresh upload while
// metadata is kept
func TestE2E_IndexEviction(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	ids := make([]string, 0, cacheEntries+1)
	for i := 0; i <= cacheEntries; i++ {
		id := env.RegisterClient("")
		_, err := env.Upload(id, nil, []string{env.SiteURL("/sillas")})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	resp, err := env.Get("/api/admin/cache")
	require.NoError(t, err)
	var stats service.CacheStats
	require.NoError(t, json.Unmarshal(resp.Data, &stats))
	assert.Equal(t, cacheEntries, stats.Size)
	assert.Equal(t, cacheEntries, stats.Capacity)
	assert.Equal(t, uint64(1), stats.Stats.Evictions)

	evicted := ids[0]
	info := env.info(t, evicted)
	assert.Equal(t, 1, info.Stats.DocumentsCount)

	resp, err = env.Post("/api/clients/"+evicted+"/chat", map[string]string{
		"question":       "¿Cuánto cuesta la silla?",
		"model_provider": "groq",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = env.Post("/api/clients/"+ids[cacheEntries]+"/chat", map[string]string{
		"question":       "¿Cuánto cuesta la silla?",
		"model_provider": "groq",
	})
	require.NoError(t, err)

	t.Run("admin list pages through clients", func(t *testing.T) {
		resp, err := env.Get("/api/admin/clients?limit=2")
		require.NoError(t, err)

		var page struct {
			Items   []clientInfo `json:"items"`
			Cursor  string       `json:"cursor"`
			HasMore bool         `json:"has_more"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		require.NotEmpty(t, page.Cursor)

		resp, err = env.Get("/api/admin/clients?limit=2&cursor=" + page.Cursor)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(resp.Data, &page))
		assert.Len(t, page.Items, 1)
		assert.False(t, page.HasMore)
	})
}

// TestE2E_CLIWorkflow drives the server through the chatbot binary
func TestE2E_CLIWorkflow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir, err := os.MkdirTemp("", "chatbot-cli-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(workDir)

	var clientID string

	t.Run("register saves the client id", func(t *testing.T) {
		overrides := filepath.Join(workDir, "client.yaml")
		require.NoError(t, os.WriteFile(overrides, []byte("chunk_size: 400\n"), 0644))

		output, err := env.RunChatbot(workDir, nil, "register", "--name", "CLI", "-f", overrides, "--save", "--output")
		require.NoError(t, err, "register failed: %s", output)

		var reg struct {
			ClientID string `json:"client_id"`
		}
		require.NoError(t, json.Unmarshal([]byte(output[strings.Index(output, "{"):]), &reg))
		require.NotEmpty(t, reg.ClientID)
		clientID = reg.ClientID

		info := env.info(t, clientID)
		assert.Equal(t, 400, info.Config.ChunkSize)
	})

	t.Run("upload uses the saved client", func(t *testing.T) {
		output, err := env.RunChatbot(workDir, nil, "upload", "--url", env.SiteURL("/sillas"), "--no-progress")
		require.NoError(t, err, "upload failed: %s", output)
		assert.Contains(t, output, "URLs processed: 1")
	})

	t.Run("chat answers a single question", func(t *testing.T) {
		output, err := env.RunChatbot(workDir, []string{"CHATBOT_MODEL_PROVIDER=groq"}, "chat", "¿Cuánto", "cuesta?")
		require.NoError(t, err, "chat failed: %s", output)
		assert.Contains(t, output, "La silla Belgrano cuesta $120.000.")
		assert.NotContains(t, output, "<think>")
	})

	t.Run("info shows stats", func(t *testing.T) {
		output, err := env.RunChatbot(workDir, nil, "info")
		require.NoError(t, err, "info failed: %s", output)
		assert.Contains(t, output, "Client: "+clientID)
		assert.Contains(t, output, "Documents: 1")
	})

	t.Run("flag overrides the saved client", func(t *testing.T) {
		output, err := env.RunChatbot(workDir, nil, "info", "--client", "6f9619ff-8b86-d011-b42d-00c04fc964ff")
		require.Error(t, err)
		assert.Contains(t, output, "client not found")
	})

	t.Run("admin delete", func(t *testing.T) {
		output, err := env.RunChatbot(workDir, nil, "admin", "delete", clientID, "--force")
		require.NoError(t, err, "delete failed: %s", output)

		resp, err := env.Get("/api/clients/" + clientID)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
