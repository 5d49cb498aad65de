//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marianoInsa/ChatBot-RAG/internal/api/handlers"
	"github.com/marianoInsa/ChatBot-RAG/internal/cache"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/jobs"
	"github.com/marianoInsa/ChatBot-RAG/internal/loader"
	"github.com/marianoInsa/ChatBot-RAG/internal/provider"
	"github.com/marianoInsa/ChatBot-RAG/internal/repository"
	"github.com/marianoInsa/ChatBot-RAG/internal/server"
	"github.com/marianoInsa/ChatBot-RAG/internal/service"
	"github.com/marianoInsa/ChatBot-RAG/internal/storage"
	"github.com/marianoInsa/ChatBot-RAG/internal/testutil"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

const (
	testBucket   = "e2e-uploads"
	fakeGroqKey  = "gsk-e2e"
	cacheEntries = 2
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	S3Client   *storage.S3Client
	TenantRepo *repository.TenantRepository
	Clients    *service.ClientManager

	Server     *httptest.Server
	SiteServer *httptest.Server
	Model      *FakeChatBackend
	syncWorker *jobs.Worker

	BinaryDir  string
	HTTPClient *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers, a fake
// model backend, a static web site to ingest and the API server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          testBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		S3Client:   s3Client,
		TenantRepo: repository.NewTenantRepository(pool),
		Model:      NewFakeChatBackend(),
		SiteServer: httptest.NewServer(http.HandlerFunc(serveSite)),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	env.startServer()

	return env
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.syncWorker != nil {
		e.syncWorker.Stop()
	}
	if e.SiteServer != nil {
		e.SiteServer.Close()
	}
	if e.Model != nil {
		e.Model.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// startServer wires the services the same way the serve command does,
// with model endpoints pointed at the fake backend.
func (e *E2ETestEnv) startServer() {
	uuidGen := &service.DefaultUUIDGenerator{}

	indices := cache.NewLRU[string, *vectorstore.Index](cacheEntries)
	embedders := provider.NewEmbeddingFactory(provider.EmbeddingConfig{})
	chatModels := provider.NewChatFactory(provider.ChatConfig{
		GroqAPIKey:    fakeGroqKey,
		GroqBaseURL:   e.Model.URL(),
		GeminiBaseURL: e.Model.URL(),
		OllamaBaseURL: "http://localhost:11434",
		OllamaModel:   "llama3.2",
	})

	defaults := domain.TenantConfig{
		EmbeddingProvider: domain.EmbeddingProviderDefault,
		ChunkSize:         1000,
		ChunkOverlap:      200,
		MMRK:              5,
		MMRFetchK:         20,
		MMRLambda:         0.5,
		MaxContextLength:  4000,
	}

	e.Clients = service.NewClientManager(
		service.NewConfigResolver(defaults),
		service.NewIngestionPipeline(uuidGen),
		embedders,
		indices,
		uuidGen,
		service.WithChangeTracking(),
	)

	e.syncWorker = jobs.NewWorker("tenant-sync", jobs.NewTenantSyncProcessor(e.Clients, e.TenantRepo), 100*time.Millisecond)
	go e.syncWorker.Start(e.Ctx)

	batchLoader := loader.New(
		loader.NewPDFLoader("pdftotext"),
		loader.NewWebLoader(loader.WebConfig{UserAgent: "chatbot-e2e", Timeout: 5 * time.Second}),
	)
	documents := service.NewDocumentService(
		e.Clients,
		batchLoader,
		service.UploadLimits{MaxFiles: 3, MaxURLs: 2, MaxFileSize: 1 << 20},
		uuidGen,
		service.WithArchiver(e.S3Client),
	)

	router := server.NewRouter(server.RouterConfig{
		ClientHandler:   handlers.NewClientHandler(e.Clients),
		DocumentHandler: handlers.NewDocumentHandler(documents),
		ChatHandler:     handlers.NewChatHandler(service.NewConversationService(e.Clients, chatModels)),
		AdminHandler:    handlers.NewAdminHandler(e.Clients, documents),
	})

	e.Server = httptest.NewServer(router)
}

// BuildBinaries builds the chatbot CLI
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "chatbot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "chatbot"), "./cmd/chatbot")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build chatbot: %v\n%s", err, out)
	}
}

// RunChatbot runs the chatbot CLI with an isolated config directory
func (e *E2ETestEnv) RunChatbot(workDir string, env []string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "chatbot"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("CHATBOT_API_URL=%s", e.Server.URL),
		fmt.Sprintf("XDG_CONFIG_HOME=%s", filepath.Join(workDir, ".config")),
		fmt.Sprintf("HOME=%s", workDir),
	)
	cmd.Env = append(cmd.Env, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	StatusCode int
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return e.send(req)
}

// Upload posts a multipart upload of named PDF contents and a URL list
func (e *E2ETestEnv) Upload(clientID string, pdfs map[string][]byte, urls []string) (*APIResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range pdfs {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(content); err != nil {
			return nil, err
		}
	}
	urlsJSON, _ := json.Marshal(urls)
	if err := mw.WriteField("urls", string(urlsJSON)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.Server.URL+"/api/clients/"+clientID+"/documents/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return e.send(req)
}

func (e *E2ETestEnv) send(req *http.Request) (*APIResponse, error) {
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	apiResp.StatusCode = resp.StatusCode

	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// RegisterClient registers a client and returns its id
func (e *E2ETestEnv) RegisterClient(name string) string {
	resp, err := e.Post("/api/clients/register", map[string]string{"name": name})
	if err != nil {
		e.T.Fatalf("failed to register client: %v", err)
	}
	var data struct {
		ClientID string `json:"client_id"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		e.T.Fatalf("failed to parse register response: %v", err)
	}
	return data.ClientID
}

// SiteURL returns the URL of a page on the static test site
func (e *E2ETestEnv) SiteURL(page string) string {
	return e.SiteServer.URL + page
}

var sitePages = map[string]string{
	"/sillas": `<html><head><title>Sillas</title><style>.x{color:red}</style></head>
<body><nav>Inicio | Contacto</nav><main><h1>Silla Belgrano</h1>
<p>La silla Belgrano es de madera de paraíso maciza y cuesta $120.000.</p>
<p>Se entrega armada en CABA en 5 días hábiles.</p></main></body></html>`,
	"/envios": `<html><head><title>Envíos</title></head><body>
<p>Hacemos envíos a todo el país. El envío es gratis en compras superiores a $300.000.</p>
</body></html>`,
	"/vacia": `<html><head><script>var a = 1;</script></head><body>   </body></html>`,
}

func serveSite(w http.ResponseWriter, r *http.Request) {
	page, ok := sitePages[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

// FakeChatBackend is an OpenAI-compatible chat completions endpoint that
// records prompts and answers with a fixed reply.
type FakeChatBackend struct {
	srv *httptest.Server

	mu      sync.Mutex
	reply   string
	prompts []string
	keys    []string
}

func NewFakeChatBackend() *FakeChatBackend {
	f := &FakeChatBackend{reply: "<think>buscar en el contexto</think>La silla Belgrano cuesta $120.000."}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *FakeChatBackend) URL() string { return f.srv.URL }

func (f *FakeChatBackend) Close() { f.srv.Close() }

func (f *FakeChatBackend) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

func (f *FakeChatBackend) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func (f *FakeChatBackend) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}

	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	for _, m := range req.Messages {
		f.prompts = append(f.prompts, m.Content)
	}
	f.keys = append(f.keys, r.Header.Get("Authorization"))
	reply := f.reply
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-e2e",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "fake",
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		}},
	})
}
