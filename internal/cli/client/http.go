package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	envAPIURL        = "CHATBOT_API_URL"
	envClientID      = "CHATBOT_CLIENT_ID"
	envModelProvider = "CHATBOT_MODEL_PROVIDER"
	envAPIKey        = "CHATBOT_MODEL_API_KEY"

	defaultAPIURL        = "http://localhost:8080"
	defaultModelProvider = "gemini"

	// uploads and model calls are slow, so the timeout is generous
	requestTimeout = 5 * time.Minute
)

// Settings are the resolved connection and chat settings for one command run
type Settings struct {
	APIURL        string
	ClientID      string
	ModelProvider string
	APIKey        string
}

// LoadSettings resolves every setting with the cascade flag -> env -> global config -> default.
// If cmd is nil, skips flag checking.
func LoadSettings(cmd *cobra.Command) (*Settings, error) {
	_ = godotenv.Load()

	globalConfig, err := LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if globalConfig == nil {
		globalConfig = &GlobalConfig{}
	}

	flag := func(name string) string {
		if cmd == nil {
			return ""
		}
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	s := &Settings{}
	s.APIURL, _ = resolveSetting(flag("api-url"), envAPIURL, globalConfig.APIURL, defaultAPIURL)
	s.ClientID, _ = resolveSetting(flag("client"), envClientID, globalConfig.ClientID, "")
	s.ModelProvider, _ = resolveSetting(flag("provider"), envModelProvider, globalConfig.ModelProvider, defaultModelProvider)
	s.APIKey, _ = resolveSetting(flag("api-key"), envAPIKey, globalConfig.APIKey, "")

	return s, nil
}

// RequireClientID returns the configured client id or an actionable error
func (s *Settings) RequireClientID() (string, error) {
	if s.ClientID == "" {
		return "", fmt.Errorf("no client id (pass --client, set %s, or run 'chatbot register --save')", envClientID)
	}
	if !IsValidClientID(s.ClientID) {
		return "", fmt.Errorf("client id %q is not a UUID", s.ClientID)
	}
	return s.ClientID, nil
}

type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClientWithCmd creates an APIClient for the resolved API URL
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, *Settings, error) {
	settings, err := LoadSettings(cmd)
	if err != nil {
		return nil, nil, err
	}
	return NewAPIClientWithConfig(settings.APIURL), settings, nil
}

// NewAPIClientWithConfig creates an APIClient with an explicit base URL.
func NewAPIClientWithConfig(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Get performs a GET request.
func (c *APIClient) Get(path string) (*APIResponse, error) {
	return c.do(http.MethodGet, path, nil)
}

// Post performs a POST request with JSON body.
func (c *APIClient) Post(path string, body interface{}) (*APIResponse, error) {
	return c.do(http.MethodPost, path, body)
}

// Delete performs a DELETE request.
func (c *APIClient) Delete(path string) (*APIResponse, error) {
	return c.do(http.MethodDelete, path, nil)
}

func (c *APIClient) do(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req)
}

func (c *APIClient) send(req *http.Request) (*APIResponse, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(respBody),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}

// ProgressFunc is a callback for reporting upload progress.
type ProgressFunc func(current, total int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader     io.Reader
	total      int64
	current    int64
	onProgress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	if pr.onProgress != nil {
		pr.onProgress(pr.current, pr.total)
	}
	return n, err
}

// PostDocuments streams the PDFs at paths and the URL list as a multipart
// upload. Progress counts PDF bytes only.
func (c *APIClient) PostDocuments(path string, pdfPaths, urls []string, onProgress ProgressFunc) (*APIResponse, error) {
	var total int64
	for _, p := range pdfPaths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		total += info.Size()
	}

	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("failed to encode urls: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeDocumentsForm(mw, pdfPaths, string(urlsJSON), total, onProgress))
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.send(req)
}

func writeDocumentsForm(mw *multipart.Writer, pdfPaths []string, urlsJSON string, total int64, onProgress ProgressFunc) error {
	var sent int64
	for _, p := range pdfPaths {
		part, err := mw.CreateFormFile("files", filepath.Base(p))
		if err != nil {
			return err
		}

		file, err := os.Open(p)
		if err != nil {
			return err
		}

		base := sent
		reader := &progressReader{reader: file, total: total}
		if onProgress != nil {
			reader.onProgress = func(current, total int64) {
				onProgress(base+current, total)
			}
		}

		n, err := io.Copy(part, reader)
		file.Close()
		if err != nil {
			return err
		}
		sent += n
	}

	if err := mw.WriteField("urls", urlsJSON); err != nil {
		return err
	}
	return mw.Close()
}
