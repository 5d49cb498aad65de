package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultHuggingFaceModel is the sentence-transformers model used for the default embeddings
	DefaultHuggingFaceModel = "sentence-transformers/all-MiniLM-L6-v2"

	defaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models"
)

// HuggingFaceEmbedder calls the Hugging Face Inference feature-extraction pipeline.
type HuggingFaceEmbedder struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
}

// NewHuggingFaceEmbedder creates an embedder for model. An empty baseURL uses the public router.
func NewHuggingFaceEmbedder(baseURL, model, token string, httpClient *http.Client) *HuggingFaceEmbedder {
	if baseURL == "" {
		baseURL = defaultHuggingFaceURL
	}
	if model == "" {
		model = DefaultHuggingFaceModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HuggingFaceEmbedder{
		baseURL:    baseURL,
		model:      model,
		token:      token,
		httpClient: httpClient,
	}
}

func (e *HuggingFaceEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.featureExtraction(ctx, texts)
}

func (e *HuggingFaceEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.featureExtraction(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type featureExtractionRequest struct {
	Inputs  []string          `json:"inputs"`
	Options map[string]string `json:"options,omitempty"`
}

func (e *HuggingFaceEmbedder) featureExtraction(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(featureExtractionRequest{Inputs: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/pipeline/feature-extraction", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("huggingface error (%d): %s", resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.Unmarshal(respBody, &vectors); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	return vectors, nil
}
