package domain

import (
	"fmt"
	"time"
)

// Embedding provider tags accepted in tenant configuration
const (
	EmbeddingProviderDefault = "huggingface-default"
	EmbeddingProviderGemini  = "gemini"
)

// TenantConfig is the effective per-tenant configuration after defaults are applied
type TenantConfig struct {
	EmbeddingProvider string  `json:"embedding_provider"`
	ChunkSize         int     `json:"chunk_size"`
	ChunkOverlap      int     `json:"chunk_overlap"`
	MMRK              int     `json:"mmr_k"`
	MMRFetchK         int     `json:"mmr_fetch_k"`
	MMRLambda         float64 `json:"mmr_lambda_mult"`
	MaxContextLength  int     `json:"max_context_length"`
}

// TenantConfigOverrides holds the optional fields a tenant may set at registration.
// A nil field means "use the deployment default".
type TenantConfigOverrides struct {
	EmbeddingProvider *string  `json:"embedding_provider,omitempty" yaml:"embedding_provider,omitempty"`
	ChunkSize         *int     `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap      *int     `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`
	MMRK              *int     `json:"mmr_k,omitempty" yaml:"mmr_k,omitempty"`
	MMRFetchK         *int     `json:"mmr_fetch_k,omitempty" yaml:"mmr_fetch_k,omitempty"`
	MMRLambda         *float64 `json:"mmr_lambda_mult,omitempty" yaml:"mmr_lambda_mult,omitempty"`
	MaxContextLength  *int     `json:"max_context_length,omitempty" yaml:"max_context_length,omitempty"`
}

// TenantStats tracks ingestion usage for a tenant
type TenantStats struct {
	DocumentsCount int        `json:"documents_count"`
	ChunksCount    int        `json:"chunks_count"`
	LastUpdated    *time.Time `json:"last_updated"`
}

// Tenant is a registered client owning one document corpus and at most one resident vector index
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Config    TenantConfig
	Stats     TenantStats
}

// NewTenant creates a new Tenant with empty stats
func NewTenant(id, name string, cfg TenantConfig, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		Config:    cfg,
	}
}

// Clone returns a deep copy so callers never share the registry's record
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Stats.LastUpdated != nil {
		lu := *t.Stats.LastUpdated
		c.Stats.LastUpdated = &lu
	}
	return &c
}

// RecordIngestion applies the result of one successful ingestion to the stats
func (t *Tenant) RecordIngestion(documents, chunks int, at time.Time) {
	t.Stats.DocumentsCount += documents
	t.Stats.ChunksCount += chunks
	ts := at
	t.Stats.LastUpdated = &ts
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if t.CreatedAt.IsZero() {
		return fmt.Errorf("tenant CreatedAt is required")
	}

	return nil
}
