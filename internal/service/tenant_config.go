package service

import "github.com/marianoInsa/ChatBot-RAG/internal/domain"

// ConfigResolver merges tenant overrides onto the deployment defaults.
type ConfigResolver struct {
	defaults domain.TenantConfig
}

// NewConfigResolver creates a new ConfigResolver instance
func NewConfigResolver(defaults domain.TenantConfig) *ConfigResolver {
	return &ConfigResolver{defaults: defaults}
}

// Defaults returns the deployment-wide tenant configuration.
func (r *ConfigResolver) Defaults() domain.TenantConfig {
	return r.defaults
}

// Resolve returns the effective config. Only fields set in overrides replace defaults;
// values are not range-checked here.
func (r *ConfigResolver) Resolve(overrides *domain.TenantConfigOverrides) domain.TenantConfig {
	cfg := r.defaults
	if overrides == nil {
		return cfg
	}

	if overrides.EmbeddingProvider != nil {
		cfg.EmbeddingProvider = *overrides.EmbeddingProvider
	}
	if overrides.ChunkSize != nil {
		cfg.ChunkSize = *overrides.ChunkSize
	}
	if overrides.ChunkOverlap != nil {
		cfg.ChunkOverlap = *overrides.ChunkOverlap
	}
	if overrides.MMRK != nil {
		cfg.MMRK = *overrides.MMRK
	}
	if overrides.MMRFetchK != nil {
		cfg.MMRFetchK = *overrides.MMRFetchK
	}
	if overrides.MMRLambda != nil {
		cfg.MMRLambda = *overrides.MMRLambda
	}
	if overrides.MaxContextLength != nil {
		cfg.MaxContextLength = *overrides.MaxContextLength
	}

	return cfg
}

// chunkConfigFor extracts the splitter settings from a tenant config.
func chunkConfigFor(cfg domain.TenantConfig) ChunkConfig {
	return ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
}
