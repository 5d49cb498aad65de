package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/marianoInsa/ChatBot-RAG/internal/cache"
	"github.com/marianoInsa/ChatBot-RAG/internal/domain"
	"github.com/marianoInsa/ChatBot-RAG/internal/pagination"
	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
	"github.com/marianoInsa/ChatBot-RAG/internal/vectorstore"
)

// EmbedderResolver resolves an embedding provider tag to an embedder
type EmbedderResolver interface {
	Get(tag string) (vectorstore.Embedder, error)
}

// IndexCache holds the resident vector indices keyed by tenant id
type IndexCache interface {
	Get(key string) (*vectorstore.Index, bool)
	Put(key string, value *vectorstore.Index)
	Invalidate(key string)
	Len() int
	Cap() int
	Stats() cache.Stats
}

// RegisterInput carries the optional registration fields
type RegisterInput struct {
	Name   string
	Config *domain.TenantConfigOverrides
}

// TenantChange is a pending metadata write. A nil Tenant means the tenant was deleted.
type TenantChange struct {
	TenantID string
	Tenant   *domain.Tenant
}

// ClientManager is the registry of tenants and their resident vector indices.
// Tenant metadata lives here independently of the index cache, so metadata
// survives eviction while the index does not.
type ClientManager struct {
	mu      sync.Mutex
	tenants map[string]*domain.Tenant
	dirty   map[string]struct{}
	track   bool

	resolver  *ConfigResolver
	pipeline  *IngestionPipeline
	embedders EmbedderResolver
	indices   IndexCache
	uuidGen   UUIDGenerator
	now       func() time.Time
}

// ClientManagerOption configures a ClientManager
type ClientManagerOption func(*ClientManager)

// WithChangeTracking records metadata changes for PendingChanges.
func WithChangeTracking() ClientManagerOption {
	return func(m *ClientManager) {
		m.track = true
	}
}

// WithClock overrides the time source (for testing)
func WithClock(now func() time.Time) ClientManagerOption {
	return func(m *ClientManager) {
		m.now = now
	}
}

// NewClientManager creates a new ClientManager instance
func NewClientManager(
	resolver *ConfigResolver,
	pipeline *IngestionPipeline,
	embedders EmbedderResolver,
	indices IndexCache,
	uuidGen UUIDGenerator,
	opts ...ClientManagerOption,
) *ClientManager {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	m := &ClientManager{
		tenants:   make(map[string]*domain.Tenant),
		dirty:     make(map[string]struct{}),
		resolver:  resolver,
		pipeline:  pipeline,
		embedders: embedders,
		indices:   indices,
		uuidGen:   uuidGen,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register creates a tenant with a fresh id, the resolved config and empty stats
func (m *ClientManager) Register(input RegisterInput) (*domain.Tenant, error) {
	tenant := domain.NewTenant(m.uuidGen.NewString(), input.Name, m.resolver.Resolve(input.Config), m.now())
	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, domain.Wrap(domain.ErrInternal, "failed to create client", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.tenants[tenant.ID]; exists {
		return nil, domain.ErrTenantAlreadyExists
	}
	m.tenants[tenant.ID] = tenant
	m.markDirty(tenant.ID)

	log.Printf("client registered: %s", tenant.ID)
	return tenant.Clone(), nil
}

// Exists reports whether the tenant is registered
func (m *ClientManager) Exists(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tenants[id]
	return ok
}

// Get returns a copy of the tenant's metadata
func (m *ClientManager) Get(id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	return t.Clone(), nil
}

// GetVectorStore returns the tenant's resident index, marking it most recently
// used. Unknown tenants are absent without touching the cache.
func (m *ClientManager) GetVectorStore(id string) (*vectorstore.Index, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[id]; !ok {
		return nil, false
	}
	return m.indices.Get(id)
}

// AddDocuments embeds docs into the tenant's index, creating and caching it when
// none is resident. Embedding runs outside the registry lock; a new index is
// cached under it, and only if the tenant still exists. Two concurrent first
// ingestions for one tenant can both create an index; the last Put wins.
func (m *ClientManager) AddDocuments(ctx context.Context, id string, docs []domain.Document) (int, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "ClientManager.AddDocuments", telemetry.SpanAttributes{
		TenantID:  id,
		Operation: "add_documents",
	})
	defer span.End()

	m.mu.Lock()
	tenant, ok := m.tenants[id]
	var cfg domain.TenantConfig
	if ok {
		cfg = tenant.Config
	}
	m.mu.Unlock()

	if !ok {
		return 0, 0, domain.ErrTenantNotFound
	}

	embedder, err := m.embedders.Get(cfg.EmbeddingProvider)
	if err != nil {
		return 0, 0, err
	}

	chunkCfg := chunkConfigFor(cfg)
	var chunks int
	var created *vectorstore.Index
	if index, resident := m.indices.Get(id); resident {
		chunks, err = m.pipeline.Append(ctx, index, docs, chunkCfg)
	} else {
		created, chunks, err = m.pipeline.Create(ctx, docs, chunkCfg, embedder)
	}
	if err != nil {
		span.SetError(err)
		return 0, 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tenant, ok = m.tenants[id]
	if !ok {
		// deleted while embedding; Delete already dropped any resident index
		m.indices.Invalidate(id)
		return 0, 0, domain.ErrTenantNotFound
	}
	if created != nil {
		m.indices.Put(id, created)
	}
	tenant.RecordIngestion(len(docs), chunks, m.now())
	m.markDirty(id)

	return len(docs), chunks, nil
}

// Delete removes the tenant's metadata and resident index. It reports whether the tenant existed.
func (m *ClientManager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.tenants[id]
	if ok {
		delete(m.tenants, id)
		m.markDirty(id)
	}
	m.mu.Unlock()

	m.indices.Invalidate(id)
	if ok {
		log.Printf("client deleted: %s", id)
	}
	return ok
}

// List returns copies of all tenants ordered by creation time, then id
func (m *ClientManager) List() []*domain.Tenant {
	m.mu.Lock()
	out := make([]*domain.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, t.Clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListPage returns one page of tenants in List order
func (m *ClientManager) ListPage(cursor string, limit int) (pagination.PageResult[*domain.Tenant], error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return pagination.PageResult[*domain.Tenant]{}, domain.Wrap(domain.ErrInvalidCursor, "invalid cursor", err)
	}

	return pagination.PageSlice(m.List(), decoded, limit,
		func(t *domain.Tenant) string { return t.ID },
		func(t *domain.Tenant) time.Time { return t.CreatedAt },
	), nil
}

// Restore loads persisted tenant metadata without marking it for sync.
// Indices are not restored; tenants re-ingest to rebuild them.
func (m *ClientManager) Restore(tenants []*domain.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range tenants {
		if t == nil || t.ID == "" {
			continue
		}
		m.tenants[t.ID] = t.Clone()
	}
}

// PendingChanges drains the tenants changed since the last call, with their current state
func (m *ClientManager) PendingChanges() []TenantChange {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.dirty) == 0 {
		return nil
	}

	changes := make([]TenantChange, 0, len(m.dirty))
	for id := range m.dirty {
		changes = append(changes, TenantChange{TenantID: id, Tenant: m.tenants[id].Clone()})
	}
	m.dirty = make(map[string]struct{})

	sort.Slice(changes, func(i, j int) bool { return changes[i].TenantID < changes[j].TenantID })
	return changes
}

// Requeue marks tenants as changed again after a failed sync. The next drain
// picks up their latest state.
func (m *ClientManager) Requeue(changes []TenantChange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range changes {
		m.markDirty(c.TenantID)
	}
}

// CacheStats describes the resident index cache
type CacheStats struct {
	Size     int         `json:"size"`
	Capacity int         `json:"capacity"`
	Stats    cache.Stats `json:"stats"`
}

// CacheStats returns the index cache occupancy and counters
func (m *ClientManager) CacheStats() CacheStats {
	return CacheStats{
		Size:     m.indices.Len(),
		Capacity: m.indices.Cap(),
		Stats:    m.indices.Stats(),
	}
}

// markDirty must be called with m.mu held
func (m *ClientManager) markDirty(id string) {
	if m.track {
		m.dirty[id] = struct{}{}
	}
}
